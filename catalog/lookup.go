package catalog

import (
	"context"
	"sort"

	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/store"
)

// MangasByCode returns the persisted mangas among codes. Unknown codes are
// simply absent from the result.
func MangasByCode(ctx context.Context, exec store.Executor, codes []string) ([]Manga, error) {
	distinct := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			distinct = append(distinct, c)
		}
	}
	if len(distinct) == 0 {
		return nil, nil
	}
	sort.Strings(distinct)

	rows, err := exec.Execute(ctx, "fetch_mangas_by_code", store.Params{"codes": distinct})
	if err != nil {
		return nil, errors.Wrapf(err, "look up %d manga codes", len(distinct))
	}
	out := make([]Manga, 0, len(rows))
	for _, r := range rows {
		out = append(out, Manga{
			ID:          r.Int64("id"),
			Code:        r.String("code"),
			Title:       r.String("title"),
			IsCompleted: r.Bool("is_completed"),
			JobID:       r.String("job_id"),
		})
	}
	return out, nil
}
