package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/logger"
	"github.com/teranos/mangasync/store"
)

// Upserter inserts or updates catalogue entities by natural key and
// returns them with their surrogate ids. Each call is one batch through
// the executor.
type Upserter struct {
	exec   store.Executor
	logger *zap.SugaredLogger
}

// NewUpserter returns an Upserter over exec.
func NewUpserter(exec store.Executor, log *zap.SugaredLogger) *Upserter {
	return &Upserter{exec: exec, logger: logger.OrNop(log)}
}

// UpsertMangas upserts rows by code. Rows must already be deduplicated.
func (u *Upserter) UpsertMangas(ctx context.Context, rows []Manga) ([]Manga, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	batch := make([]store.Params, 0, len(rows))
	for _, m := range rows {
		batch = append(batch, store.Params{
			"code":         m.Code,
			"title":        m.Title,
			"is_completed": m.IsCompleted,
			"job_id":       m.JobID,
		})
	}
	res, err := u.exec.ExecuteBatch(ctx, "upsert_mangas", batch)
	if err != nil {
		return nil, errors.Wrapf(err, "upsert %d mangas", len(rows))
	}

	out := make([]Manga, 0, len(res))
	for _, r := range res {
		out = append(out, Manga{
			ID:          r.Int64("id"),
			Code:        r.String("code"),
			Title:       r.String("title"),
			IsCompleted: r.Bool("is_completed"),
			JobID:       r.String("job_id"),
		})
	}
	u.logger.Debugw("Upserted mangas", logger.FieldCount, len(out))
	return out, nil
}

// UpsertAuthors upserts author names tagged with jobID.
func (u *Upserter) UpsertAuthors(ctx context.Context, jobID string, names []string) ([]Label, error) {
	return u.upsertLabels(ctx, "upsert_authors", jobID, names)
}

// UpsertGenres upserts genre names tagged with jobID.
func (u *Upserter) UpsertGenres(ctx context.Context, jobID string, names []string) ([]Label, error) {
	return u.upsertLabels(ctx, "upsert_genres", jobID, names)
}

func (u *Upserter) upsertLabels(ctx context.Context, query, jobID string, names []string) ([]Label, error) {
	if len(names) == 0 {
		return nil, nil
	}
	batch := make([]store.Params, 0, len(names))
	for _, name := range names {
		batch = append(batch, store.Params{"name": name, "job_id": jobID})
	}
	res, err := u.exec.ExecuteBatch(ctx, query, batch)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: %d labels", query, len(names))
	}

	out := make([]Label, 0, len(res))
	for _, r := range res {
		out = append(out, Label{ID: r.Int64("id"), Name: r.String("name")})
	}
	u.logger.Debugw("Upserted labels", logger.FieldQuery, query, logger.FieldCount, len(out))
	return out, nil
}

// UpsertChapters upserts chapters by (manga_code, url). Rows with a
// MangaID (re)link their parent; rows without one are stored unresolved
// and never clear a link set by an earlier run. The result follows the
// input order.
func (u *Upserter) UpsertChapters(ctx context.Context, rows []MangaChapter) ([]MangaChapter, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	var resolved, unresolved []store.Params
	var resolvedAt, unresolvedAt []int
	for i, c := range rows {
		p := store.Params{
			"manga_code":         c.MangaCode,
			"chapter_title":      c.Title,
			"chapter_url":        c.URL,
			"chapter_updated_at": nullTime(c.UpdatedAt),
			"job_id":             c.JobID,
		}
		if c.MangaID != nil {
			p["manga_id"] = *c.MangaID
			resolved = append(resolved, p)
			resolvedAt = append(resolvedAt, i)
			continue
		}
		unresolved = append(unresolved, p)
		unresolvedAt = append(unresolvedAt, i)
	}

	out := make([]MangaChapter, len(rows))
	if err := u.upsertChapterBatch(ctx, "upsert_manga_chapters", resolved, resolvedAt, out); err != nil {
		return nil, err
	}
	if err := u.upsertChapterBatch(ctx, "upsert_undefined_manga_chapters", unresolved, unresolvedAt, out); err != nil {
		return nil, err
	}
	u.logger.Debugw("Upserted chapters",
		logger.FieldCount, len(rows),
		"resolved", len(resolved),
		"unresolved", len(unresolved),
	)
	return out, nil
}

func (u *Upserter) upsertChapterBatch(ctx context.Context, query string, batch []store.Params, positions []int, out []MangaChapter) error {
	if len(batch) == 0 {
		return nil
	}
	res, err := u.exec.ExecuteBatch(ctx, query, batch)
	if err != nil {
		return errors.Wrapf(err, "%s: %d chapters", query, len(batch))
	}
	if len(res) != len(batch) {
		return errors.WrapStore(errors.Newf("returned %d rows for %d chapters", len(res), len(batch)), query)
	}
	for i, r := range res {
		c := MangaChapter{
			ID:        r.Int64("id"),
			MangaID:   r.NullInt64("manga_id"),
			MangaCode: r.String("manga_code"),
			Title:     r.String("chapter_title"),
			URL:       r.String("chapter_url"),
			JobID:     r.String("job_id"),
		}
		if ts, ok := r.Time("chapter_updated_at"); ok {
			c.UpdatedAt = ts
		}
		out[positions[i]] = c
	}
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
