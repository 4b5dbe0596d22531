package ingest

import (
	"context"

	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/store"
)

// Loader appends producer output to the raw tables. Raw rows are
// append-only; replays of a job id add rows that dedup later collapses.
type Loader struct {
	exec store.Executor
}

// NewLoader returns a Loader over exec.
func NewLoader(exec store.Executor) *Loader {
	return &Loader{exec: exec}
}

// LoadOverviews writes rows tagged with jobID in one batch.
func (l *Loader) LoadOverviews(ctx context.Context, jobID string, rows []RawManga) (int, error) {
	batch := make([]store.Params, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, store.Params{
			"job_id":       jobID,
			"code":         r.Code,
			"title":        r.Title,
			"author_list":  r.AuthorList,
			"genre_list":   r.GenreList,
			"is_completed": r.IsCompleted,
		})
	}
	if _, err := l.exec.ExecuteBatch(ctx, "load_mangas", batch); err != nil {
		return 0, errors.Wrapf(err, "load %d raw overviews for job %s", len(rows), jobID)
	}
	return len(batch), nil
}

// LoadChapters writes rows tagged with jobID in one batch.
func (l *Loader) LoadChapters(ctx context.Context, jobID string, rows []RawChapter) (int, error) {
	batch := make([]store.Params, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, store.Params{
			"job_id":             jobID,
			"code":               r.Code,
			"chapter_title":      r.ChapterTitle,
			"chapter_url":        r.ChapterURL,
			"chapter_updated_at": r.ChapterUpdatedAt,
		})
	}
	if _, err := l.exec.ExecuteBatch(ctx, "load_manga_chapters", batch); err != nil {
		return 0, errors.Wrapf(err, "load %d raw chapters for job %s", len(rows), jobID)
	}
	return len(batch), nil
}
