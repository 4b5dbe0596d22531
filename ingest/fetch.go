package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/logger"
	"github.com/teranos/mangasync/store"
)

// Fetcher reads raw batches by job id.
type Fetcher struct {
	exec   store.Executor
	logger *zap.SugaredLogger
}

// NewFetcher returns a Fetcher over exec.
func NewFetcher(exec store.Executor, log *zap.SugaredLogger) *Fetcher {
	return &Fetcher{exec: exec, logger: logger.OrNop(log)}
}

// FetchOverviews returns raw overview rows tagged with any of jobIDs,
// ordered by job_id then load order. No ids means no rows and no query.
func (f *Fetcher) FetchOverviews(ctx context.Context, jobIDs []string) ([]RawManga, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	rows, err := f.exec.Execute(ctx, "fetch_raw_overviews", store.Params{"job_ids": jobIDs})
	if err != nil {
		return nil, errors.Wrap(err, "fetch raw overviews")
	}

	out := make([]RawManga, 0, len(rows))
	for _, r := range rows {
		out = append(out, RawManga{
			ID:          r.Int64("id"),
			JobID:       r.String("job_id"),
			Code:        r.String("code"),
			Title:       r.String("title"),
			AuthorList:  r.String("author_list"),
			GenreList:   r.String("genre_list"),
			IsCompleted: r.String("is_completed"),
		})
	}
	f.logger.Infow("Fetched raw overviews",
		logger.FieldSourceJobID, jobIDs,
		logger.FieldCount, len(out),
	)
	return out, nil
}

// FetchChapters returns raw chapter rows tagged with any of jobIDs,
// ordered by job_id then load order. No ids means no rows and no query.
func (f *Fetcher) FetchChapters(ctx context.Context, jobIDs []string) ([]RawChapter, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	rows, err := f.exec.Execute(ctx, "fetch_raw_chapters", store.Params{"job_ids": jobIDs})
	if err != nil {
		return nil, errors.Wrap(err, "fetch raw chapters")
	}

	out := make([]RawChapter, 0, len(rows))
	for _, r := range rows {
		out = append(out, RawChapter{
			ID:               r.Int64("id"),
			JobID:            r.String("job_id"),
			Code:             r.String("code"),
			ChapterTitle:     r.String("chapter_title"),
			ChapterURL:       r.String("chapter_url"),
			ChapterUpdatedAt: r.String("chapter_updated_at"),
		})
	}
	f.logger.Infow("Fetched raw chapters",
		logger.FieldSourceJobID, jobIDs,
		logger.FieldCount, len(out),
	)
	return out, nil
}
