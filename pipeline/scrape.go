package pipeline

import (
	"context"

	"github.com/teranos/mangasync/am"
	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/ingest"
	"github.com/teranos/mangasync/joblog"
	"github.com/teranos/mangasync/logger"
	"github.com/teranos/mangasync/scrape"
	"github.com/teranos/mangasync/store"
)

// ScrapeOverviews fetches every configured slug's overview, loads the raw
// rows under a fresh job id and logs the batch for the overview service.
// A source error aborts before anything is written.
func (p *Pipeline) ScrapeOverviews(ctx context.Context) (*Result, error) {
	return p.run(ctx, FlowScrapeOverviews, func(ctx context.Context, res *Result) error {
		slugs := p.cfg.Scrape.Slugs
		res.Counts["slugs"] = len(slugs)
		if len(slugs) == 0 {
			p.emitter.EmitInfo("No slugs configured (scrape.slugs)")
			res.Status = StatusSkipped
			return nil
		}
		src, err := p.scrapeSource()
		if err != nil {
			return err
		}

		p.emitter.EmitStage("fetch", "overviews from "+src.Name())
		pool := scrape.NewPool(p.cfg.Scrape.Workers, p.cfg.Scrape.RequestsPerMinute, logger.FromContext(ctx, p.logger))
		overviews, err := scrape.Map(ctx, pool, slugs, src.FetchOverview)
		if err != nil {
			return err
		}

		sep := p.cfg.GetLabelSeparator()
		rows := make([]ingest.RawManga, 0, len(overviews))
		for _, ov := range overviews {
			rows = append(rows, ingest.RawManga{
				Code:        ov.Code,
				Title:       ov.Title,
				AuthorList:  ingest.JoinLabels(ov.Authors, sep),
				GenreList:   ingest.JoinLabels(ov.Genres, sep),
				IsCompleted: ingest.CompletedFlag(ov.Completed),
			})
		}
		p.emitter.EmitProgress(len(rows), map[string]interface{}{"type": "overviews"})

		n, err := p.loadBatch(ctx, p.cfg.GetOverviewsService(), am.OverviewsJobName, res.JobID, func(ctx context.Context, l *ingest.Loader) (int, error) {
			return l.LoadOverviews(ctx, res.JobID, rows)
		})
		res.Counts["loaded"] = n
		return err
	})
}

// ScrapeChapters fetches every configured slug's chapter list, loads the
// raw rows under a fresh job id and logs the batch for the chapter service.
func (p *Pipeline) ScrapeChapters(ctx context.Context) (*Result, error) {
	return p.run(ctx, FlowScrapeChapters, func(ctx context.Context, res *Result) error {
		slugs := p.cfg.Scrape.Slugs
		res.Counts["slugs"] = len(slugs)
		if len(slugs) == 0 {
			p.emitter.EmitInfo("No slugs configured (scrape.slugs)")
			res.Status = StatusSkipped
			return nil
		}
		src, err := p.scrapeSource()
		if err != nil {
			return err
		}

		p.emitter.EmitStage("fetch", "chapters from "+src.Name())
		pool := scrape.NewPool(p.cfg.Scrape.Workers, p.cfg.Scrape.RequestsPerMinute, logger.FromContext(ctx, p.logger))
		lists, err := scrape.Map(ctx, pool, slugs, src.FetchChapters)
		if err != nil {
			return err
		}

		var rows []ingest.RawChapter
		for _, chapters := range lists {
			for _, ch := range chapters {
				rows = append(rows, ingest.RawChapter{
					Code:             ch.Code,
					ChapterTitle:     ch.Title,
					ChapterURL:       ch.URL,
					ChapterUpdatedAt: ch.UpdatedAt,
				})
			}
		}
		p.emitter.EmitProgress(len(rows), map[string]interface{}{"type": "chapters"})
		if len(rows) == 0 {
			// an empty batch would stay pending forever
			p.emitter.EmitInfo("No chapters listed; nothing logged")
			res.Status = StatusSkipped
			return nil
		}

		n, err := p.loadBatch(ctx, p.cfg.GetChaptersService(), am.ChaptersJobName, res.JobID, func(ctx context.Context, l *ingest.Loader) (int, error) {
			return l.LoadChapters(ctx, res.JobID, rows)
		})
		res.Counts["loaded"] = n
		return err
	})
}

// loadBatch writes raw rows and the job log entry together when the
// executor supports transactions, so a batch is never logged half-loaded.
func (p *Pipeline) loadBatch(ctx context.Context, service, name, jobID string, load func(context.Context, *ingest.Loader) (int, error)) (int, error) {
	var loaded int
	write := func(ctx context.Context, exec store.Executor) error {
		n, err := load(ctx, ingest.NewLoader(exec))
		if err != nil {
			return err
		}
		loaded = n
		return joblog.NewTracker(exec, p.ids, logger.FromContext(ctx, p.logger)).LoadLog(ctx, service, name, jobID)
	}

	var err error
	if tx, ok := p.exec.(store.Transactor); ok {
		err = tx.InTx(ctx, write)
	} else {
		err = write(ctx, p.exec)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "load %s batch %s", service, jobID)
	}
	logger.DBInfow(logger.FromContext(ctx, p.logger), "Raw batch loaded",
		logger.FieldService, service,
		logger.FieldCount, loaded,
	)
	return loaded, nil
}
