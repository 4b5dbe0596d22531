package pipeline

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/teranos/mangasync/catalog"
	"github.com/teranos/mangasync/dedup"
	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/ingest"
	"github.com/teranos/mangasync/internal/util"
	"github.com/teranos/mangasync/joblog"
	"github.com/teranos/mangasync/logger"
)

// labelRelation ties a join table to the raw list it is built from.
type labelRelation struct {
	relation catalog.Relation
	kind     string
	list     func(ingest.RawManga) string
	upsert   func(ctx context.Context, jobID string, names []string) ([]catalog.Label, error)
}

// SyncOverviews reconciles overview batches into mangas, authors, genres
// and their mappings, then marks the batches processed. With no jobIDs it
// takes the pending batches of the overview service.
func (p *Pipeline) SyncOverviews(ctx context.Context, jobIDs []string) (*Result, error) {
	return p.run(ctx, FlowSyncOverviews, func(ctx context.Context, res *Result) error {
		log := logger.FromContext(ctx, p.logger)
		service := p.cfg.GetOverviewsService()
		tracker := joblog.NewTracker(p.exec, p.ids, log)

		ids, err := p.sourceJobIDs(ctx, tracker, service, jobIDs)
		if err != nil {
			return err
		}
		res.SourceJobIDs = ids
		if len(ids) == 0 {
			p.emitter.EmitInfo("No pending overview batches")
			res.Status = StatusSkipped
			return nil
		}
		processedAt, err := p.ids.Parse(res.JobID)
		if err != nil {
			return err
		}

		p.emitter.EmitStage("fetch", fmt.Sprintf("%d overview batch(es)", len(ids)))
		raw, err := ingest.NewFetcher(p.exec, log).FetchOverviews(ctx, ids)
		if err != nil {
			return err
		}
		res.Counts["raw"] = len(raw)
		if len(raw) == 0 {
			log.Warnw("Batches have no raw overview rows; leaving them pending", logger.FieldSourceJobID, ids)
			res.Status = StatusSkipped
			return nil
		}

		valid, err := p.validator().Overviews(raw)
		res.Counts["invalid"] = len(valid.Rejected)
		p.reportRejected(log, valid.Rejected)
		if err != nil {
			return err
		}

		rep := dedup.ResolveReport(valid.Valid, dedup.Latest("code"))
		winners := rep.Records
		res.Counts["deduped"] = len(winners)
		res.Counts["dropped"] = rep.Dropped()

		p.emitter.EmitStage("upsert", "mangas")
		up := catalog.NewUpserter(p.exec, log)
		rows := make([]catalog.Manga, 0, len(winners))
		for _, w := range winners {
			rows = append(rows, catalog.Manga{
				Code:        w.Code,
				Title:       w.Title,
				IsCompleted: w.Completed(),
				JobID:       res.JobID,
			})
		}
		mangas, err := up.UpsertMangas(ctx, rows)
		if err != nil {
			return err
		}
		res.Counts["mangas"] = len(mangas)
		p.emitter.EmitProgress(len(mangas), map[string]interface{}{"type": "mangas"})

		rec := catalog.NewReconciler(p.exec, p.cfg.Sync.AtomicReconcile, log)
		sep := p.cfg.GetLabelSeparator()
		relations := []labelRelation{
			{relation: catalog.MangaAuthors, kind: "authors", list: func(r ingest.RawManga) string { return r.AuthorList }, upsert: up.UpsertAuthors},
			{relation: catalog.MangaGenres, kind: "genres", list: func(r ingest.RawManga) string { return r.GenreList }, upsert: up.UpsertGenres},
		}
		for _, rel := range relations {
			p.emitter.EmitStage("reconcile", rel.relation.Name)
			set := catalog.NewLabelSet(sep)
			for _, w := range winners {
				set.Add(w.Code, rel.list(w))
			}
			labels, err := rel.upsert(ctx, res.JobID, set.Names())
			if err != nil {
				return err
			}
			res.Counts[rel.kind] = len(labels)

			ix := catalog.NewIndex(mangas, labels)
			mappings, err := rec.Reconcile(ctx, rel.relation, ix.ParentIDs(), set.Pairs(), ix, res.JobID)
			if err != nil {
				return err
			}
			res.Counts[rel.relation.Name] = len(mappings)
			p.emitter.EmitProgress(len(mappings), map[string]interface{}{"type": rel.relation.Name})
		}

		return tracker.MarkProcessed(ctx, service, ids, processedAt)
	})
}

// SyncChapters reconciles chapter batches into manga_chapters, linking
// each chapter to its manga when the manga is already catalogued, then
// marks the batches processed.
func (p *Pipeline) SyncChapters(ctx context.Context, jobIDs []string) (*Result, error) {
	return p.run(ctx, FlowSyncChapters, func(ctx context.Context, res *Result) error {
		log := logger.FromContext(ctx, p.logger)
		service := p.cfg.GetChaptersService()
		tracker := joblog.NewTracker(p.exec, p.ids, log)

		ids, err := p.sourceJobIDs(ctx, tracker, service, jobIDs)
		if err != nil {
			return err
		}
		res.SourceJobIDs = ids
		if len(ids) == 0 {
			p.emitter.EmitInfo("No pending chapter batches")
			res.Status = StatusSkipped
			return nil
		}
		processedAt, err := p.ids.Parse(res.JobID)
		if err != nil {
			return err
		}

		p.emitter.EmitStage("fetch", fmt.Sprintf("%d chapter batch(es)", len(ids)))
		raw, err := ingest.NewFetcher(p.exec, log).FetchChapters(ctx, ids)
		if err != nil {
			return err
		}
		res.Counts["raw"] = len(raw)
		if len(raw) == 0 {
			log.Warnw("Batches have no raw chapter rows; leaving them pending", logger.FieldSourceJobID, ids)
			res.Status = StatusSkipped
			return nil
		}

		valid, err := p.validator().Chapters(raw)
		res.Counts["invalid"] = len(valid.Rejected)
		p.reportRejected(log, valid.Rejected)
		if err != nil {
			return err
		}

		rep := dedup.ResolveReport(valid.Valid, dedup.Latest("code", "chapter_url"))
		winners := rep.Records
		res.Counts["deduped"] = len(winners)
		res.Counts["dropped"] = rep.Dropped()

		codes := make([]string, 0, len(winners))
		for _, w := range winners {
			codes = append(codes, w.Code)
		}
		mangas, err := catalog.MangasByCode(ctx, p.exec, codes)
		if err != nil {
			return err
		}
		ix := catalog.NewIndex(mangas, nil)

		p.emitter.EmitStage("upsert", "chapters")
		rows := make([]catalog.MangaChapter, 0, len(winners))
		for _, w := range winners {
			ch := catalog.MangaChapter{
				MangaCode: w.Code,
				Title:     w.ChapterTitle,
				URL:       w.ChapterURL,
				UpdatedAt: w.UpdatedAt,
				JobID:     res.JobID,
			}
			if id, ok := ix.Parent(w.Code); ok {
				ch.MangaID = util.Ptr(id)
			}
			rows = append(rows, ch)
		}
		chapters, err := catalog.NewUpserter(p.exec, log).UpsertChapters(ctx, rows)
		if err != nil {
			return err
		}
		res.Counts["chapters"] = len(chapters)
		for _, c := range chapters {
			if c.Resolved() {
				res.Counts["resolved"]++
			} else {
				res.Counts["unresolved"]++
			}
		}
		p.emitter.EmitProgress(len(chapters), map[string]interface{}{"type": "chapters"})
		if n := res.Counts["unresolved"]; n > 0 {
			p.emitter.EmitInfo(fmt.Sprintf("%d chapter(s) stored without a known manga", n))
		}

		return tracker.MarkProcessed(ctx, service, ids, processedAt)
	})
}

// sourceJobIDs returns the explicit ids, validated, sorted and distinct,
// or the pending ids of service when none are given.
func (p *Pipeline) sourceJobIDs(ctx context.Context, tracker *joblog.Tracker, service string, explicit []string) ([]string, error) {
	if len(explicit) == 0 {
		return tracker.FetchPending(ctx, service)
	}
	seen := make(map[string]bool, len(explicit))
	ids := make([]string, 0, len(explicit))
	for _, id := range explicit {
		if _, err := p.ids.Parse(id); err != nil {
			return nil, errors.WithHint(err, "job ids look like 20240131093000")
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (p *Pipeline) validator() ingest.Validator {
	return ingest.Validator{Location: p.ids.Location, SkipInvalid: p.cfg.Sync.SkipInvalid}
}

func (p *Pipeline) reportRejected(log *zap.SugaredLogger, rejected []ingest.Rejection) {
	if len(rejected) == 0 || !p.cfg.Sync.SkipInvalid {
		return
	}
	for _, r := range rejected {
		log.Warnw("Skipped invalid raw row",
			logger.FieldSourceJobID, r.JobID,
			"raw_id", r.ID,
			"key", r.Key,
			"reason", r.Reason,
		)
	}
	p.emitter.EmitInfo(fmt.Sprintf("Skipped %d invalid raw row(s)", len(rejected)))
}
