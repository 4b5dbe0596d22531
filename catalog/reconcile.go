package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/mangasync/dedup"
	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/logger"
	"github.com/teranos/mangasync/store"
)

// Relation names the statements of one join table.
type Relation struct {
	Name   string
	Delete string
	Insert string
	List   string
}

// Join tables between mangas and their labels.
var (
	MangaAuthors = Relation{
		Name:   "manga_authors",
		Delete: "delete_manga_authors",
		Insert: "insert_manga_authors",
		List:   "list_manga_authors",
	}
	MangaGenres = Relation{
		Name:   "manga_genres",
		Delete: "delete_manga_genres",
		Insert: "insert_manga_genres",
		List:   "list_manga_genres",
	}
)

// Reconciler replaces the join rows of a set of parents with the set
// implied by the current batch.
type Reconciler struct {
	exec   store.Executor
	atomic bool
	logger *zap.SugaredLogger
}

// NewReconciler returns a Reconciler over exec. With atomic set and an
// executor that implements store.Transactor, the delete and the insert
// share one transaction; otherwise each is atomic on its own.
func NewReconciler(exec store.Executor, atomic bool, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{exec: exec, atomic: atomic, logger: logger.OrNop(log)}
}

// Reconcile deduplicates pairs, resolves them through ix, deletes every row
// of rel whose manga id is in parentIDs and inserts the resolved rows
// tagged with jobID. A pair that does not resolve fails with a
// ResolutionError before anything is deleted.
func (r *Reconciler) Reconcile(ctx context.Context, rel Relation, parentIDs []int64, pairs []Pair, ix *Index, jobID string) ([]Mapping, error) {
	pairs = dedup.Resolve(pairs, pairKey)

	batch := make([]store.Params, 0, len(pairs))
	for _, p := range pairs {
		mangaID, ok := ix.Parent(p.ParentCode)
		if !ok {
			return nil, errors.NewResolutionError("%s: no manga with code %q", rel.Name, p.ParentCode)
		}
		labelID, ok := ix.Label(p.LabelName)
		if !ok {
			return nil, errors.NewResolutionError("%s: no label named %q for manga %q", rel.Name, p.LabelName, p.ParentCode)
		}
		batch = append(batch, store.Params{"manga_id": mangaID, "label_id": labelID, "job_id": jobID})
	}

	var rows []store.Row
	replace := func(ctx context.Context, exec store.Executor) error {
		if len(parentIDs) > 0 {
			if _, err := exec.Execute(ctx, rel.Delete, store.Params{"manga_ids": parentIDs}); err != nil {
				return errors.Wrapf(err, "clear %s for %d mangas", rel.Name, len(parentIDs))
			}
		}
		var err error
		rows, err = exec.ExecuteBatch(ctx, rel.Insert, batch)
		if err != nil {
			return errors.Wrapf(err, "insert %d %s rows", len(batch), rel.Name)
		}
		return nil
	}

	var err error
	if tx, ok := r.exec.(store.Transactor); ok && r.atomic {
		err = tx.InTx(ctx, replace)
	} else {
		err = replace(ctx, r.exec)
	}
	if err != nil {
		return nil, err
	}

	out := make([]Mapping, 0, len(rows))
	for _, row := range rows {
		out = append(out, Mapping{
			MangaID: row.Int64("manga_id"),
			LabelID: row.Int64("label_id"),
			JobID:   row.String("job_id"),
		})
	}
	r.logger.Infow("Reconciled mappings",
		logger.FieldRelation, rel.Name,
		"parents", len(parentIDs),
		logger.FieldCount, len(out),
	)
	return out, nil
}

// List returns the persisted join rows of rel for parentIDs, with label names.
func (r *Reconciler) List(ctx context.Context, rel Relation, parentIDs []int64) (map[int64][]string, error) {
	if len(parentIDs) == 0 {
		return map[int64][]string{}, nil
	}
	rows, err := r.exec.Execute(ctx, rel.List, store.Params{"manga_ids": parentIDs})
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", rel.Name)
	}
	out := make(map[int64][]string, len(parentIDs))
	for _, row := range rows {
		id := row.Int64("manga_id")
		out[id] = append(out[id], row.String("label_name"))
	}
	return out, nil
}
