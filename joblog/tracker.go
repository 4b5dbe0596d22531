// Package joblog tracks producer batches in scraper_logs: which job ids a
// service has logged and which of them a sync run has processed.
package joblog

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/jobid"
	"github.com/teranos/mangasync/logger"
	"github.com/teranos/mangasync/store"
)

// DefaultListLimit caps List when limit <= 0.
const DefaultListLimit = 50

// Batch is one logged producer run.
type Batch struct {
	Service     string     `json:"service"`
	JobID       string     `json:"job_id"`
	Name        string     `json:"name"`
	JobAt       time.Time  `json:"job_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Pending reports whether no sync run has processed the batch yet.
func (b Batch) Pending() bool { return b.ProcessedAt == nil }

// Tracker reads and writes the job log.
type Tracker struct {
	exec   store.Executor
	ids    *jobid.Generator
	logger *zap.SugaredLogger
}

// NewTracker returns a Tracker over exec. ids parses job ids into
// timestamps; nil uses the default generator.
func NewTracker(exec store.Executor, ids *jobid.Generator, log *zap.SugaredLogger) *Tracker {
	return &Tracker{exec: exec, ids: ids, logger: logger.OrNop(log)}
}

// LoadLog registers a producer batch. Logging the same (service, jobID)
// again refreshes its name and time and keeps any processed mark.
func (t *Tracker) LoadLog(ctx context.Context, service, name, jobID string) error {
	jobAt, err := t.ids.Parse(jobID)
	if err != nil {
		return errors.Wrapf(err, "log %s batch", service)
	}
	_, err = t.exec.Execute(ctx, "load_scraper_logs", store.Params{
		"job_service": service,
		"job_name":    name,
		"job_id":      jobID,
		"job_at":      jobAt,
	})
	if err != nil {
		return errors.Wrapf(err, "log %s batch %s", service, jobID)
	}
	t.logger.Infow("Logged producer batch",
		logger.FieldService, service,
		logger.FieldJobID, jobID,
	)
	return nil
}

// FetchPending returns the unprocessed job ids of service, ascending.
func (t *Tracker) FetchPending(ctx context.Context, service string) ([]string, error) {
	rows, err := t.exec.Execute(ctx, "fetch_new_job_id", store.Params{"job_service": service})
	if err != nil {
		return nil, errors.Wrapf(err, "fetch pending %s batches", service)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.String("job_id"))
	}
	t.logger.Debugw("Fetched pending batches",
		logger.FieldService, service,
		logger.FieldCount, len(ids),
	)
	return ids, nil
}

// MarkProcessed stamps jobIDs of service with processedAt. Call it only
// once every write derived from those batches has succeeded. Ids that were
// never logged are reported at WARN and otherwise ignored.
func (t *Tracker) MarkProcessed(ctx context.Context, service string, jobIDs []string, processedAt time.Time) error {
	if len(jobIDs) == 0 {
		return nil
	}
	rows, err := t.exec.Execute(ctx, "update_scraper_logs_processed", store.Params{
		"processed_at": processedAt,
		"job_service":  service,
		"job_ids":      jobIDs,
	})
	if err != nil {
		return errors.Wrapf(err, "mark %d %s batches processed", len(jobIDs), service)
	}

	marked := make(map[string]bool, len(rows))
	for _, r := range rows {
		marked[r.String("job_id")] = true
	}
	var missing []string
	for _, id := range jobIDs {
		if !marked[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		t.logger.Warnw("Job ids not in the job log",
			logger.FieldService, service,
			logger.FieldSourceJobID, missing,
		)
	}
	t.logger.Infow("Marked batches processed",
		logger.FieldService, service,
		logger.FieldCount, len(marked),
	)
	return nil
}

// List returns the most recent batches, newest first. An empty service
// lists every service.
func (t *Tracker) List(ctx context.Context, service string, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := t.exec.Execute(ctx, "list_scraper_logs", store.Params{"job_service": service, "limit": limit})
	if err != nil {
		return nil, errors.Wrap(err, "list job log")
	}
	out := make([]Batch, 0, len(rows))
	for _, r := range rows {
		b := Batch{
			Service: r.String("job_service"),
			JobID:   r.String("job_id"),
			Name:    r.String("job_name"),
		}
		b.JobAt, _ = r.Time("job_at")
		if ts, ok := r.Time("processed_at"); ok {
			b.ProcessedAt = &ts
		}
		out = append(out, b)
	}
	return out, nil
}
