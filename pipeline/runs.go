package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/store"
)

// Status of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Run is one row of sync_runs.
type Run struct {
	ID           string         `json:"id"`
	Flow         string         `json:"flow"`
	JobID        string         `json:"job_id"`
	SourceJobIDs []string       `json:"source_job_ids"`
	Status       Status         `json:"status"`
	Summary      map[string]int `json:"summary,omitempty"`
	Error        string         `json:"error,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	DurationMS   *int64         `json:"duration_ms,omitempty"`
}

// RunStore persists flow runs.
type RunStore struct {
	exec store.Executor
}

// NewRunStore returns a RunStore over exec.
func NewRunStore(exec store.Executor) *RunStore {
	return &RunStore{exec: exec}
}

// Start records a running run and returns it.
func (s *RunStore) Start(ctx context.Context, flow, jobID string, startedAt time.Time) (*Run, error) {
	run := &Run{
		ID:           uuid.NewString(),
		Flow:         flow,
		JobID:        jobID,
		SourceJobIDs: []string{},
		Status:       StatusRunning,
		StartedAt:    startedAt,
	}
	_, err := s.exec.Execute(ctx, "insert_sync_run", store.Params{
		"id":             run.ID,
		"flow":           run.Flow,
		"job_id":         run.JobID,
		"source_job_ids": run.SourceJobIDs,
		"status":         string(run.Status),
		"started_at":     run.StartedAt,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "record %s run", flow)
	}
	return run, nil
}

// Finish stores the final state of run.
func (s *RunStore) Finish(ctx context.Context, run *Run) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return errors.Wrap(err, "encode run summary")
	}
	var errMsg, completedAt, duration any
	if run.Error != "" {
		errMsg = run.Error
	}
	if run.CompletedAt != nil {
		completedAt = *run.CompletedAt
	}
	if run.DurationMS != nil {
		duration = *run.DurationMS
	}
	_, err = s.exec.Execute(ctx, "finish_sync_run", store.Params{
		"id":             run.ID,
		"status":         string(run.Status),
		"source_job_ids": run.SourceJobIDs,
		"summary":        string(summary),
		"error_message":  errMsg,
		"completed_at":   completedAt,
		"duration_ms":    duration,
	})
	return errors.Wrapf(err, "finish run %s", run.ID)
}

// List returns recent runs, newest first. An empty flow lists all flows.
func (s *RunStore) List(ctx context.Context, flow string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.exec.Execute(ctx, "list_sync_runs", store.Params{"flow": flow, "limit": limit})
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	out := make([]Run, 0, len(rows))
	for _, r := range rows {
		run, err := runFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

// Get returns the run with id.
func (s *RunStore) Get(ctx context.Context, id string) (*Run, error) {
	rows, err := s.exec.Execute(ctx, "get_sync_run", store.Params{"id": id})
	if err != nil {
		return nil, errors.Wrapf(err, "get run %s", id)
	}
	if len(rows) == 0 {
		return nil, errors.WithHint(errors.Newf("run %s not found", id), "list runs with: mangasync runs ls")
	}
	run, err := runFromRow(rows[0])
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func runFromRow(r store.Row) (Run, error) {
	run := Run{
		ID:     r.String("id"),
		Flow:   r.String("flow"),
		JobID:  r.String("job_id"),
		Status: Status(r.String("status")),
		Error:  r.String("error_message"),
	}
	if err := json.Unmarshal([]byte(r.String("source_job_ids")), &run.SourceJobIDs); err != nil {
		return Run{}, errors.Wrapf(err, "run %s source_job_ids", run.ID)
	}
	if s := r.String("summary"); s != "" {
		if err := json.Unmarshal([]byte(s), &run.Summary); err != nil {
			return Run{}, errors.Wrapf(err, "run %s summary", run.ID)
		}
	}
	run.StartedAt, _ = r.Time("started_at")
	if ts, ok := r.Time("completed_at"); ok {
		run.CompletedAt = &ts
	}
	run.DurationMS = r.NullInt64("duration_ms")
	return run, nil
}
