package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/mangasync/am"
	"github.com/teranos/mangasync/errors"
	qtest "github.com/teranos/mangasync/internal/testing"
	"github.com/teranos/mangasync/store"
)

func newRunStore(t *testing.T) (*RunStore, *store.SQLite) {
	t.Helper()
	exec, err := store.NewSQLite(qtest.CreateTestDB(t), nil)
	require.NoError(t, err)
	return NewRunStore(exec), exec
}

func TestRunStore_StartFinishGet(t *testing.T) {
	runs, _ := newRunStore(t)
	ctx := context.Background()
	started := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC)

	run, err := runs.Start(ctx, FlowSyncOverviews, "20240102100000", started)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	got, err := runs.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Empty(t, got.SourceJobIDs)
	assert.Nil(t, got.CompletedAt)

	completed := started.Add(1500 * time.Millisecond)
	duration := int64(1500)
	run.Status = StatusCompleted
	run.SourceJobIDs = []string{"20240101000000"}
	run.Summary = map[string]int{"mangas": 2}
	run.CompletedAt = &completed
	run.DurationMS = &duration
	require.NoError(t, runs.Finish(ctx, run))

	got, err = runs.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, []string{"20240101000000"}, got.SourceJobIDs)
	assert.Equal(t, map[string]int{"mangas": 2}, got.Summary)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, completed.Equal(*got.CompletedAt))
	require.NotNil(t, got.DurationMS)
	assert.EqualValues(t, 1500, *got.DurationMS)
	assert.Empty(t, got.Error)
}

func TestRunStore_GetUnknown(t *testing.T) {
	runs, _ := newRunStore(t)

	_, err := runs.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Contains(t, errors.FlattenHints(err), "runs ls")
}

func TestRunStore_ListFiltersByFlow(t *testing.T) {
	runs, _ := newRunStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	for i, flow := range []string{FlowSyncOverviews, FlowSyncChapters, FlowSyncOverviews} {
		_, err := runs.Start(ctx, flow, "20240102000000", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	all, err := runs.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.True(t, all[0].StartedAt.After(all[1].StartedAt), "newest first")

	overviews, err := runs.List(ctx, FlowSyncOverviews, 1)
	require.NoError(t, err)
	require.Len(t, overviews, 1)
	assert.Equal(t, FlowSyncOverviews, overviews[0].Flow)
}

func TestRun_RecordsStagesAndFailure(t *testing.T) {
	exec, err := store.NewSQLite(qtest.CreateTestDB(t), nil)
	require.NoError(t, err)
	rec := &recordingEmitter{}
	p, err := New(exec, am.Default(), WithEmitter(rec), WithClock(&stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, err)

	res, err := p.run(context.Background(), "custom", func(ctx context.Context, res *Result) error {
		res.Counts["seen"] = 1
		return errors.New("stopped")
	})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, []string{"custom"}, rec.stages)
	assert.Equal(t, []string{"custom"}, rec.errors)
	assert.Empty(t, rec.complete)

	run, err := p.Runs().Get(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "stopped", run.Error)
	assert.Equal(t, map[string]int{"seen": 1}, run.Summary)
	require.NotNil(t, run.DurationMS)
	assert.EqualValues(t, time.Minute.Milliseconds(), *run.DurationMS)
}

func TestRun_CompletedEmitsSummary(t *testing.T) {
	exec, err := store.NewSQLite(qtest.CreateTestDB(t), nil)
	require.NoError(t, err)
	rec := &recordingEmitter{}
	p, err := New(exec, nil, WithEmitter(rec))
	require.NoError(t, err)

	res, err := p.run(context.Background(), "custom", func(ctx context.Context, res *Result) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	require.Len(t, rec.complete, 1)
	assert.Equal(t, "completed", rec.complete[0]["status"])
	assert.Equal(t, res.JobID, rec.complete[0]["job_id"])
}
