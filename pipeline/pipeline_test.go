package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/mangasync/am"
	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/ingest"
	qtest "github.com/teranos/mangasync/internal/testing"
	"github.com/teranos/mangasync/joblog"
	"github.com/teranos/mangasync/scrape"
	"github.com/teranos/mangasync/store"
)

// fakeSource serves canned overviews and chapters.
type fakeSource struct {
	mu        sync.Mutex
	overviews map[string]scrape.Overview
	chapters  map[string][]scrape.Chapter
	fail      map[string]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		overviews: map[string]scrape.Overview{},
		chapters:  map[string][]scrape.Chapter{},
		fail:      map[string]error{},
	}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchOverview(_ context.Context, slug string) (scrape.Overview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[slug]; err != nil {
		return scrape.Overview{}, err
	}
	return f.overviews[slug], nil
}

func (f *fakeSource) FetchChapters(_ context.Context, slug string) ([]scrape.Chapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[slug]; err != nil {
		return nil, err
	}
	return f.chapters[slug], nil
}

// stepClock advances a minute on every reading so each flow gets its own job id.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type harness struct {
	exec     *store.SQLite
	pipeline *Pipeline
	source   *fakeSource
	cfg      *am.Config
}

func newHarness(t *testing.T, mutate func(*am.Config)) *harness {
	t.Helper()
	exec, err := store.NewSQLite(qtest.CreateTestDB(t), nil)
	require.NoError(t, err)

	cfg := am.Default()
	cfg.Scrape.RequestsPerMinute = 0
	cfg.Scrape.Slugs = []string{"x1", "x2"}
	if mutate != nil {
		mutate(cfg)
	}

	src := newFakeSource()
	src.overviews["x1"] = scrape.Overview{Code: "x1", Title: "First", Authors: []string{"B", "A", "A"}, Genres: []string{"Action"}}
	src.overviews["x2"] = scrape.Overview{Code: "x2", Title: "Second", Authors: []string{"C"}, Genres: []string{"Drama", "Action"}, Completed: true}
	src.chapters["x1"] = []scrape.Chapter{
		{Code: "x1", Title: "Chapter 1", URL: "/x1/1", UpdatedAt: "2024-01-01 10:00:00"},
		{Code: "x1", Title: "Chapter 2", URL: "/x1/2", UpdatedAt: "2024-01-02 10:00:00"},
	}
	src.chapters["x2"] = []scrape.Chapter{
		{Code: "x2", Title: "Chapter 1", URL: "/x2/1", UpdatedAt: "2024-01-03 10:00:00"},
	}

	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	p, err := New(exec, cfg,
		WithSource(src),
		WithClock(clock),
		WithLogger(zaptest.NewLogger(t).Sugar()),
	)
	require.NoError(t, err)
	return &harness{exec: exec, pipeline: p, source: src, cfg: cfg}
}

func (h *harness) count(t *testing.T, table, where string, args ...any) int {
	t.Helper()
	return qtest.CountRows(t, h.exec.DB(), table, where, args...)
}

// labels returns manga code -> sorted label names of a join table.
func (h *harness) labels(t *testing.T, join, labelTable, labelCol string) map[string][]string {
	t.Helper()
	rows, err := h.exec.DB().Query(`SELECT m.code, l.name FROM ` + join + ` j
		JOIN mangas m ON m.id = j.manga_id
		JOIN ` + labelTable + ` l ON l.id = j.` + labelCol + `
		ORDER BY m.code, l.name`)
	require.NoError(t, err)
	defer rows.Close()
	out := map[string][]string{}
	for rows.Next() {
		var code, name string
		require.NoError(t, rows.Scan(&code, &name))
		out[code] = append(out[code], name)
	}
	require.NoError(t, rows.Err())
	return out
}

func (h *harness) pending(t *testing.T, service string) []string {
	t.Helper()
	ids, err := joblog.NewTracker(h.exec, nil, nil).FetchPending(context.Background(), service)
	require.NoError(t, err)
	return ids
}

func TestScrapeThenSyncOverviews(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	scraped, err := h.pipeline.ScrapeOverviews(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, scraped.Status)
	assert.Equal(t, 2, scraped.Counts["loaded"])
	assert.Equal(t, 2, h.count(t, "raw_mangas", "job_id = ?", scraped.JobID))
	assert.Equal(t, 1, h.count(t, "raw_mangas", "author_list = ?", "A;B"), "labels are sorted and joined")
	assert.Equal(t, []string{scraped.JobID}, h.pending(t, am.DefaultOverviewsService))

	synced, err := h.pipeline.SyncOverviews(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, synced.Status)
	assert.Equal(t, []string{scraped.JobID}, synced.SourceJobIDs)
	assert.Equal(t, 2, synced.Counts["mangas"])
	assert.Equal(t, 3, synced.Counts["authors"])
	assert.Equal(t, 3, synced.Counts["manga_authors"])
	assert.Equal(t, 3, synced.Counts["manga_genres"])

	assert.Equal(t, map[string][]string{"x1": {"A", "B"}, "x2": {"C"}}, h.labels(t, "manga_authors", "authors", "author_id"))
	assert.Equal(t, map[string][]string{"x1": {"Action"}, "x2": {"Action", "Drama"}}, h.labels(t, "manga_genres", "genres", "genre_id"))
	assert.Equal(t, 1, h.count(t, "mangas", "code = 'x2' AND is_completed = 1"))
	assert.Equal(t, 2, h.count(t, "mangas", "job_id = ?", synced.JobID), "catalogue rows carry the sync job id")
	assert.Empty(t, h.pending(t, am.DefaultOverviewsService))
	assert.Equal(t, 1, h.count(t, "scraper_logs", "job_id = ? AND processed_at IS NOT NULL", scraped.JobID))
}

func TestSyncOverviews_ReplayIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	scraped, err := h.pipeline.ScrapeOverviews(ctx)
	require.NoError(t, err)

	_, err = h.pipeline.SyncOverviews(ctx, []string{scraped.JobID})
	require.NoError(t, err)
	authors := h.labels(t, "manga_authors", "authors", "author_id")
	genres := h.labels(t, "manga_genres", "genres", "genre_id")
	counts := map[string]int{}
	for _, table := range []string{"mangas", "authors", "genres", "manga_authors", "manga_genres"} {
		counts[table] = h.count(t, table, "")
	}

	// the crash-and-rerun case: same job ids again
	_, err = h.pipeline.SyncOverviews(ctx, []string{scraped.JobID, scraped.JobID})
	require.NoError(t, err)
	assert.Equal(t, authors, h.labels(t, "manga_authors", "authors", "author_id"))
	assert.Equal(t, genres, h.labels(t, "manga_genres", "genres", "genre_id"))
	for table, n := range counts {
		assert.Equal(t, n, h.count(t, table, ""), table)
	}
}

func TestSyncOverviews_LatestBatchWins(t *testing.T) {
	h := newHarness(t, func(c *am.Config) { c.Sync.AtomicReconcile = true })
	ctx := context.Background()

	first, err := h.pipeline.ScrapeOverviews(ctx)
	require.NoError(t, err)

	h.source.overviews["x1"] = scrape.Overview{Code: "x1", Title: "First (renamed)", Authors: []string{"D"}, Completed: true}
	second, err := h.pipeline.ScrapeOverviews(ctx)
	require.NoError(t, err)
	require.Greater(t, second.JobID, first.JobID)

	// both batches in one run, newest listed first to show order does not matter
	res, err := h.pipeline.SyncOverviews(ctx, []string{second.JobID, first.JobID})
	require.NoError(t, err)
	assert.Equal(t, []string{first.JobID, second.JobID}, res.SourceJobIDs)
	assert.Equal(t, 4, res.Counts["raw"])
	assert.Equal(t, 2, res.Counts["deduped"])
	assert.Equal(t, 2, res.Counts["dropped"])

	authors := h.labels(t, "manga_authors", "authors", "author_id")
	assert.Equal(t, []string{"D"}, authors["x1"])
	assert.Equal(t, []string{"C"}, authors["x2"])
	_, hasGenres := h.labels(t, "manga_genres", "genres", "genre_id")["x1"]
	assert.False(t, hasGenres, "an emptied label list clears the mapping")
	assert.Equal(t, 1, h.count(t, "mangas", "title = ? AND is_completed = 1", "First (renamed)"))
}

func TestSyncChapters_UnresolvedThenResolved(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.pipeline.ScrapeChapters(ctx)
	require.NoError(t, err)
	res, err := h.pipeline.SyncChapters(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Counts["chapters"])
	assert.Equal(t, 3, res.Counts["unresolved"])
	assert.Equal(t, 3, h.count(t, "manga_chapters", "manga_id IS NULL"))

	_, err = h.pipeline.ScrapeOverviews(ctx)
	require.NoError(t, err)
	_, err = h.pipeline.SyncOverviews(ctx, nil)
	require.NoError(t, err)
	// existing unresolved rows are not re-linked by an overview sync
	assert.Equal(t, 3, h.count(t, "manga_chapters", "manga_id IS NULL"))

	_, err = h.pipeline.ScrapeChapters(ctx)
	require.NoError(t, err)
	res, err = h.pipeline.SyncChapters(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Counts["resolved"])
	assert.Equal(t, 0, h.count(t, "manga_chapters", "manga_id IS NULL"))
	assert.Equal(t, 3, h.count(t, "manga_chapters", ""))
	assert.Empty(t, h.pending(t, am.DefaultChaptersService))
}

func TestSyncChapters_LatestJobWins(t *testing.T) {
	h := newHarness(t, func(c *am.Config) { c.Scrape.Slugs = []string{"x1"} })
	ctx := context.Background()

	first, err := h.pipeline.ScrapeChapters(ctx)
	require.NoError(t, err)
	h.source.chapters["x1"] = []scrape.Chapter{{Code: "x1", Title: "Chapter 1 (v2)", URL: "/x1/1", UpdatedAt: "2024-02-01 10:00:00"}}
	second, err := h.pipeline.ScrapeChapters(ctx)
	require.NoError(t, err)

	res, err := h.pipeline.SyncChapters(ctx, []string{first.JobID, second.JobID})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Counts["deduped"])
	assert.Equal(t, 1, h.count(t, "manga_chapters", "chapter_url = '/x1/1' AND chapter_title = ?", "Chapter 1 (v2)"))
}

func TestSyncChapters_UnknownUpdateTimeIsNull(t *testing.T) {
	h := newHarness(t, func(c *am.Config) { c.Scrape.Slugs = []string{"x1"} })
	ctx := context.Background()
	h.source.chapters["x1"] = []scrape.Chapter{
		{Code: "x1", Title: "Chapter 1", URL: "/x1/1", UpdatedAt: ""},
		{Code: "x1", Title: "Chapter 2", URL: "/x1/2", UpdatedAt: "2024-01-02 10:00:00"},
	}

	_, err := h.pipeline.ScrapeChapters(ctx)
	require.NoError(t, err)
	res, err := h.pipeline.SyncChapters(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 2, res.Counts["chapters"])
	assert.Equal(t, 1, h.count(t, "manga_chapters", "chapter_url = '/x1/1' AND chapter_updated_at IS NULL"))
	assert.Equal(t, 1, h.count(t, "manga_chapters", "chapter_url = '/x1/2' AND chapter_updated_at IS NOT NULL"))
}

func TestSync_NothingPendingIsSkipped(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	for _, flow := range []func(context.Context, []string) (*Result, error){h.pipeline.SyncOverviews, h.pipeline.SyncChapters} {
		res, err := flow(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusSkipped, res.Status)
	}
	runs, err := h.pipeline.Runs().List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, StatusSkipped, runs[0].Status)
}

func TestSync_BatchWithoutRawRowsStaysPending(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, joblog.NewTracker(h.exec, nil, nil).LoadLog(ctx, am.DefaultOverviewsService, am.OverviewsJobName, "20240101000000"))

	res, err := h.pipeline.SyncOverviews(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, []string{"20240101000000"}, h.pending(t, am.DefaultOverviewsService))
}

func TestSyncOverviews_InvalidRows(t *testing.T) {
	load := func(t *testing.T, h *harness) string {
		t.Helper()
		jobID := "20240101000000"
		_, err := ingest.NewLoader(h.exec).LoadOverviews(context.Background(), jobID, []ingest.RawManga{
			{Code: "x1", Title: "Fine", AuthorList: "A", IsCompleted: "FALSE"},
			{Code: "x2", Title: "", AuthorList: "B", IsCompleted: "FALSE"},
		})
		require.NoError(t, err)
		require.NoError(t, joblog.NewTracker(h.exec, nil, nil).LoadLog(context.Background(), am.DefaultOverviewsService, am.OverviewsJobName, jobID))
		return jobID
	}

	t.Run("abort by default", func(t *testing.T) {
		h := newHarness(t, nil)
		jobID := load(t, h)

		res, err := h.pipeline.SyncOverviews(context.Background(), nil)
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
		assert.Equal(t, StatusFailed, res.Status)
		assert.Equal(t, 1, res.Counts["invalid"])
		assert.Equal(t, 0, h.count(t, "mangas", ""))
		assert.Equal(t, []string{jobID}, h.pending(t, am.DefaultOverviewsService))

		run, err := h.pipeline.Runs().Get(context.Background(), res.RunID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, run.Status)
		assert.Contains(t, run.Error, "invalid raw overview")
	})

	t.Run("skip and count", func(t *testing.T) {
		h := newHarness(t, func(c *am.Config) { c.Sync.SkipInvalid = true })
		load(t, h)

		res, err := h.pipeline.SyncOverviews(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, res.Status)
		assert.Equal(t, 1, res.Counts["invalid"])
		assert.Equal(t, 1, res.Counts["mangas"])
		assert.Empty(t, h.pending(t, am.DefaultOverviewsService))
	})
}

func TestSync_RejectsMalformedJobID(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.pipeline.SyncChapters(context.Background(), []string{"not-a-job"})
	require.Error(t, err)
	assert.True(t, errors.IsFormatError(err))
}

func TestScrape_SourceErrorWritesNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.source.fail["x2"] = errors.New("upstream 503")

	res, err := h.pipeline.ScrapeOverviews(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x2")
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, 0, h.count(t, "raw_mangas", ""))
	assert.Equal(t, 0, h.count(t, "scraper_logs", ""))
}

func TestScrape_NoSlugsIsSkipped(t *testing.T) {
	h := newHarness(t, func(c *am.Config) { c.Scrape.Slugs = nil })

	res, err := h.pipeline.ScrapeChapters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, 0, h.count(t, "scraper_logs", ""))
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := am.Default()
	cfg.Scrape.Workers = 0
	_, err := New(nil, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape.workers")
}

func TestNewSource(t *testing.T) {
	cfg := am.Default()
	src, err := NewSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mirror", src.Name())

	cfg.Scrape.Source = am.SourceHTTP
	cfg.Scrape.BaseURL = "https://example.com/api"
	src, err = NewSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "http", src.Name())

	cfg.Scrape.Source = "carrier-pigeon"
	_, err = NewSource(cfg)
	assert.Error(t, err)
}
