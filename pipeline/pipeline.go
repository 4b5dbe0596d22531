// Package pipeline wires the sync engine into runnable flows: the two
// producer flows that scrape into the raw tables and the two sync flows
// that reconcile raw batches into the catalogue.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/mangasync/am"
	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/internal/httpclient"
	"github.com/teranos/mangasync/jobid"
	"github.com/teranos/mangasync/logger"
	"github.com/teranos/mangasync/scrape"
	"github.com/teranos/mangasync/store"
	"github.com/teranos/mangasync/version"
)

// Flow names as recorded in sync_runs.
const (
	FlowScrapeOverviews = "scrape-overviews"
	FlowScrapeChapters  = "scrape-chapters"
	FlowSyncOverviews   = "sync-overviews"
	FlowSyncChapters    = "sync-chapters"
)

// Clock supplies the scheduled time of a flow.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Result describes a finished flow.
type Result struct {
	RunID        string
	Flow         string
	JobID        string
	SourceJobIDs []string
	Status       Status
	Counts       map[string]int
}

// Summary renders the result for an Emitter.
func (r *Result) Summary() map[string]interface{} {
	out := map[string]interface{}{
		"flow":   r.Flow,
		"job_id": r.JobID,
		"status": string(r.Status),
	}
	if len(r.SourceJobIDs) > 0 {
		out["source_job_ids"] = r.SourceJobIDs
	}
	for k, v := range r.Counts {
		out[k] = v
	}
	return out
}

// Pipeline runs flows against one executor.
type Pipeline struct {
	exec    store.Executor
	cfg     *am.Config
	ids     *jobid.Generator
	clock   Clock
	emitter Emitter
	logger  *zap.SugaredLogger
	source  scrape.Source
	runs    *RunStore
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock that schedules flows.
func WithClock(c Clock) Option { return func(p *Pipeline) { p.clock = c } }

// WithEmitter sets the progress emitter.
func WithEmitter(e Emitter) Option { return func(p *Pipeline) { p.emitter = e } }

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option { return func(p *Pipeline) { p.logger = l } }

// WithSource sets the scrape source instead of building one from config.
func WithSource(s scrape.Source) Option { return func(p *Pipeline) { p.source = s } }

// New validates cfg and returns a Pipeline over exec. A nil cfg means
// the built-in defaults.
func New(exec store.Executor, cfg *am.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = am.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	ids, err := jobid.NewGenerator(loc)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		exec:  exec,
		cfg:   cfg,
		ids:   ids,
		clock: SystemClock,
		runs:  NewRunStore(exec),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logger.OrNop(p.logger)
	if p.emitter == nil {
		p.emitter = NewLogEmitter(p.logger)
	}
	return p, nil
}

// Runs returns the run history store.
func (p *Pipeline) Runs() *RunStore { return p.runs }

// JobIDs returns the generator that renders job ids in the configured zone.
func (p *Pipeline) JobIDs() *jobid.Generator { return p.ids }

// NewSource builds the scrape source cfg selects.
func NewSource(cfg *am.Config) (scrape.Source, error) {
	switch cfg.Scrape.Source {
	case "", am.SourceMirror:
		return scrape.NewMirrorSource(cfg.Scrape.MirrorDir), nil
	case am.SourceHTTP:
		client := httpclient.New(httpclient.Options{
			Timeout:      cfg.GetScrapeTimeout(),
			AllowPrivate: cfg.Scrape.AllowPrivate,
			UserAgent:    version.Get().UserAgent(),
		})
		return scrape.NewHTTPSource(cfg.Scrape.BaseURL, client)
	default:
		return nil, errors.Newf("unknown scrape.source %q", cfg.Scrape.Source)
	}
}

func (p *Pipeline) scrapeSource() (scrape.Source, error) {
	if p.source == nil {
		src, err := NewSource(p.cfg)
		if err != nil {
			return nil, err
		}
		p.source = src
	}
	return p.source, nil
}

// run records a flow in sync_runs around fn. fn may set res.Status to
// StatusSkipped; any error marks the run failed. Recording problems are
// logged and never replace the flow's own error.
func (p *Pipeline) run(ctx context.Context, flow string, fn func(ctx context.Context, res *Result) error) (*Result, error) {
	started := p.clock.Now()
	res := &Result{
		Flow:   flow,
		JobID:  p.ids.Generate(started),
		Status: StatusRunning,
		Counts: map[string]int{},
	}

	run, err := p.runs.Start(ctx, flow, res.JobID, started)
	if err != nil {
		p.logger.Warnw("Could not record run start", logger.FieldFlow, flow, logger.FieldError, err)
	} else {
		res.RunID = run.ID
	}

	ctx = logger.WithJobID(ctx, res.JobID)
	ctx = logger.WithRunID(ctx, res.RunID)
	ctx = logger.WithComponent(ctx, flow)
	log := logger.FromContext(ctx, p.logger)
	p.emitter.EmitStage(flow, "job "+res.JobID)

	flowErr := fn(ctx, res)
	switch {
	case flowErr != nil:
		res.Status = StatusFailed
	case res.Status != StatusSkipped:
		res.Status = StatusCompleted
	}

	if run != nil {
		completed := p.clock.Now()
		duration := completed.Sub(started).Milliseconds()
		if duration < 0 {
			duration = 0
		}
		run.Status = res.Status
		run.SourceJobIDs = append([]string{}, res.SourceJobIDs...)
		run.Summary = res.Counts
		run.CompletedAt = &completed
		run.DurationMS = &duration
		if flowErr != nil {
			run.Error = flowErr.Error()
		}
		// a cancelled flow still gets its final state recorded
		if err := p.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
			log.Warnw("Could not record run end", logger.FieldError, err)
		}
	}

	if flowErr != nil {
		p.emitter.EmitError(flow, flowErr)
		log.Errorw("Flow failed", logger.FieldStatus, res.Status, logger.FieldError, flowErr)
		return res, flowErr
	}
	p.emitter.EmitComplete(res.Summary())
	log.Infow("Flow finished", logger.FieldStatus, res.Status)
	return res, nil
}
