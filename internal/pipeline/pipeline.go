package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LJTian/DailyBriefing/internal/briefing"
	"github.com/LJTian/DailyBriefing/internal/collector"
	"github.com/LJTian/DailyBriefing/internal/delivery"
	"github.com/LJTian/DailyBriefing/internal/logging"
	"github.com/LJTian/DailyBriefing/internal/processor"
)

var (
	// ErrNoEntries aborts a run before the model is called.
	ErrNoEntries = errors.New("no entries fetched")
	ErrGenerate  = errors.New("generate briefing")
	ErrDeliver   = errors.New("deliver briefing")
)

// FeedError records a feed that was skipped during a run.
type FeedError struct {
	Feed  string `json:"feed"`
	Error string `json:"error"`
}

// Result describes one run, successful or not.
type Result struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Buckets    processor.Buckets
	FeedErrors []FeedError
	Provider   string
	Model      string
	// Briefing is the raw model output; Message is what was sent.
	Briefing string
	Message  string
}

// Recorder persists finished runs. Failures are logged and never change a run's outcome.
type Recorder interface {
	SaveRun(ctx context.Context, res *Result, runErr error) error
}

type Pipeline struct {
	fetchers []collector.Fetcher
	sorter   *processor.Sorter
	provider briefing.Provider
	sender   delivery.Sender
	recorder Recorder
	now      func() time.Time
	loc      *time.Location
}

type Option func(*Pipeline)

func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithSorter replaces the default label-only sorter.
func WithSorter(s *processor.Sorter) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sorter = s
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithLocation sets the timezone used for the briefing date.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) {
		if loc != nil {
			p.loc = loc
		}
	}
}

func New(fetchers []collector.Fetcher, provider briefing.Provider, sender delivery.Sender, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetchers: fetchers,
		sorter:   processor.NewSorter(),
		provider: provider,
		sender:   sender,
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes fetch → sort → generate → deliver once.
func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
	log := logging.WithPrefix("pipeline")
	res = &Result{
		StartedAt: p.now(),
		Provider:  p.provider.Name(),
		Model:     p.provider.Model(),
	}
	defer func() {
		res.FinishedAt = p.now()
		p.record(ctx, res, err)
	}()

	log.Info("run started", "feeds", len(p.fetchers), "provider", res.Provider)

	var entries []collector.Entry
	entries, res.FeedErrors = p.fetchAll(ctx)
	res.Buckets = p.sorter.Sort(entries)
	log.Info("entries sorted",
		"general", len(res.Buckets.General),
		"ai", len(res.Buckets.AI),
		"failed_feeds", len(res.FeedErrors))

	if res.Buckets.Len() == 0 {
		return res, fmt.Errorf("%w: %d of %d feeds failed", ErrNoEntries, len(res.FeedErrors), len(p.fetchers))
	}

	date := res.StartedAt.In(p.loc)
	prompt := briefing.BuildPrompt(date, res.Buckets)

	text, err := p.provider.Generate(ctx, prompt)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrGenerate, err)
	}
	res.Briefing = text
	res.Message = briefing.Greeting(date) + "\n" + text
	log.Info("briefing generated", "model", res.Model, "chars", len(text))

	if err := p.sender.Send(ctx, res.Message); err != nil {
		return res, fmt.Errorf("%w: %w", ErrDeliver, err)
	}

	log.Info("briefing delivered", "chars", len(res.Message))
	return res, nil
}

// fetchAll runs every fetcher in order. A failing feed is logged and skipped.
func (p *Pipeline) fetchAll(ctx context.Context) ([]collector.Entry, []FeedError) {
	log := logging.WithPrefix("fetch")
	var (
		entries []collector.Entry
		failed  []FeedError
	)

	for _, f := range p.fetchers {
		name := f.Name()
		items, err := f.Fetch(ctx)
		if err != nil {
			log.Warn("feed skipped", "feed", name, "err", err)
			failed = append(failed, FeedError{Feed: name, Error: err.Error()})
			continue
		}
		if len(items) == 0 {
			log.Info("feed returned 0 items", "feed", name)
			continue
		}
		log.Info("feed done", "feed", name, "label", f.Label(), "items", len(items))
		entries = append(entries, items...)
	}

	return entries, failed
}

func (p *Pipeline) record(ctx context.Context, res *Result, runErr error) {
	if p.recorder == nil {
		return
	}
	// the run context may already be expired; the archive write gets its own deadline
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.recorder.SaveRun(rctx, res, runErr); err != nil {
		logging.Warn("archive run failed", "err", err)
	}
}
