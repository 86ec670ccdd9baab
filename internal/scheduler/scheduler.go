package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/LJTian/DailyBriefing/internal/logging"
	"github.com/LJTian/DailyBriefing/internal/pipeline"
	"github.com/robfig/cron/v3"
)

// ErrBusy is returned when a run is requested while another is still going.
var ErrBusy = errors.New("a briefing run is already in progress")

// Runner is the job the scheduler triggers.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

type Scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
	runner  Runner
	timeout time.Duration

	mu      sync.Mutex
	running bool
	last    time.Time
	lastErr error
}

// New registers runner on a standard 5-field cron spec evaluated in loc.
// timeout bounds a single run; zero means unbounded.
func New(spec string, loc *time.Location, runner Runner, timeout time.Duration) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc))

	s := &Scheduler{
		cron:    c,
		runner:  runner,
		timeout: timeout,
	}

	id, err := c.AddFunc(spec, func() {
		if err := s.RunOnce(); errors.Is(err, ErrBusy) {
			logging.Warn("scheduled run skipped, previous run still in progress")
		}
	})
	if err != nil {
		return nil, err
	}
	s.entryID = id

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logging.Info("scheduler started", "next", s.Next())
}

// RunAfter triggers one run once delay has passed, for a first briefing shortly after
// boot. It goes through Trigger, so a run already in progress wins.
func (s *Scheduler) RunAfter(delay time.Duration) *time.Timer {
	return time.AfterFunc(delay, func() {
		if err := s.Trigger(); errors.Is(err, ErrBusy) {
			logging.Warn("startup run skipped, a run is already in progress")
		}
	})
}

// Stop halts the cron and returns a context that is done once a running job finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next is the next scheduled fire time, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// RunOnce runs the job synchronously. Returns ErrBusy if a run is already active.
func (s *Scheduler) RunOnce() error {
	if !s.acquire() {
		return ErrBusy
	}
	return s.run()
}

// Trigger starts a run in the background. Returns ErrBusy if a run is already active.
func (s *Scheduler) Trigger() error {
	if !s.acquire() {
		return ErrBusy
	}
	go func() { _ = s.run() }()
	return nil
}

// Running reports whether a run is in progress.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastRun returns when the last run finished and its error.
func (s *Scheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) run() error {
	logging.Info("start briefing job...")

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	_, err := s.runner.Run(ctx)
	if err != nil {
		logging.Error("briefing job failed", "err", err)
	} else {
		logging.Info("briefing job done")
	}

	s.mu.Lock()
	s.running = false
	s.last = time.Now()
	s.lastErr = err
	s.mu.Unlock()
	return err
}
