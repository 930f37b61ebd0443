package tasks

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

// DefaultInterval is the time between scheduled update passes.
const DefaultInterval = time.Hour

// Job is the work a [Scheduler] runs on every tick or trigger.
type Job func(ctx context.Context) error

// Scheduler runs a job periodically and on demand from a single worker goroutine.
//
// Scheduled ticks and manual triggers share one buffered channel, so runs never overlap.
// Triggers that arrive while a run is pending are coalesced into it.
// Jobs submitted with [Scheduler.Do] run on the same worker.
type Scheduler struct {
	interval   time.Duration
	job        Job
	runOnStart bool
	trigger    chan struct{}
	requests   chan request
	stopped    chan struct{}
	stopOnce   sync.Once
	logger     *log.Logger
}

type request struct {
	ctx  context.Context
	job  Job
	done chan error
}

// SchedulerOpts configures a [Scheduler].
type SchedulerOpts struct {
	Interval   time.Duration // Time between runs (default: 1h)
	RunOnStart bool          // Run once as soon as Run is called
	Logger     *log.Logger
}

// NewScheduler creates a scheduler for job.
func NewScheduler(job Job, opts SchedulerOpts) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &Scheduler{
		interval:   opts.Interval,
		job:        job,
		runOnStart: opts.RunOnStart,
		trigger:    make(chan struct{}, 1),
		requests:   make(chan request),
		stopped:    make(chan struct{}),
		logger:     logger,
	}
}

// Interval returns the time between scheduled runs.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Trigger requests a run as soon as the worker is free. It never blocks.
//
// Reports false when a run was already pending and the request was coalesced.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Do runs job on the worker goroutine and waits for it to finish.
//
// The job sees the caller's ctx. Do returns [shared.ErrSchedulerStopped] once Run has returned.
func (s *Scheduler) Do(ctx context.Context, job Job) error {
	req := request{ctx: ctx, job: job, done: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.stopped:
		return shared.ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-req.done
}

// Run executes the job on every tick and trigger until ctx is done.
//
// Job errors are logged and do not stop the scheduler. Run returns ctx's error.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.stopOnce.Do(func() { close(s.stopped) })

	if s.runOnStart {
		s.Trigger()
	}

	s.logger.Info("scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Trigger()
		case <-s.trigger:
			s.runJob(ctx)
		case req := <-s.requests:
			req.done <- req.job(req.ctx)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	started := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err, "duration", time.Since(started))
		return
	}
	s.logger.Debug("scheduled run finished", "duration", time.Since(started))
}

// SerialEngine runs update passes through a [Scheduler] so they never overlap with scheduled ones.
//
// Bulk downloads do not touch the snapshot and go straight to the wrapped engine.
type SerialEngine struct {
	engine    SyncEngine
	scheduler *Scheduler
}

var _ SyncEngine = (*SerialEngine)(nil)

// NewSerialEngine wraps engine so its update passes share the scheduler's worker.
func NewSerialEngine(engine SyncEngine, scheduler *Scheduler) *SerialEngine {
	return &SerialEngine{engine: engine, scheduler: scheduler}
}

func (e *SerialEngine) Update(ctx context.Context, progress chan<- ProgressUpdate, opts UpdateOpts) (*UpdateResult, error) {
	var result *UpdateResult
	err := e.scheduler.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = e.engine.Update(ctx, progress, opts)
		return err
	})
	return result, err
}

func (e *SerialEngine) BulkDownload(ctx context.Context, progress chan<- ProgressUpdate, playlists []models.Playlist, opts BulkDownloadOpts) (*BulkDownloadResult, error) {
	return e.engine.BulkDownload(ctx, progress, playlists, opts)
}
