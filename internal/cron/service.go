package cron

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	robfig "github.com/robfig/cron/v3"

	pkgerrors "github.com/angelmondragon/stockwatch-backend/pkg/errors"
	"github.com/angelmondragon/stockwatch-backend/pkg/logger"
	"github.com/angelmondragon/stockwatch-backend/pkg/metrics"
)

const defaultShutdownTimeout = 30 * time.Second

const (
	skipReasonOverlap   = "overlap"
	skipReasonLocked    = "locked"
	skipReasonLockError = "lock_error"
)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	// Locks is optional; without it jobs are only guarded in-process.
	Locks           LockProvider
	Metrics         *metrics.CronJobMetrics
	Location        *time.Location
	RunOnStart      bool
	ShutdownTimeout time.Duration
}

// Service fires registered jobs on their cron schedules.
type Service struct {
	logg            *logger.Logger
	locks           LockProvider
	metrics         *metrics.CronJobMetrics
	runOnStart      bool
	shutdownTimeout time.Duration
	cron            *robfig.Cron

	mu         sync.Mutex
	started    bool
	stopped    bool
	runCtx     context.Context
	cancelRuns context.CancelFunc
	inflight   sync.WaitGroup
	jobs       []*scheduledJob
}

type scheduledJob struct {
	job      Job
	spec     string
	schedule robfig.Schedule
	lock     Lock
	running  atomic.Bool
}

// NewService builds a cron service and schedules every registry entry.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := params.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	s := &Service{
		logg:            params.Logger,
		locks:           params.Locks,
		metrics:         params.Metrics,
		runOnStart:      params.RunOnStart,
		shutdownTimeout: timeout,
		cron: robfig.New(
			robfig.WithLocation(loc),
			robfig.WithLogger(newLoggerAdapter(params.Logger)),
		),
	}

	if params.Registry != nil {
		for _, entry := range params.Registry.Entries() {
			if err := s.Schedule(entry.Spec, entry.Job); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Schedule registers a recurring job. Jobs added after Start begin firing on
// their next tick.
func (s *Service) Schedule(spec string, job Job) error {
	if job == nil {
		return fmt.Errorf("job required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("cron service stopped")
	}
	for _, existing := range s.jobs {
		if existing.job.Name() == job.Name() {
			return fmt.Errorf("job %q already scheduled", job.Name())
		}
	}

	schedule, err := ParseSpec(spec)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	sj := &scheduledJob{job: job, spec: spec, schedule: schedule}
	if s.locks != nil {
		lock, err := s.locks.ForJob(job.Name())
		if err != nil {
			return fmt.Errorf("lock for %s: %w", job.Name(), err)
		}
		sj.lock = lock
	}
	s.cron.Schedule(schedule, robfig.FuncJob(func() { s.fire(sj) }))
	s.jobs = append(s.jobs, sj)
	return nil
}

// Start begins firing scheduled jobs. Jobs receive a context derived from ctx
// that is also canceled by Stop.
func (s *Service) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("cron service stopped")
	}
	if s.started {
		return fmt.Errorf("cron service already started")
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.runCtx, s.cancelRuns = runCtx, cancel
	s.cron.Start()

	now := time.Now().In(s.cron.Location())
	for _, sj := range s.jobs {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"job":      sj.job.Name(),
			"schedule": sj.spec,
			"next_run": sj.schedule.Next(now),
		}), "job scheduled")
	}

	if s.runOnStart {
		for _, sj := range s.jobs {
			s.inflight.Add(1)
			go func(sj *scheduledJob) {
				defer s.inflight.Done()
				s.runJob(runCtx, sj)
			}(sj)
		}
	}
	return nil
}

// Run starts the service and blocks until ctx is canceled, then stops it
// within the configured shutdown timeout.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.logg.Info(ctx, "cron service context canceled")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop cron service: %w", err)
	}
	return nil
}

// Stop halts the scheduler and waits for in-flight runs to finish. Once it
// returns nil no job is running and none will be started. If ctx expires
// first its error is returned.
func (s *Service) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.stopped = true
	started := s.started
	cancel := s.cancelRuns
	s.mu.Unlock()

	var schedulerDone <-chan struct{}
	if started {
		schedulerDone = s.cron.Stop().Done()
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		if schedulerDone != nil {
			<-schedulerDone
		}
		close(done)
	}()

	select {
	case <-done:
		s.logg.Info(ctx, "cron service stopped")
		return nil
	case <-ctx.Done():
		s.logg.Warn(ctx, "cron service stop timed out with jobs still running")
		return ctx.Err()
	}
}

// fire is the scheduler callback for a single tick.
func (s *Service) fire(sj *scheduledJob) {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	ctx := s.runCtx
	s.mu.Unlock()

	defer s.inflight.Done()
	s.runJob(ctx, sj)
}

func (s *Service) runJob(ctx context.Context, sj *scheduledJob) {
	name := sj.job.Name()
	jobCtx := s.logg.WithJob(ctx, name)
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")

	if !sj.running.CompareAndSwap(false, true) {
		s.logg.Warn(jobCtx, "previous run still in progress; skipping tick")
		s.metrics.IncSkipped(name, skipReasonOverlap)
		return
	}
	defer sj.running.Store(false)

	if sj.lock != nil {
		locked, err := sj.lock.Acquire(ctx)
		if err != nil {
			s.logg.Error(jobCtx, "failed to acquire job lock", err)
			s.metrics.IncSkipped(name, skipReasonLockError)
			return
		}
		if !locked {
			s.logg.Info(jobCtx, "another cron instance is running this job; skipping tick")
			s.metrics.IncSkipped(name, skipReasonLocked)
			return
		}
		defer func() {
			if relErr := sj.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
				s.logg.Error(jobCtx, "failed to release job lock", relErr)
			}
		}()
	}

	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := invoke(jobCtx, sj.job)
	duration := time.Since(start)
	s.metrics.ObserveDuration(name, duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		failCtx := s.logg.WithFields(jobCtx, pkgerrors.Dump(err).Fields())
		failCtx = s.logg.WithField(failCtx, "retryable", pkgerrors.IsRetryable(err))
		s.logg.Error(failCtx, "job failed", err)
		s.metrics.IncFailure(name)
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(name)
}

// invoke runs the job, converting a panic into an error so the schedule survives.
func invoke(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("job panicked: %v", r))
		}
	}()
	return job.Run(ctx)
}

// loggerAdapter routes robfig/cron's own log events through the service logger.
type loggerAdapter struct {
	logg *logger.Logger
}

func newLoggerAdapter(logg *logger.Logger) robfig.Logger {
	return loggerAdapter{logg: logg}
}

func (a loggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logg.Debug(a.withKeys(keysAndValues), "cron scheduler: "+msg)
}

func (a loggerAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logg.Error(a.withKeys(keysAndValues), "cron scheduler: "+msg, err)
}

func (a loggerAdapter) withKeys(keysAndValues []interface{}) context.Context {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	return a.logg.WithFields(context.Background(), fields)
}
