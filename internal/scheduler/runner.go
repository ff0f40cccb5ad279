package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const defaultJobTimeout = 5 * time.Minute

var (
	ErrDuplicateJob = errors.New("scheduler: job already registered")
	ErrUnknownJob   = errors.New("scheduler: unknown job")
)

// Job is one unit of scheduled work. It should honour ctx cancellation.
type Job func(ctx context.Context) error

type registration struct {
	job Job
	id  cron.EntryID
}

// Runner schedules jobs on cron expressions. Each run is isolated: an
// error or panic is logged and never propagates to the caller of Run.
type Runner struct {
	cron    *cron.Cron
	log     logrus.FieldLogger
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]registration
	base context.Context
}

// NewRunner creates a UTC runner. timeout bounds a single run; zero
// selects a default.
func NewRunner(log logrus.FieldLogger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	cronLog := cron.PrintfLogger(log)
	return &Runner{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
		log:     log,
		timeout: timeout,
		jobs:    make(map[string]registration),
		base:    context.Background(),
	}
}

// Register schedules job under name. An invalid spec is returned and
// logged; the runner keeps working for other jobs.
func (r *Runner) Register(name, spec string, job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	id, err := r.cron.AddFunc(spec, func() {
		_ = r.execute(r.baseContext(), name, job)
	})
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{"job": name, "spec": spec}).Error("Invalid schedule, job not registered")
		return fmt.Errorf("register job %s: %w", name, err)
	}

	r.jobs[name] = registration{job: job, id: id}
	r.log.WithFields(logrus.Fields{"job": name, "spec": spec}).Info("Scheduled job registered")
	return nil
}

// RunNow executes a registered job synchronously and returns its error.
func (r *Runner) RunNow(ctx context.Context, name string) error {
	r.mu.Lock()
	reg, ok := r.jobs[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return r.execute(ctx, name, reg.job)
}

// Next reports the next scheduled activation of a job. It is only
// meaningful while Run is active.
func (r *Runner) Next(name string) (time.Time, bool) {
	r.mu.Lock()
	reg, ok := r.jobs[name]
	r.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return r.cron.Entry(reg.id).Next, true
}

// Run starts the schedule and blocks until ctx is done, then waits for
// in-flight jobs. It always returns nil so a scheduler problem cannot
// take the HTTP server down with it.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.base = ctx
	r.mu.Unlock()

	r.cron.Start()
	r.log.Info("Scheduler started")

	<-ctx.Done()

	stopped := r.cron.Stop()
	<-stopped.Done()
	r.log.Info("Scheduler stopped")
	return nil
}

func (r *Runner) baseContext() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.base
}

func (r *Runner) execute(ctx context.Context, name string, job Job) (err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entry := r.log.WithField("job", name)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", name, rec)
		}
		if err != nil {
			entry.WithError(err).Error("Scheduled job failed")
			return
		}
		entry.WithField("duration", time.Since(start).String()).Info("Scheduled job finished")
	}()

	return job(ctx)
}
