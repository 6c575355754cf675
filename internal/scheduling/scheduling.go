// Package scheduling runs the periodic background jobs of the daemon modes.
package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// JobName represents the name of a periodic job.
type JobName string

// JobCheckUpdates is the periodic check for pending versions.
const JobCheckUpdates JobName = "check_updates"

// Scheduler represents a background job scheduler.
type Scheduler struct {
	mu        sync.Mutex
	jobs      map[JobName]uuid.UUID
	scheduler gocron.Scheduler
}

// JobFunc represents the type of function that executes a scheduled job.
type JobFunc func(context.Context) error

var (
	// ErrInvalidCronTab is returned when an invalid crontab expression is provided.
	ErrInvalidCronTab = errors.New("invalid crontab expression")

	// ErrUnknownJob is returned when referring to a job which isn't registered.
	ErrUnknownJob = errors.New("unknown job")
)

// NewScheduler creates a new Scheduler. Crontabs are evaluated in local time, as the user
// writing them would expect.
func NewScheduler() (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		jobs:      map[JobName]uuid.UUID{},
		scheduler: scheduler,
	}, nil
}

// RegisterJob registers a job in the Scheduler.
//
// If the job does not exist, it is created. If it already exists, it is updated.
func (s *Scheduler) RegisterJob(name JobName, crontab string, jobFunc JobFunc) error {
	cron := gocron.NewDefaultCron(false)

	// Validate the schedule expression.
	err := cron.IsValid(crontab, time.Local, time.Now())
	if err != nil {
		return ErrInvalidCronTab
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	options := []gocron.JobOption{
		gocron.WithName(string(name)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}

	id, ok := s.jobs[name]
	if ok {
		_, err := s.scheduler.Update(id, gocron.CronJob(crontab, false), gocron.NewTask(wrapJob(name, jobFunc)), options...)
		if err != nil {
			return err
		}

		return nil
	}

	job, err := s.scheduler.NewJob(gocron.CronJob(crontab, false), gocron.NewTask(wrapJob(name, jobFunc)), options...)
	if err != nil {
		return err
	}

	s.jobs[name] = job.ID()

	return nil
}

// RemoveJob unregisters a job.
func (s *Scheduler) RemoveJob(name JobName) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[name]
	if !ok {
		return ErrUnknownJob
	}

	err := s.scheduler.RemoveJob(id)
	if err != nil {
		return err
	}

	delete(s.jobs, name)

	return nil
}

// NextRun returns when the job will run next.
func (s *Scheduler) NextRun(name JobName) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[name]
	if !ok {
		return time.Time{}, ErrUnknownJob
	}

	for _, job := range s.scheduler.Jobs() {
		if job.ID() == id {
			return job.NextRun()
		}
	}

	return time.Time{}, ErrUnknownJob
}

// Start starts the scheduler and its registered jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Shutdown removes every job and shuts down the scheduler.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs *multierror.Error

	for name, id := range s.jobs {
		err := s.scheduler.RemoveJob(id)
		if err != nil {
			errs = multierror.Append(errs, err)
		}

		delete(s.jobs, name)
	}

	err := s.scheduler.Shutdown()
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	return errs.ErrorOrNil()
}

func wrapJob(name JobName, jobFunc JobFunc) func(context.Context) {
	return func(ctx context.Context) {
		select {
		// If the context is already cancelled, don't start the job.
		case <-ctx.Done():
			return

		default:
			slog.InfoContext(ctx, "Executing periodic job", slog.String("job", string(name)))

			err := jobFunc(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Error running periodic job", slog.String("job", string(name)), slog.Any("error", err))
			}
		}
	}
}
