package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/carbonwatch/carbon-intensity-etl/internal/pipeline"
)

// jobTimeout bounds a single scheduled run end-to-end.
const jobTimeout = 2 * time.Minute

// Scheduler drives the pipeline on a fixed cadence in serve mode: ETL runs at
// the fetch interval, the retention sweep once a day. One-shot invocations
// triggered by an external cron use the same pipeline code path directly.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pipe      *pipeline.Pipeline
	interval  time.Duration
	log       *zap.Logger
}

// New creates a Scheduler.
func New(pipe *pipeline.Pipeline, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		pipe:      pipe,
		interval:  interval,
		log:       log,
	}
}

// Start registers the ETL and cleanup jobs and starts the underlying
// scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if err := s.pipe.Run(ctx); err != nil {
			s.log.Error("scheduled ETL run failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	_, err = s.scheduler.Every(1).Day().At("02:30").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if err := s.pipe.Cleanup(ctx); err != nil {
			s.log.Error("scheduled retention sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
