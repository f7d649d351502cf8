// Package scheduler triggers ETL runs on a fixed interval. The two stages
// are ordered within a tick: the transform+load run fires only after the
// extract run of the same tick has produced its snapshot.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/velib-etl-service/internal/config"
	"github.com/couchcryptid/velib-etl-service/internal/observability"
	"github.com/couchcryptid/velib-etl-service/internal/pipeline"
)

// ExtractRunner runs one extract run.
type ExtractRunner interface {
	Run(ctx context.Context) (pipeline.ExtractSummary, error)
}

// TransformLoadRunner runs one transform+load run.
type TransformLoadRunner interface {
	Run(ctx context.Context) (pipeline.RunSummary, error)
}

// Scheduler owns the periodic trigger. Ticks never overlap (singleton job)
// and missed intervals are not caught up. Each stage gets bounded retry with
// a fixed delay; the runs themselves never retry internally.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	extract    ExtractRunner
	transform  TransformLoadRunner
	interval   time.Duration
	retries    int
	retryDelay time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Scheduler from the schedule settings.
func New(cfg *config.Config, extract ExtractRunner, transform TransformLoadRunner, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		extract:    extract,
		transform:  transform,
		interval:   cfg.ScheduleInterval,
		retries:    cfg.RunRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
		metrics:    metrics,
	}
}

// Start schedules the periodic tick and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	s.scheduler.SingletonModeAll()
	if _, err := s.scheduler.Every(s.interval).Do(s.tick); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.metrics.SchedulerRunning.Set(1)
	s.logger.Info("scheduler started", "interval", s.interval, "retries", s.retries, "retry_delay", s.retryDelay)
	return nil
}

// Stop stops the scheduler and cancels any future ticks. A tick already in
// flight finishes; runs are not cancelled mid-flight.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.metrics.SchedulerRunning.Set(0)
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) tick() {
	// Cap a whole tick at the schedule interval so a wedged run cannot
	// pile up behind the singleton gate forever.
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("scheduled run failed after retries", "error", err)
	}
}

// RunOnce executes one full tick: extract with retry, then transform+load
// with retry. The transform stage is skipped when extraction never produced
// its snapshot; there is nothing new to load and the stale snapshot was
// already loaded on a previous tick.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	err := s.withRetry(ctx, observability.StageExtract, func(ctx context.Context) error {
		_, err := s.extract.Run(ctx)
		return err
	})
	if err != nil {
		return err
	}

	return s.withRetry(ctx, observability.StageTransformLoad, func(ctx context.Context) error {
		_, err := s.transform.Run(ctx)
		return err
	})
}

// withRetry runs fn up to 1+retries times with a fixed delay between
// attempts, honoring context cancellation between attempts.
func (s *Scheduler) withRetry(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("retrying stage", "stage", stage, "attempt", attempt, "delay", s.retryDelay, "error", err)
			if !sleepWithContext(ctx, s.retryDelay) {
				return ctx.Err()
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
