package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/relsync/relsync/internal/config"
	"github.com/relsync/relsync/internal/metrics"
)

// pollSegment bounds every wait so a stop request is honored within one
// segment rather than at the next multi-hour boundary.
const pollSegment = 60 * time.Second

// Scheduler drives when the sync task runs. All ticks execute sequentially
// on the goroutine that calls Start; at most one task invocation is ever
// outstanding. Stopping is cooperative via context cancellation: sleeps
// wake within one segment, and a task already in flight is never aborted
// between its completion and the outcome bookkeeping.
type Scheduler struct {
	cfg    config.SchedulerConfig
	policy *FailurePolicy
	task   Task
	sink   NotificationSink

	cronSchedule cron.Schedule

	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	randIntN func(n int) int
	segment  time.Duration
}

// New creates a scheduler. An unparseable cron expression or unknown mode
// is a configuration error and fails here, before any tick runs.
func New(cfg config.SchedulerConfig, task Task, sink NotificationSink) (*Scheduler, error) {
	s := &Scheduler{
		cfg:      cfg,
		policy:   NewFailurePolicy(cfg.ErrorHandling),
		task:     task,
		sink:     sink,
		now:      time.Now,
		sleep:    sleepContext,
		randIntN: rand.IntN,
		segment:  pollSegment,
	}

	switch Mode(cfg.Mode) {
	case ModeInterval:
		if cfg.Interval.Duration() <= 0 {
			return nil, fmt.Errorf("interval must be positive")
		}
	case ModeCron:
		schedule, err := NewCronParser().Parse(cfg.CronExpression)
		if err != nil {
			return nil, err
		}
		s.cronSchedule = schedule
	case ModeOnce:
	default:
		return nil, fmt.Errorf("unsupported scheduler mode %q", cfg.Mode)
	}

	return s, nil
}

// Policy exposes the failure policy for inspection.
func (s *Scheduler) Policy() *FailurePolicy {
	return s.policy
}

// Start runs the scheduler until the context is cancelled (interval and
// cron modes) or after a single tick (once mode). A disabled scheduler
// logs and returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		log.Info().Msg("Scheduler disabled, nothing to do")
		return nil
	}

	switch Mode(s.cfg.Mode) {
	case ModeInterval:
		s.runInterval(ctx)
	case ModeCron:
		s.runCron(ctx)
	case ModeOnce:
		log.Info().Msg("Running one-time sync")
		s.Tick(ctx)
	default:
		return fmt.Errorf("unsupported scheduler mode %q", s.cfg.Mode)
	}

	log.Info().Msg("Scheduler stopped")
	return nil
}

// runInterval fires once immediately, then on the configured cadence.
func (s *Scheduler) runInterval(ctx context.Context) {
	interval := s.cfg.Interval.Duration()
	log.Info().
		Dur("interval", interval).
		Msg("Starting interval scheduler")

	s.Tick(ctx)

	for {
		next := s.now().Add(interval)
		if !s.waitUntil(ctx, next) {
			return
		}
		s.Tick(ctx)
	}
}

// runCron recomputes the next fire time from "now" after each firing, so
// the schedule tracks the expression rather than a fixed epoch.
func (s *Scheduler) runCron(ctx context.Context) {
	log.Info().
		Str("expression", s.cfg.CronExpression).
		Msg("Starting cron scheduler")

	for {
		next := s.cronSchedule.Next(s.now())
		log.Debug().Time("next_run", next).Msg("Waiting for next cron fire")
		if !s.waitUntil(ctx, next) {
			return
		}
		s.Tick(ctx)
	}
}

// waitUntil sleeps in bounded segments until t, re-checking the stop
// condition after each segment. Returns false when the context was
// cancelled before t arrived.
func (s *Scheduler) waitUntil(ctx context.Context, t time.Time) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		remaining := t.Sub(s.now())
		if remaining <= 0 {
			return true
		}
		if remaining > s.segment {
			remaining = s.segment
		}
		if err := s.sleep(ctx, remaining); err != nil {
			return false
		}
	}
}

// Tick is one evaluation cycle: cooldown check, jitter, time-window gate,
// task invocation, outcome evaluation, notification. Errors from the task
// never propagate past this boundary.
func (s *Scheduler) Tick(ctx context.Context) {
	if s.policy.InCooldown() {
		log.Info().
			Int("consecutive_failures", s.policy.ConsecutiveFailures()).
			Msg("In failure cooldown, skipping run")
		metrics.RecordSkip("cooldown")
		return
	}

	if !s.applyJitter(ctx) {
		return
	}

	if s.cfg.TimeWindow.Enabled {
		hour := s.now().Hour()
		if !inTimeWindow(hour, s.cfg.TimeWindow.StartHour, s.cfg.TimeWindow.EndHour) {
			log.Info().
				Int("hour", hour).
				Int("start_hour", s.cfg.TimeWindow.StartHour).
				Int("end_hour", s.cfg.TimeWindow.EndHour).
				Msg("Outside allowed time window, skipping run")
			metrics.RecordSkip("time_window")
			return
		}
	}

	log.Info().Msg("Starting sync run")
	start := s.now()
	result, err := s.invokeTask(ctx)
	duration := s.now().Sub(start)
	metrics.ObserveSyncDuration(duration)

	outcome := s.policy.Evaluate(result, err)
	if outcome.Success {
		log.Info().
			Dur("duration", duration).
			Int("succeeded", result.Succeeded()).
			Int("total", result.Total()).
			Msg("Sync run succeeded")
		metrics.RecordTick("success")
		if s.sink != nil {
			s.sink.Success(ctx, result, duration)
		}
		return
	}

	metrics.RecordTick("failure")
	if s.sink != nil {
		s.sink.Failure(ctx, outcome.Reason, s.policy.ConsecutiveFailures())
	}
}

// invokeTask calls the task, converting a panic into an ordinary failure
// so the scheduler survives misbehaving tasks indefinitely.
func (s *Scheduler) invokeTask(ctx context.Context) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return s.task(ctx)
}

// applyJitter sleeps a uniformly random duration in [0, max_minutes*60]
// seconds. Returns false when a stop request arrived during the sleep.
func (s *Scheduler) applyJitter(ctx context.Context) bool {
	if !s.cfg.RandomDelay.Enabled {
		return true
	}
	maxSeconds := s.cfg.RandomDelay.MaxMinutes * 60
	if maxSeconds <= 0 {
		return true
	}

	delay := time.Duration(s.randIntN(maxSeconds+1)) * time.Second
	if delay == 0 {
		return true
	}

	log.Info().Dur("delay", delay).Msg("Applying random delay")
	return s.sleep(ctx, delay) == nil
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
