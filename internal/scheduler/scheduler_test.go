package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/relsync/relsync/internal/config"
)

type recordingSink struct {
	mu        sync.Mutex
	successes int
	failures  int
	reason    string
	streak    int
}

func (s *recordingSink) Success(ctx context.Context, result Result, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes++
}

func (s *recordingSink) Failure(ctx context.Context, reason string, consecutiveFailures int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	s.reason = reason
	s.streak = consecutiveFailures
}

func enabledConfig(mode string) config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:        true,
		Mode:           mode,
		Interval:       config.IntervalConfig{Hours: 6},
		CronExpression: "0 */6 * * *",
		ErrorHandling: config.ErrorHandlingConfig{
			MaxConsecutiveFailures: 3,
			CooldownMinutes:        60,
		},
	}
}

func TestNew_ModeValidation(t *testing.T) {
	task := func(ctx context.Context) (Result, error) { return BoolResult(true), nil }

	if _, err := New(enabledConfig("interval"), task, nil); err != nil {
		t.Errorf("interval mode should be accepted: %v", err)
	}
	if _, err := New(enabledConfig("cron"), task, nil); err != nil {
		t.Errorf("cron mode should be accepted: %v", err)
	}
	if _, err := New(enabledConfig("once"), task, nil); err != nil {
		t.Errorf("once mode should be accepted: %v", err)
	}

	if _, err := New(enabledConfig("hourly"), task, nil); err == nil {
		t.Error("Unknown mode should be rejected")
	}

	cfg := enabledConfig("interval")
	cfg.Interval = config.IntervalConfig{}
	if _, err := New(cfg, task, nil); err == nil {
		t.Error("Zero interval should be rejected")
	}

	cfg = enabledConfig("cron")
	cfg.CronExpression = "not a cron"
	if _, err := New(cfg, task, nil); err == nil {
		t.Error("Invalid cron expression should be rejected at construction")
	}
}

func TestScheduler_DisabledNeverRunsTask(t *testing.T) {
	calls := 0
	cfg := enabledConfig("once")
	cfg.Enabled = false

	s, err := New(cfg, func(ctx context.Context) (Result, error) {
		calls++
		return BoolResult(true), nil
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("Disabled scheduler ran the task %d times", calls)
	}
}

func TestScheduler_OnceModeSingleTick(t *testing.T) {
	calls := 0
	sink := &recordingSink{}

	s, err := New(enabledConfig("once"), func(ctx context.Context) (Result, error) {
		calls++
		return BoolResult(true), nil
	}, sink)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected exactly 1 task invocation, got %d", calls)
	}
	if sink.successes != 1 {
		t.Errorf("Expected 1 success notification, got %d", sink.successes)
	}
}

func TestScheduler_TickCooldownSkip(t *testing.T) {
	calls := 0
	s, err := New(enabledConfig("once"), func(ctx context.Context) (Result, error) {
		calls++
		return Result{}, errors.New("always fails")
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.policy.now = s.now

	for i := 0; i < 3; i++ {
		s.Tick(context.Background())
	}
	if calls != 3 {
		t.Fatalf("Expected 3 invocations before cooldown, got %d", calls)
	}

	// In cooldown: ticks are skipped without touching the task
	s.Tick(context.Background())
	if calls != 3 {
		t.Errorf("Tick during cooldown invoked the task")
	}

	// Past the window the tick runs again
	now = now.Add(61 * time.Minute)
	s.Tick(context.Background())
	if calls != 4 {
		t.Errorf("Tick after cooldown lapse should invoke the task, got %d calls", calls)
	}
}

func TestScheduler_TickTimeWindowSkip(t *testing.T) {
	calls := 0
	cfg := enabledConfig("once")
	cfg.TimeWindow = config.TimeWindowConfig{Enabled: true, StartHour: 22, EndHour: 6}

	s, err := New(cfg, func(ctx context.Context) (Result, error) {
		calls++
		return BoolResult(true), nil
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	now := time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Tick(context.Background())
	if calls != 0 {
		t.Error("Tick outside the time window invoked the task")
	}

	now = time.Date(2026, 8, 24, 23, 0, 0, 0, time.UTC)
	s.Tick(context.Background())
	if calls != 1 {
		t.Error("Tick inside an overnight window should invoke the task")
	}

	now = time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC)
	s.Tick(context.Background())
	if calls != 2 {
		t.Error("Early-morning hours belong to an overnight window")
	}
}

func TestScheduler_TickJitter(t *testing.T) {
	cfg := enabledConfig("once")
	cfg.RandomDelay = config.RandomDelayConfig{Enabled: true, MaxMinutes: 30}

	calls := 0
	s, err := New(cfg, func(ctx context.Context) (Result, error) {
		calls++
		return BoolResult(true), nil
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var slept []time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	var sampled int
	s.randIntN = func(n int) int {
		sampled = n
		return 90
	}

	s.Tick(context.Background())

	// The draw covers the closed range [0, max_minutes*60] seconds
	if sampled != 30*60+1 {
		t.Errorf("randIntN bound = %d, want %d", sampled, 30*60+1)
	}
	if len(slept) != 1 || slept[0] != 90*time.Second {
		t.Errorf("Expected one 90s jitter sleep, got %v", slept)
	}
	if calls != 1 {
		t.Errorf("Task should run after jitter, got %d calls", calls)
	}
}

func TestScheduler_TickJitterAbortsOnCancel(t *testing.T) {
	cfg := enabledConfig("once")
	cfg.RandomDelay = config.RandomDelayConfig{Enabled: true, MaxMinutes: 30}

	calls := 0
	s, err := New(cfg, func(ctx context.Context) (Result, error) {
		calls++
		return BoolResult(true), nil
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.randIntN = func(n int) int { return 60 }
	s.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	s.Tick(context.Background())
	if calls != 0 {
		t.Error("A stop during the jitter sleep should abort the tick")
	}
}

func TestScheduler_TickNotifiesFailure(t *testing.T) {
	sink := &recordingSink{}
	s, err := New(enabledConfig("once"), func(ctx context.Context) (Result, error) {
		return MapResult(map[string]bool{"a": true, "b": false, "c": false}), nil
	}, sink)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.Tick(context.Background())

	if sink.failures != 1 {
		t.Fatalf("Expected 1 failure notification, got %d", sink.failures)
	}
	if sink.streak != 1 {
		t.Errorf("Expected streak 1, got %d", sink.streak)
	}
	if !strings.Contains(sink.reason, "below threshold") {
		t.Errorf("Unexpected failure reason %q", sink.reason)
	}
}

func TestScheduler_TickRecoversFromPanic(t *testing.T) {
	sink := &recordingSink{}
	s, err := New(enabledConfig("once"), func(ctx context.Context) (Result, error) {
		panic("exploded")
	}, sink)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.Tick(context.Background())

	if sink.failures != 1 {
		t.Fatalf("Panicking task should produce a failure notification")
	}
	if !strings.Contains(sink.reason, "exploded") {
		t.Errorf("Failure reason should carry the panic value, got %q", sink.reason)
	}
}

func TestScheduler_WaitUntilSegments(t *testing.T) {
	s, err := New(enabledConfig("interval"), func(ctx context.Context) (Result, error) {
		return BoolResult(true), nil
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	var slept []time.Duration
	s.now = func() time.Time { return now }
	s.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}
	s.segment = 60 * time.Second

	target := now.Add(150 * time.Second)
	if !s.waitUntil(context.Background(), target) {
		t.Fatal("waitUntil returned false without cancellation")
	}

	want := []time.Duration{60 * time.Second, 60 * time.Second, 30 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("Expected %d sleep segments, got %v", len(want), slept)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("Segment %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestScheduler_WaitUntilCancelled(t *testing.T) {
	s, err := New(enabledConfig("interval"), func(ctx context.Context) (Result, error) {
		return BoolResult(true), nil
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if s.waitUntil(ctx, time.Now().Add(time.Hour)) {
		t.Error("waitUntil should report cancellation")
	}
}

func TestScheduler_IntervalRunsImmediatelyThenWaits(t *testing.T) {
	calls := 0
	ctx, cancel := context.WithCancel(context.Background())

	s, err := New(enabledConfig("interval"), func(c context.Context) (Result, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return BoolResult(true), nil
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.sleep = func(c context.Context, d time.Duration) error {
		now = now.Add(d)
		return c.Err()
	}

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected first tick plus one interval tick, got %d", calls)
	}
}

func TestScheduler_CronRecomputesFromNow(t *testing.T) {
	var tickTimes []time.Time
	ctx, cancel := context.WithCancel(context.Background())

	now := time.Date(2026, 8, 24, 13, 30, 0, 0, time.UTC)

	s, err := New(enabledConfig("cron"), func(c context.Context) (Result, error) {
		tickTimes = append(tickTimes, now)
		if len(tickTimes) == 2 {
			cancel()
		}
		return BoolResult(true), nil
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.now = func() time.Time { return now }
	s.sleep = func(c context.Context, d time.Duration) error {
		now = now.Add(d)
		return c.Err()
	}

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	want := []time.Time{
		time.Date(2026, 8, 24, 18, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
	}
	if len(tickTimes) != len(want) {
		t.Fatalf("Expected %d ticks, got %v", len(want), tickTimes)
	}
	for i := range want {
		if !tickTimes[i].Equal(want[i]) {
			t.Errorf("Tick %d at %v, want %v", i, tickTimes[i], want[i])
		}
	}
}
