// Package scheduler drives periodic sync runs with jitter, time-window
// gating and a consecutive-failure cooldown policy.
package scheduler

import (
	"context"
	"time"
)

// Mode selects how the scheduler decides when to run.
type Mode string

const (
	// ModeInterval fires immediately, then on a fixed cadence.
	ModeInterval Mode = "interval"
	// ModeCron fires on a cron expression.
	ModeCron Mode = "cron"
	// ModeOnce executes exactly one tick and returns.
	ModeOnce Mode = "once"
)

// Task performs one full sync pass. A returned error counts as a failed run.
type Task func(ctx context.Context) (Result, error)

// Result is the normalized outcome of a task: a per-item success map.
// Boolean tasks are represented as a single-item map so the policy logic
// never has to branch on result shape.
type Result struct {
	Items map[string]bool
}

// MapResult wraps a per-item outcome map.
func MapResult(items map[string]bool) Result {
	return Result{Items: items}
}

// BoolResult wraps a single overall outcome.
func BoolResult(ok bool) Result {
	return Result{Items: map[string]bool{"task": ok}}
}

// Succeeded returns the number of successful items.
func (r Result) Succeeded() int {
	n := 0
	for _, ok := range r.Items {
		if ok {
			n++
		}
	}
	return n
}

// Total returns the number of items.
func (r Result) Total() int {
	return len(r.Items)
}

// Ratio returns the fraction of successful items. An empty result has
// ratio 0 and therefore counts as a failure.
func (r Result) Ratio() float64 {
	if len(r.Items) == 0 {
		return 0
	}
	return float64(r.Succeeded()) / float64(len(r.Items))
}

// NotificationSink receives run outcomes. Implementations are
// fire-and-forget: delivery failures must never reach the scheduler.
type NotificationSink interface {
	Success(ctx context.Context, result Result, duration time.Duration)
	Failure(ctx context.Context, reason string, consecutiveFailures int)
}

// inTimeWindow reports whether hour falls inside [start, end], where
// start > end means the window spans midnight (e.g. 22 to 6).
func inTimeWindow(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour <= end
	}
	return hour >= start || hour <= end
}
