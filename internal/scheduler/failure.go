package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relsync/relsync/internal/config"
)

// Outcome is the failure policy's verdict on one run.
type Outcome struct {
	Success bool
	Reason  string
}

// FailurePolicy tracks consecutive failures and decides when the scheduler
// should enter a cooldown window. It is a two-state policy (normal /
// cooldown) layered on a counter: the cooldown lapses by time alone, but
// the counter resets only on a qualifying success.
//
// The policy is owned by a single scheduler and is not safe for concurrent
// use; the scheduler's single-threaded tick loop is the only mutator.
type FailurePolicy struct {
	maxFailures int
	cooldown    time.Duration
	threshold   float64

	now func() time.Time

	consecutive int
	lastFailure time.Time
}

// NewFailurePolicy creates a policy from the error handling configuration.
func NewFailurePolicy(cfg config.ErrorHandlingConfig) *FailurePolicy {
	threshold := cfg.SuccessThreshold
	if threshold <= 0 {
		threshold = config.DefaultThreshold
	}
	return &FailurePolicy{
		maxFailures: cfg.MaxConsecutiveFailures,
		cooldown:    cfg.Cooldown(),
		threshold:   threshold,
		now:         time.Now,
	}
}

// Evaluate classifies a run. A task error is always a failure; otherwise
// the per-item success ratio is compared against the threshold. A
// qualifying success resets the consecutive-failure counter.
func (p *FailurePolicy) Evaluate(result Result, taskErr error) Outcome {
	if taskErr != nil {
		return p.fail(taskErr.Error())
	}

	if result.Ratio() >= p.threshold {
		p.consecutive = 0
		return Outcome{Success: true}
	}

	return p.fail(fmt.Sprintf(
		"success ratio %.0f%% (%d/%d) below threshold",
		result.Ratio()*100, result.Succeeded(), result.Total(),
	))
}

func (p *FailurePolicy) fail(reason string) Outcome {
	p.consecutive++
	p.lastFailure = p.now()

	log.Error().
		Int("consecutive_failures", p.consecutive).
		Str("reason", reason).
		Msg("Sync run failed")

	if p.consecutive >= p.maxFailures {
		log.Error().
			Int("max_consecutive_failures", p.maxFailures).
			Dur("cooldown", p.cooldown).
			Msg("Consecutive failure limit reached, entering cooldown")
	}

	return Outcome{Success: false, Reason: reason}
}

// InCooldown reports whether runs should currently be skipped. True only
// while the counter has reached the limit and the cooldown window since
// the last failure has not yet elapsed.
func (p *FailurePolicy) InCooldown() bool {
	if p.consecutive < p.maxFailures {
		return false
	}
	if p.lastFailure.IsZero() {
		return false
	}
	return p.now().Before(p.lastFailure.Add(p.cooldown))
}

// ConsecutiveFailures returns the current failure streak.
func (p *FailurePolicy) ConsecutiveFailures() int {
	return p.consecutive
}
