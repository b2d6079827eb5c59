// Package notify delivers run outcomes to operators. Delivery is
// fire-and-forget: sink failures are logged and never propagate back
// into the scheduler.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relsync/relsync/internal/config"
	"github.com/relsync/relsync/internal/scheduler"
)

// Message is one outcome notification.
type Message struct {
	Subject   string    `json:"subject"`
	Body      string    `json:"message"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

// Sink delivers a message over one channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Notifier fans outcomes out to the configured sinks. It implements
// scheduler.NotificationSink.
type Notifier struct {
	enabled bool
	sinks   []Sink
	now     func() time.Time
}

// New builds a notifier from the configuration.
func New(cfg config.NotificationsConfig) *Notifier {
	n := &Notifier{
		enabled: cfg.Enabled,
		now:     time.Now,
	}

	if cfg.Webhook.Enabled {
		n.sinks = append(n.sinks, newWebhookSink(cfg.Webhook))
	}
	if cfg.Email.Enabled {
		n.sinks = append(n.sinks, newEmailSink(cfg.Email))
	}

	return n
}

// Success reports a completed run.
func (n *Notifier) Success(ctx context.Context, result scheduler.Result, duration time.Duration) {
	if !n.enabled {
		return
	}

	subject := fmt.Sprintf("Release sync succeeded: %d/%d projects", result.Succeeded(), result.Total())
	n.dispatch(ctx, Message{
		Subject:   subject,
		Body:      n.formatSuccess(result, duration),
		Level:     "success",
		Timestamp: n.now(),
		Service:   "relsync",
	})
}

// Failure reports a failed run along with the current failure streak.
func (n *Notifier) Failure(ctx context.Context, reason string, consecutiveFailures int) {
	if !n.enabled {
		return
	}

	subject := fmt.Sprintf("Release sync failed: %d consecutive failures", consecutiveFailures)
	n.dispatch(ctx, Message{
		Subject:   subject,
		Body:      n.formatFailure(reason, consecutiveFailures),
		Level:     "error",
		Timestamp: n.now(),
		Service:   "relsync",
	})
}

func (n *Notifier) dispatch(ctx context.Context, msg Message) {
	for _, sink := range n.sinks {
		if err := sink.Send(ctx, msg); err != nil {
			log.Error().
				Err(err).
				Str("sink", sink.Name()).
				Str("subject", msg.Subject).
				Msg("Notification delivery failed")
			continue
		}
		log.Debug().
			Str("sink", sink.Name()).
			Str("subject", msg.Subject).
			Msg("Notification sent")
	}
}

func (n *Notifier) formatSuccess(result scheduler.Result, duration time.Duration) string {
	total := result.Total()
	succeeded := result.Succeeded()

	var sb strings.Builder
	sb.WriteString("Sync report\n")
	fmt.Fprintf(&sb, "- Finished: %s\n", n.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "- Duration: %.2fs\n", duration.Seconds())
	fmt.Fprintf(&sb, "- Projects: %d\n", total)
	fmt.Fprintf(&sb, "- Succeeded: %d\n", succeeded)
	fmt.Fprintf(&sb, "- Failed: %d\n", total-succeeded)
	sb.WriteString("\nResults:\n")
	for project, ok := range result.Items {
		status := "ok"
		if !ok {
			status = "failed"
		}
		fmt.Fprintf(&sb, "- %s: %s\n", project, status)
	}
	return sb.String()
}

func (n *Notifier) formatFailure(reason string, consecutiveFailures int) string {
	var sb strings.Builder
	sb.WriteString("Sync failure alert\n")
	fmt.Fprintf(&sb, "- Failed at: %s\n", n.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "- Consecutive failures: %d\n", consecutiveFailures)
	fmt.Fprintf(&sb, "- Reason: %s\n", reason)
	sb.WriteString("\nCheck the logs for details.\n")
	return sb.String()
}
