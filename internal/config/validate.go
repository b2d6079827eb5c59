package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

func Validate(cfg *Config) error {
	var errs ValidationErrors

	errs = append(errs, validateGitHub(&cfg.GitHub)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateProjects(cfg.Projects)...)
	errs = append(errs, validateScheduler(&cfg.Scheduler)...)
	errs = append(errs, validateNotifications(&cfg.Notifications)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateGitHub(cfg *GitHubConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.BaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "github.base_url",
			Message: "must not be empty",
		})
	}

	if cfg.API.MaxRetries < 0 {
		errs = append(errs, ValidationError{
			Field:   "github.api.max_retries",
			Message: "must be non-negative",
		})
	}

	if cfg.API.BackoffFactor < 1 {
		errs = append(errs, ValidationError{
			Field:   "github.api.backoff_factor",
			Message: "must be at least 1",
		})
	}

	if cfg.API.SafetyBuffer < 0 {
		errs = append(errs, ValidationError{
			Field:   "github.api.safety_buffer",
			Message: "must be non-negative",
		})
	}

	return errs
}

func validateStorage(cfg *StorageConfig) ValidationErrors {
	var errs ValidationErrors

	switch cfg.Type {
	case "s3":
		if cfg.S3.Bucket == "" {
			errs = append(errs, ValidationError{
				Field:   "storage.s3.bucket",
				Message: "must not be empty",
			})
		}
		if cfg.S3.Region == "" {
			errs = append(errs, ValidationError{
				Field:   "storage.s3.region",
				Message: "must not be empty",
			})
		}
	case "filesystem":
		if cfg.Filesystem.Path == "" {
			errs = append(errs, ValidationError{
				Field:   "storage.filesystem.path",
				Message: "must not be empty",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.type",
			Message: fmt.Sprintf("must be one of s3, filesystem (got %q)", cfg.Type),
		})
	}

	return errs
}

func validateProjects(projects []ProjectConfig) ValidationErrors {
	var errs ValidationErrors

	for i, p := range projects {
		if p.Owner == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("projects[%d].owner", i),
				Message: "must not be empty",
			})
		}
		if p.Repo == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("projects[%d].repo", i),
				Message: "must not be empty",
			})
		}
	}

	return errs
}

func validateScheduler(cfg *SchedulerConfig) ValidationErrors {
	var errs ValidationErrors

	switch cfg.Mode {
	case "interval":
		if cfg.Interval.Duration() <= 0 {
			errs = append(errs, ValidationError{
				Field:   "scheduler.interval",
				Message: "hours and minutes must add up to a positive interval",
			})
		}
	case "cron":
		if cfg.CronExpression == "" {
			errs = append(errs, ValidationError{
				Field:   "scheduler.cron_expression",
				Message: "must not be empty in cron mode",
			})
		}
	case "once":
	default:
		errs = append(errs, ValidationError{
			Field:   "scheduler.mode",
			Message: fmt.Sprintf("must be one of interval, cron, once (got %q)", cfg.Mode),
		})
	}

	if cfg.RandomDelay.Enabled && cfg.RandomDelay.MaxMinutes <= 0 {
		errs = append(errs, ValidationError{
			Field:   "scheduler.random_delay.max_minutes",
			Message: "must be positive when random delay is enabled",
		})
	}

	if cfg.TimeWindow.StartHour < 0 || cfg.TimeWindow.StartHour > 23 {
		errs = append(errs, ValidationError{
			Field:   "scheduler.time_window.start_hour",
			Message: "must be between 0 and 23",
		})
	}

	if cfg.TimeWindow.EndHour < 0 || cfg.TimeWindow.EndHour > 23 {
		errs = append(errs, ValidationError{
			Field:   "scheduler.time_window.end_hour",
			Message: "must be between 0 and 23",
		})
	}

	if cfg.ErrorHandling.MaxConsecutiveFailures < 1 {
		errs = append(errs, ValidationError{
			Field:   "scheduler.error_handling.max_consecutive_failures",
			Message: "must be positive",
		})
	}

	if cfg.ErrorHandling.CooldownMinutes < 1 {
		errs = append(errs, ValidationError{
			Field:   "scheduler.error_handling.cooldown_minutes",
			Message: "must be positive",
		})
	}

	if cfg.ErrorHandling.SuccessThreshold <= 0 || cfg.ErrorHandling.SuccessThreshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "scheduler.error_handling.success_threshold",
			Message: "must be in (0, 1]",
		})
	}

	return errs
}

func validateNotifications(cfg *NotificationsConfig) ValidationErrors {
	var errs ValidationErrors

	if !cfg.Enabled {
		return nil
	}

	if cfg.Webhook.Enabled && cfg.Webhook.URL == "" {
		errs = append(errs, ValidationError{
			Field:   "notifications.webhook.url",
			Message: "must not be empty when the webhook sink is enabled",
		})
	}

	if cfg.Email.Enabled {
		if cfg.Email.SMTPHost == "" {
			errs = append(errs, ValidationError{
				Field:   "notifications.email.smtp_host",
				Message: "must not be empty when the email sink is enabled",
			})
		}
		if cfg.Email.From == "" {
			errs = append(errs, ValidationError{
				Field:   "notifications.email.from",
				Message: "must not be empty when the email sink is enabled",
			})
		}
		if len(cfg.Email.To) == 0 {
			errs = append(errs, ValidationError{
				Field:   "notifications.email.to",
				Message: "must list at least one recipient",
			})
		}
	}

	return errs
}

func validateLogging(cfg *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch cfg.Level {
	case "debug", "info", "warn", "error", "":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error (got %q)", cfg.Level),
		})
	}

	switch cfg.Format {
	case "json", "console", "":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("must be one of json, console (got %q)", cfg.Format),
		})
	}

	return errs
}
