// Package config provides configuration management for relsync.
package config

import (
	"time"
)

// Config is the root configuration structure for relsync.
type Config struct {
	GitHub        GitHubConfig        `mapstructure:"github"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Projects      []ProjectConfig     `mapstructure:"projects"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	History       HistoryConfig       `mapstructure:"history"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// GitHubConfig holds GitHub API access settings.
type GitHubConfig struct {
	// Personal access token. Empty means anonymous access (60 req/hour).
	Token string `mapstructure:"token"`

	// API base URL, overridable for GitHub Enterprise or tests
	BaseURL string `mapstructure:"base_url"`

	// Rate limit and retry tuning
	API APIConfig `mapstructure:"api"`
}

// APIConfig holds rate limit and retry tuning for the GitHub client.
type APIConfig struct {
	// Check remaining quota before issuing requests
	RespectRateLimit bool `mapstructure:"respect_rate_limit"`

	// Wait for quota reset instead of failing when exhausted
	RetryOnLimit bool `mapstructure:"retry_on_limit"`

	// Maximum retry attempts for transient and quota errors
	MaxRetries int `mapstructure:"max_retries"`

	// Exponential backoff base (wait = factor^attempt * unit)
	BackoffFactor float64 `mapstructure:"backoff_factor"`

	// Requests held in reserve before the quota wait kicks in
	SafetyBuffer int `mapstructure:"safety_buffer"`

	// Per-request timeout
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// StorageConfig selects and configures the mirror target.
type StorageConfig struct {
	// Backend type: "s3" or "filesystem"
	Type string `mapstructure:"type"`

	S3         S3Config         `mapstructure:"s3"`
	Filesystem FilesystemConfig `mapstructure:"filesystem"`
}

// S3Config holds settings for an S3-compatible backend (AWS S3, Cloudflare R2, MinIO).
type S3Config struct {
	// Custom endpoint URL (required for R2/MinIO, empty for AWS)
	Endpoint string `mapstructure:"endpoint"`

	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// Use path-style addressing (required by most non-AWS endpoints)
	ForcePathStyle bool `mapstructure:"force_path_style"`
}

// FilesystemConfig holds settings for a local directory mirror.
type FilesystemConfig struct {
	Path string `mapstructure:"path"`
}

// ProjectConfig identifies one upstream project to mirror.
type ProjectConfig struct {
	Owner string `mapstructure:"owner"`
	Repo  string `mapstructure:"repo"`

	// Glob pattern selecting which release assets to mirror (empty = all)
	AssetPattern string `mapstructure:"asset_pattern"`

	// Object key prefix in the bucket (default "{owner}-{repo}")
	TargetPath string `mapstructure:"target_path"`
}

// Name returns the canonical "owner/repo" identifier.
func (p ProjectConfig) Name() string {
	return p.Owner + "/" + p.Repo
}

// SchedulerConfig controls when sync passes run.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Mode: "interval", "cron" or "once"
	Mode string `mapstructure:"mode"`

	Interval       IntervalConfig      `mapstructure:"interval"`
	CronExpression string              `mapstructure:"cron_expression"`
	RandomDelay    RandomDelayConfig   `mapstructure:"random_delay"`
	TimeWindow     TimeWindowConfig    `mapstructure:"time_window"`
	ErrorHandling  ErrorHandlingConfig `mapstructure:"error_handling"`
}

// IntervalConfig holds the cadence for interval mode.
type IntervalConfig struct {
	Hours   int `mapstructure:"hours"`
	Minutes int `mapstructure:"minutes"`
}

// Duration returns the total interval between runs.
func (i IntervalConfig) Duration() time.Duration {
	return time.Duration(i.Hours)*time.Hour + time.Duration(i.Minutes)*time.Minute
}

// RandomDelayConfig adds jitter before each run to avoid synchronized load spikes.
type RandomDelayConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxMinutes int  `mapstructure:"max_minutes"`
}

// TimeWindowConfig restricts runs to an allowed time-of-day window.
// StartHour > EndHour means the window spans midnight.
type TimeWindowConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	StartHour int  `mapstructure:"start_hour"`
	EndHour   int  `mapstructure:"end_hour"`
}

// ErrorHandlingConfig controls the consecutive-failure cooldown policy.
type ErrorHandlingConfig struct {
	// Failures in a row before the scheduler enters cooldown
	MaxConsecutiveFailures int `mapstructure:"max_consecutive_failures"`

	// How long ticks are skipped once in cooldown
	CooldownMinutes int `mapstructure:"cooldown_minutes"`

	// Fraction of per-project successes required to count a pass as a success
	SuccessThreshold float64 `mapstructure:"success_threshold"`
}

// Cooldown returns the cooldown window as a duration.
func (e ErrorHandlingConfig) Cooldown() time.Duration {
	return time.Duration(e.CooldownMinutes) * time.Minute
}

// NotificationsConfig controls outcome delivery to operators.
type NotificationsConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Email   EmailConfig   `mapstructure:"email"`
}

// WebhookConfig holds settings for the webhook notification sink.
type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Method  string            `mapstructure:"method"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// EmailConfig holds settings for the SMTP notification sink.
type EmailConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// HistoryConfig controls the sqlite sync-run log.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Log format (json, console)
	Format string `mapstructure:"format"`
}
