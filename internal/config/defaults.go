package config

import "time"

// Default configuration values.
const (
	// GitHub API defaults.
	DefaultBaseURL        = "https://api.github.com"
	DefaultMaxRetries     = 3
	DefaultBackoffFactor  = 2.0
	DefaultSafetyBuffer   = 5
	DefaultRequestTimeout = 30 * time.Second

	// Scheduler defaults.
	DefaultMode            = "interval"
	DefaultIntervalHours   = 6
	DefaultCronExpression  = "0 */6 * * *"
	DefaultMaxJitter       = 30 // minutes
	DefaultMaxFailures     = 3
	DefaultCooldownMinutes = 60
	DefaultThreshold       = 0.5

	// History defaults.
	DefaultHistoryPath = "relsync.db"

	// Metrics defaults.
	DefaultMetricsListen = "localhost:9190"

	// Logging defaults.
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			BaseURL: DefaultBaseURL,
			API: APIConfig{
				RespectRateLimit: true,
				RetryOnLimit:     true,
				MaxRetries:       DefaultMaxRetries,
				BackoffFactor:    DefaultBackoffFactor,
				SafetyBuffer:     DefaultSafetyBuffer,
				RequestTimeout:   DefaultRequestTimeout,
			},
		},
		Storage: StorageConfig{
			Type: "s3",
			S3: S3Config{
				Region:         "auto",
				ForcePathStyle: true,
			},
		},
		Scheduler: SchedulerConfig{
			Enabled: false,
			Mode:    DefaultMode,
			Interval: IntervalConfig{
				Hours: DefaultIntervalHours,
			},
			CronExpression: DefaultCronExpression,
			RandomDelay: RandomDelayConfig{
				Enabled:    false,
				MaxMinutes: DefaultMaxJitter,
			},
			TimeWindow: TimeWindowConfig{
				Enabled:   false,
				StartHour: 0,
				EndHour:   23,
			},
			ErrorHandling: ErrorHandlingConfig{
				MaxConsecutiveFailures: DefaultMaxFailures,
				CooldownMinutes:        DefaultCooldownMinutes,
				SuccessThreshold:       DefaultThreshold,
			},
		},
		Notifications: NotificationsConfig{
			Enabled: false,
			Webhook: WebhookConfig{
				Method:  "POST",
				Timeout: 30 * time.Second,
			},
			Email: EmailConfig{
				SMTPPort: 587,
			},
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    DefaultHistoryPath,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  DefaultMetricsListen,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
