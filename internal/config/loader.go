package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

type LoadOptions struct {
	ConfigFile string
	EnvPrefix  string
	Defaults   *Config
}

func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := opts.Defaults
	if defaults == nil {
		defaults = Default()
	}
	setViperDefaults(v, defaults)

	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "RELSYNC"
	}
	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("relsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/relsync")
		v.AddConfigPath("/etc/relsync")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	expandEnvInConfig(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func LoadFromFile(path string) (*Config, error) {
	return Load(LoadOptions{ConfigFile: path})
}

func setViperDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("github.base_url", cfg.GitHub.BaseURL)
	v.SetDefault("github.api.respect_rate_limit", cfg.GitHub.API.RespectRateLimit)
	v.SetDefault("github.api.retry_on_limit", cfg.GitHub.API.RetryOnLimit)
	v.SetDefault("github.api.max_retries", cfg.GitHub.API.MaxRetries)
	v.SetDefault("github.api.backoff_factor", cfg.GitHub.API.BackoffFactor)
	v.SetDefault("github.api.safety_buffer", cfg.GitHub.API.SafetyBuffer)
	v.SetDefault("github.api.request_timeout", cfg.GitHub.API.RequestTimeout)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.s3.region", cfg.Storage.S3.Region)
	v.SetDefault("storage.s3.force_path_style", cfg.Storage.S3.ForcePathStyle)

	v.SetDefault("scheduler.enabled", cfg.Scheduler.Enabled)
	v.SetDefault("scheduler.mode", cfg.Scheduler.Mode)
	v.SetDefault("scheduler.interval.hours", cfg.Scheduler.Interval.Hours)
	v.SetDefault("scheduler.interval.minutes", cfg.Scheduler.Interval.Minutes)
	v.SetDefault("scheduler.cron_expression", cfg.Scheduler.CronExpression)
	v.SetDefault("scheduler.random_delay.enabled", cfg.Scheduler.RandomDelay.Enabled)
	v.SetDefault("scheduler.random_delay.max_minutes", cfg.Scheduler.RandomDelay.MaxMinutes)
	v.SetDefault("scheduler.time_window.enabled", cfg.Scheduler.TimeWindow.Enabled)
	v.SetDefault("scheduler.time_window.start_hour", cfg.Scheduler.TimeWindow.StartHour)
	v.SetDefault("scheduler.time_window.end_hour", cfg.Scheduler.TimeWindow.EndHour)
	v.SetDefault("scheduler.error_handling.max_consecutive_failures", cfg.Scheduler.ErrorHandling.MaxConsecutiveFailures)
	v.SetDefault("scheduler.error_handling.cooldown_minutes", cfg.Scheduler.ErrorHandling.CooldownMinutes)
	v.SetDefault("scheduler.error_handling.success_threshold", cfg.Scheduler.ErrorHandling.SuccessThreshold)

	v.SetDefault("notifications.enabled", cfg.Notifications.Enabled)
	v.SetDefault("notifications.webhook.method", cfg.Notifications.Webhook.Method)
	v.SetDefault("notifications.webhook.timeout", cfg.Notifications.Webhook.Timeout)
	v.SetDefault("notifications.email.smtp_port", cfg.Notifications.Email.SMTPPort)

	v.SetDefault("history.enabled", cfg.History.Enabled)
	v.SetDefault("history.path", cfg.History.Path)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.listen", cfg.Metrics.Listen)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

func expandEnvInConfig(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envVar := val[2 : len(val)-1]
			if envVal := os.Getenv(envVar); envVal != "" {
				v.Set(key, envVal)
			}
		}
	}
}

func ConfigFilePath(customPath string) (string, error) {
	if customPath != "" {
		absPath, err := filepath.Abs(customPath)
		if err != nil {
			return "", fmt.Errorf("resolving config path: %w", err)
		}
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", absPath)
		}
		return absPath, nil
	}

	searchPaths := []string{
		"relsync.yaml",
		"relsync.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "relsync", "relsync.yaml"),
		"/etc/relsync/relsync.yaml",
	}

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", ErrConfigNotFound
}
