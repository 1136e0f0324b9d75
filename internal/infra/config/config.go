package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Backend   BackendSettings   `mapstructure:"backend"`
	Storage   StorageSettings   `mapstructure:"storage"`
	Tokens    TokenSettings     `mapstructure:"tokens"`
	Security  SecuritySettings  `mapstructure:"security"`
	Recovery  RecoverySettings  `mapstructure:"recovery"`
	Deletion  DeletionSettings  `mapstructure:"deletion"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// BackendSettings configures the hosted platform API client.
type BackendSettings struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageSettings configures the on-device secure storage.
type StorageSettings struct {
	Directory string `mapstructure:"directory"`
}

// TokenSettings configures the token lifecycle manager.
type TokenSettings struct {
	AutoRefreshThreshold time.Duration `mapstructure:"auto_refresh_threshold"`
	ActivityInterval     time.Duration `mapstructure:"activity_interval"`
}

// SecuritySettings configures the anomaly-detection thresholds and retention
// of the security monitor.
type SecuritySettings struct {
	MaxRefreshesPerHour         int           `mapstructure:"max_refreshes_per_hour"`
	MaxFailedValidationsPerHour int           `mapstructure:"max_failed_validations_per_hour"`
	MaxTokenAgeHours            int           `mapstructure:"max_token_age_hours"`
	RapidRefreshThreshold       int           `mapstructure:"rapid_refresh_threshold"`
	RapidRefreshWindow          time.Duration `mapstructure:"rapid_refresh_window"`
	BurstWindow                 time.Duration `mapstructure:"burst_window"`
	BurstThreshold              int           `mapstructure:"burst_threshold"`
	ValidationFailureWindow     time.Duration `mapstructure:"validation_failure_window"`
	ValidationFailureThreshold  int           `mapstructure:"validation_failure_threshold"`
	EventRetention              time.Duration `mapstructure:"event_retention"`
	SweepInterval               time.Duration `mapstructure:"sweep_interval"`
	AutoResolveAfter            time.Duration `mapstructure:"auto_resolve_after"`
	MaxEvents                   int           `mapstructure:"max_events"`
	MaxAlerts                   int           `mapstructure:"max_alerts"`
}

// RecoverySettings bounds the automatic recovery loop.
type RecoverySettings struct {
	MaxRetryAttempts int           `mapstructure:"max_retry_attempts"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
}

// DeletionSettings configures the account deletion workflow.
type DeletionSettings struct {
	ConfirmationSteps int  `mapstructure:"confirmation_steps"`
	GracePeriodDays   int  `mapstructure:"grace_period_days"`
	BackupData        bool `mapstructure:"backup_data"`
	RequireBiometric  bool `mapstructure:"require_biometric"`
	RequirePassword   bool `mapstructure:"require_password"`
}

type TelemetrySettings struct {
	Namespace string `mapstructure:"namespace"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTHKIT")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"backend.base_url",
		"backend.timeout",
		"storage.directory",
		"tokens.auto_refresh_threshold",
		"tokens.activity_interval",
		"security.max_refreshes_per_hour",
		"security.max_failed_validations_per_hour",
		"security.max_token_age_hours",
		"security.rapid_refresh_threshold",
		"security.rapid_refresh_window",
		"security.burst_window",
		"security.burst_threshold",
		"security.validation_failure_window",
		"security.validation_failure_threshold",
		"security.event_retention",
		"security.sweep_interval",
		"security.auto_resolve_after",
		"security.max_events",
		"security.max_alerts",
		"recovery.max_retry_attempts",
		"recovery.retry_delay",
		"deletion.confirmation_steps",
		"deletion.grace_period_days",
		"deletion.backup_data",
		"deletion.require_biometric",
		"deletion.require_password",
		"telemetry.namespace",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "authkit")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "127.0.0.1")
	v.SetDefault("app.port", 8791)

	v.SetDefault("backend.base_url", "https://api.social-platform.dev")
	v.SetDefault("backend.timeout", "30s")

	v.SetDefault("storage.directory", "./secrets")

	v.SetDefault("tokens.auto_refresh_threshold", "10m")
	v.SetDefault("tokens.activity_interval", "1m")

	v.SetDefault("security.max_refreshes_per_hour", 10)
	v.SetDefault("security.max_failed_validations_per_hour", 5)
	v.SetDefault("security.max_token_age_hours", 24)
	v.SetDefault("security.rapid_refresh_threshold", 3)
	v.SetDefault("security.rapid_refresh_window", "2m")
	v.SetDefault("security.burst_window", "5m")
	v.SetDefault("security.burst_threshold", 10)
	v.SetDefault("security.validation_failure_window", "30m")
	v.SetDefault("security.validation_failure_threshold", 3)
	v.SetDefault("security.event_retention", "24h")
	v.SetDefault("security.sweep_interval", "1h")
	v.SetDefault("security.auto_resolve_after", "5m")
	v.SetDefault("security.max_events", 1000)
	v.SetDefault("security.max_alerts", 500)

	v.SetDefault("recovery.max_retry_attempts", 3)
	v.SetDefault("recovery.retry_delay", "2s")

	v.SetDefault("deletion.confirmation_steps", 3)
	v.SetDefault("deletion.grace_period_days", 0)
	v.SetDefault("deletion.backup_data", true)
	v.SetDefault("deletion.require_biometric", false)
	v.SetDefault("deletion.require_password", true)

	v.SetDefault("telemetry.namespace", "authkit")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "AUTHKIT_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
