package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "authkit" {
		t.Fatalf("app name %q", cfg.App.Name)
	}
	if cfg.Tokens.AutoRefreshThreshold != 10*time.Minute {
		t.Fatalf("auto refresh threshold %v", cfg.Tokens.AutoRefreshThreshold)
	}
	if cfg.Tokens.ActivityInterval != time.Minute {
		t.Fatalf("activity interval %v", cfg.Tokens.ActivityInterval)
	}

	sec := cfg.Security
	if sec.MaxRefreshesPerHour != 10 || sec.MaxFailedValidationsPerHour != 5 || sec.MaxTokenAgeHours != 24 {
		t.Fatalf("security hourly thresholds: %+v", sec)
	}
	if sec.RapidRefreshThreshold != 3 || sec.RapidRefreshWindow != 2*time.Minute {
		t.Fatalf("rapid refresh settings: %+v", sec)
	}
	if sec.BurstThreshold != 10 || sec.BurstWindow != 5*time.Minute {
		t.Fatalf("burst settings: %+v", sec)
	}
	if sec.ValidationFailureThreshold != 3 || sec.ValidationFailureWindow != 30*time.Minute {
		t.Fatalf("validation failure settings: %+v", sec)
	}
	if sec.MaxEvents != 1000 || sec.MaxAlerts != 500 {
		t.Fatalf("history caps: %+v", sec)
	}
	if sec.AutoResolveAfter != 5*time.Minute || sec.SweepInterval != time.Hour {
		t.Fatalf("sweep settings: %+v", sec)
	}

	if cfg.Recovery.MaxRetryAttempts != 3 || cfg.Recovery.RetryDelay != 2*time.Second {
		t.Fatalf("recovery settings: %+v", cfg.Recovery)
	}
	if cfg.Deletion.ConfirmationSteps != 3 || !cfg.Deletion.BackupData || !cfg.Deletion.RequirePassword {
		t.Fatalf("deletion settings: %+v", cfg.Deletion)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AUTHKIT_APP_ENV", "production")
	t.Setenv("AUTHKIT_BACKEND_BASE_URL", "https://api.example.net")
	t.Setenv("AUTHKIT_RECOVERY_MAX_RETRY_ATTEMPTS", "5")
	t.Setenv("AUTHKIT_TOKENS_AUTO_REFRESH_THRESHOLD", "15m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("env %q", cfg.App.Env)
	}
	if cfg.Backend.BaseURL != "https://api.example.net" {
		t.Fatalf("base url %q", cfg.Backend.BaseURL)
	}
	if cfg.Recovery.MaxRetryAttempts != 5 {
		t.Fatalf("max retry attempts %d", cfg.Recovery.MaxRetryAttempts)
	}
	if cfg.Tokens.AutoRefreshThreshold != 15*time.Minute {
		t.Fatalf("auto refresh threshold %v", cfg.Tokens.AutoRefreshThreshold)
	}
}
