package domain

import "time"

// RecoveryAction enumerates the remediation steps offered to users and the
// automatic recovery loop.
type RecoveryAction string

const (
	RecoveryRetry            RecoveryAction = "retry"
	RecoveryRefreshToken     RecoveryAction = "refresh_token"
	RecoveryFallbackPassword RecoveryAction = "fallback_to_password"
	RecoveryResetStorage     RecoveryAction = "reset_storage"
	RecoveryContactSupport   RecoveryAction = "contact_support"
	RecoveryForceLogout      RecoveryAction = "force_logout"
	RecoveryContinueOffline  RecoveryAction = "continue_offline"
	RecoveryManual           RecoveryAction = "manual_recovery"
)

// RecoveryOption is one entry of the user-selectable recovery menu.
// Ephemeral: constructed per error-handling call, never persisted.
type RecoveryOption struct {
	Action        RecoveryAction
	Label         string
	Severity      AlertLevel
	EstimatedTime time.Duration
}

// RecoveryResult reports the outcome of an executed or automatic recovery.
type RecoveryResult struct {
	Success   bool
	Action    RecoveryAction
	Error     string
	NextSteps []RecoveryAction
}

// ErrorAdvice is the classifier output used for immediate UI presentation.
type ErrorAdvice struct {
	Category     ErrorCategory
	UserMessage  string
	Actions      []RecoveryAction
	Severity     AlertLevel
	ShouldLogout bool
	ShouldRetry  bool
}
