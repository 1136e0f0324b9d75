package usecase

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
	"github.com/arklim/social-platform-authkit/internal/infra/config"
	"github.com/arklim/social-platform-authkit/internal/infra/telemetry"
)

// maxRetriesExceededMessage is the terminal auto-recovery answer once a
// category has exhausted its budget.
const maxRetriesExceededMessage = "Max retry attempts exceeded"

// ErrorClassifier turns subsystem failures into localized, actionable
// presentation results. It never exposes raw error text to the user.
type ErrorClassifier struct {
	logger *zap.Logger
}

// NewErrorClassifier constructs an ErrorClassifier.
func NewErrorClassifier(log *zap.Logger) *ErrorClassifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &ErrorClassifier{logger: log}
}

// HandleAuthError classifies the failure and produces the user-facing
// message, suggested actions, and logout/retry decisions.
func (c *ErrorClassifier) HandleAuthError(err error) domain.ErrorAdvice {
	category := Categorize(err)
	advice := domain.ErrorAdvice{Category: category}

	switch category {
	case domain.CategoryNetwork:
		var netErr *domain.NetworkError
		if errors.As(err, &netErr) && netErr.Status >= http.StatusInternalServerError {
			advice.UserMessage = "The server is having trouble right now. Please try again shortly."
			advice.Actions = []domain.RecoveryAction{domain.RecoveryRetry, domain.RecoveryContactSupport}
			advice.Severity = domain.AlertMedium
			advice.ShouldRetry = true
			break
		}
		advice.UserMessage = "Network connection problem. Check your connection and try again."
		advice.Actions = []domain.RecoveryAction{domain.RecoveryRetry, domain.RecoveryContinueOffline}
		advice.Severity = domain.AlertLow
		advice.ShouldRetry = true

	case domain.CategoryTokenExpired:
		advice.UserMessage = "Your session has expired. Please log in again."
		advice.Actions = []domain.RecoveryAction{domain.RecoveryRefreshToken, domain.RecoveryForceLogout}
		advice.Severity = domain.AlertMedium
		advice.ShouldLogout = true

	case domain.CategoryTokenInvalid:
		advice.UserMessage = "Your session is no longer valid. Please log in again."
		advice.Actions = []domain.RecoveryAction{domain.RecoveryForceLogout}
		advice.Severity = domain.AlertHigh
		advice.ShouldLogout = true

	case domain.CategoryBiometric:
		c.adviseBiometric(err, &advice)

	case domain.CategoryPermission:
		advice.UserMessage = "You don't have permission to perform this action."
		advice.Actions = []domain.RecoveryAction{domain.RecoveryContactSupport}
		advice.Severity = domain.AlertMedium

	case domain.CategoryStorage:
		advice.UserMessage = "Secure storage is unavailable. Try again or reset the app's local data."
		advice.Actions = []domain.RecoveryAction{domain.RecoveryRetry, domain.RecoveryResetStorage, domain.RecoveryContactSupport}
		advice.Severity = domain.AlertHigh
		advice.ShouldRetry = true

	default:
		advice.UserMessage = "Something went wrong. Please try again."
		advice.Actions = []domain.RecoveryAction{domain.RecoveryRetry, domain.RecoveryContactSupport}
		advice.Severity = domain.AlertLow
		advice.ShouldRetry = true
	}

	c.logger.Debug("auth error classified",
		zap.String("category", string(category)),
		zap.Bool("should_logout", advice.ShouldLogout),
		zap.Error(err),
	)

	return advice
}

func (c *ErrorClassifier) adviseBiometric(err error, advice *domain.ErrorAdvice) {
	failure := domain.BiometricRejected
	var biometricErr *domain.BiometricError
	if errors.As(err, &biometricErr) {
		failure = biometricErr.Type
	}

	advice.Severity = domain.AlertMedium

	switch failure {
	case domain.BiometricNotAvailable:
		advice.UserMessage = "Biometric authentication is not available on this device."
		advice.Actions = []domain.RecoveryAction{domain.RecoveryFallbackPassword}
	case domain.BiometricNotEnabled:
		advice.UserMessage = "Biometric login is not set up. Enable it in settings or use your password."
		advice.Actions = []domain.RecoveryAction{domain.RecoveryFallbackPassword}
	case domain.BiometricCancelled:
		advice.UserMessage = "Biometric authentication was cancelled."
		advice.Actions = []domain.RecoveryAction{domain.RecoveryRetry, domain.RecoveryFallbackPassword}
		advice.ShouldRetry = true
	case domain.BiometricLockout:
		advice.UserMessage = "Too many failed attempts. Biometric login is temporarily locked."
		advice.Actions = []domain.RecoveryAction{domain.RecoveryFallbackPassword, domain.RecoveryContactSupport}
		advice.Severity = domain.AlertHigh
	default:
		advice.UserMessage = "Biometric authentication failed. Try again or use your password."
		advice.Actions = []domain.RecoveryAction{domain.RecoveryRetry, domain.RecoveryFallbackPassword}
		advice.ShouldRetry = true
	}
}

// sessionController is the slice of the state machine the orchestrator uses
// for forced transitions.
type sessionController interface {
	ForceLogout(ctx context.Context, reason string) error
}

// RecoveryOrchestrator offers user-selectable recovery menus and performs
// bounded automatic remediation. It is the only component that retries.
type RecoveryOrchestrator struct {
	lifecycle *TokenLifecycleManager
	store     *SecureTokenStore
	session   sessionController
	cfg       config.RecoverySettings
	telemetry *telemetry.Provider
	logger    *zap.Logger

	mu       sync.Mutex
	attempts map[domain.ErrorCategory]int

	wait func(ctx context.Context, d time.Duration) error
}

// NewRecoveryOrchestrator constructs a RecoveryOrchestrator.
func NewRecoveryOrchestrator(lifecycle *TokenLifecycleManager, store *SecureTokenStore, cfg config.RecoverySettings, log *zap.Logger) *RecoveryOrchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxRetryAttempts <= 0 {
		cfg.MaxRetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &RecoveryOrchestrator{
		lifecycle: lifecycle,
		store:     store,
		cfg:       cfg,
		logger:    log,
		attempts:  make(map[domain.ErrorCategory]int),
		wait:      waitFor,
	}
}

// WithSessionController wires the state machine for forced logout execution.
func (o *RecoveryOrchestrator) WithSessionController(session sessionController) *RecoveryOrchestrator {
	o.session = session
	return o
}

// WithTelemetry wires the metrics provider.
func (o *RecoveryOrchestrator) WithTelemetry(provider *telemetry.Provider) *RecoveryOrchestrator {
	o.telemetry = provider
	return o
}

// WithWaiter overrides the delay primitive for deterministic tests.
func (o *RecoveryOrchestrator) WithWaiter(wait func(ctx context.Context, d time.Duration) error) {
	if wait != nil {
		o.wait = wait
	}
}

// RecoveryOptions builds the user-selectable menu for the supplied error.
// Options are ephemeral and never persisted.
func (o *RecoveryOrchestrator) RecoveryOptions(err error) []domain.RecoveryOption {
	switch Categorize(err) {
	case domain.CategoryNetwork:
		return []domain.RecoveryOption{
			{Action: domain.RecoveryRetry, Label: "Try again", Severity: domain.AlertLow, EstimatedTime: 5 * time.Second},
			{Action: domain.RecoveryContinueOffline, Label: "Continue offline", Severity: domain.AlertLow, EstimatedTime: time.Second},
			{Action: domain.RecoveryContactSupport, Label: "Contact support", Severity: domain.AlertMedium, EstimatedTime: 24 * time.Hour},
		}
	case domain.CategoryTokenExpired:
		return []domain.RecoveryOption{
			{Action: domain.RecoveryRefreshToken, Label: "Renew session", Severity: domain.AlertMedium, EstimatedTime: 10 * time.Second},
			{Action: domain.RecoveryForceLogout, Label: "Log in again", Severity: domain.AlertMedium, EstimatedTime: 30 * time.Second},
		}
	case domain.CategoryTokenInvalid:
		return []domain.RecoveryOption{
			{Action: domain.RecoveryForceLogout, Label: "Log in again", Severity: domain.AlertHigh, EstimatedTime: 30 * time.Second},
		}
	case domain.CategoryBiometric:
		return []domain.RecoveryOption{
			{Action: domain.RecoveryRetry, Label: "Try biometrics again", Severity: domain.AlertLow, EstimatedTime: 10 * time.Second},
			{Action: domain.RecoveryFallbackPassword, Label: "Use password instead", Severity: domain.AlertLow, EstimatedTime: 30 * time.Second},
		}
	case domain.CategoryPermission:
		return []domain.RecoveryOption{
			{Action: domain.RecoveryContactSupport, Label: "Contact support", Severity: domain.AlertMedium, EstimatedTime: 24 * time.Hour},
		}
	case domain.CategoryStorage:
		return []domain.RecoveryOption{
			{Action: domain.RecoveryRetry, Label: "Try again", Severity: domain.AlertMedium, EstimatedTime: 5 * time.Second},
			{Action: domain.RecoveryResetStorage, Label: "Reset local data", Severity: domain.AlertHigh, EstimatedTime: 15 * time.Second},
			{Action: domain.RecoveryContactSupport, Label: "Contact support", Severity: domain.AlertMedium, EstimatedTime: 24 * time.Hour},
		}
	default:
		return []domain.RecoveryOption{
			{Action: domain.RecoveryRetry, Label: "Try again", Severity: domain.AlertLow, EstimatedTime: 5 * time.Second},
			{Action: domain.RecoveryContactSupport, Label: "Contact support", Severity: domain.AlertMedium, EstimatedTime: 24 * time.Hour},
		}
	}
}

// ExecuteRecovery performs one user-selected recovery action.
func (o *RecoveryOrchestrator) ExecuteRecovery(ctx context.Context, action domain.RecoveryAction) domain.RecoveryResult {
	result := domain.RecoveryResult{Action: action}

	switch action {
	case domain.RecoveryRetry, domain.RecoveryContinueOffline, domain.RecoveryFallbackPassword:
		// Nothing to execute here: the caller repeats its operation (or
		// switches flow) and reports the outcome.
		result.Success = true

	case domain.RecoveryRefreshToken:
		if _, err := o.lifecycle.RefreshTokens(ctx); err != nil {
			result.Error = "Session renewal failed"
			result.NextSteps = []domain.RecoveryAction{domain.RecoveryForceLogout}
			break
		}
		result.Success = true

	case domain.RecoveryResetStorage:
		if err := o.store.ClearAll(ctx); err != nil {
			result.Error = "Resetting local data failed"
			result.NextSteps = []domain.RecoveryAction{domain.RecoveryContactSupport}
			break
		}
		result.Success = true
		result.NextSteps = []domain.RecoveryAction{domain.RecoveryRetry}

	case domain.RecoveryForceLogout:
		if o.session != nil {
			if err := o.session.ForceLogout(ctx, "recovery"); err != nil {
				o.logger.Warn("forced logout reported failure", zap.Error(err))
			}
		}
		// Logout is fail-open; the local session is gone either way.
		result.Success = true

	case domain.RecoveryContactSupport, domain.RecoveryManual:
		result.Success = true

	default:
		result.Error = "Unknown recovery action"
	}

	return result
}

// AttemptAutoRecovery runs the per-category automatic strategy, bounded by
// MaxRetryAttempts. The counter resets on success and increments on failure;
// once exceeded, automatic recovery stops until a success elsewhere.
func (o *RecoveryOrchestrator) AttemptAutoRecovery(ctx context.Context, err error) domain.RecoveryResult {
	category := Categorize(err)

	o.mu.Lock()
	if o.attempts[category] >= o.cfg.MaxRetryAttempts {
		o.mu.Unlock()
		o.countAttempt(category, "exhausted")
		return domain.RecoveryResult{
			Success:   false,
			Error:     maxRetriesExceededMessage,
			NextSteps: []domain.RecoveryAction{domain.RecoveryManual, domain.RecoveryContactSupport},
		}
	}
	o.mu.Unlock()

	result := o.runStrategy(ctx, category)

	o.mu.Lock()
	if result.Success {
		o.attempts[category] = 0
	} else {
		o.attempts[category]++
	}
	o.mu.Unlock()

	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	o.countAttempt(category, outcome)

	return result
}

func (o *RecoveryOrchestrator) runStrategy(ctx context.Context, category domain.ErrorCategory) domain.RecoveryResult {
	switch category {
	case domain.CategoryTokenExpired:
		if _, err := o.lifecycle.RefreshTokens(ctx); err != nil {
			return domain.RecoveryResult{
				Action:    domain.RecoveryRefreshToken,
				Error:     "Session renewal failed",
				NextSteps: []domain.RecoveryAction{domain.RecoveryForceLogout},
			}
		}
		return domain.RecoveryResult{Success: true, Action: domain.RecoveryRefreshToken}

	case domain.CategoryNetwork:
		// Waiting out the delay is the whole strategy: the caller's next
		// request confirms (or denies) recovery.
		if err := o.wait(ctx, o.cfg.RetryDelay); err != nil {
			return domain.RecoveryResult{Action: domain.RecoveryRetry, Error: "Recovery cancelled"}
		}
		return domain.RecoveryResult{Success: true, Action: domain.RecoveryRetry}

	case domain.CategoryBiometric:
		// Requires user presence; never auto-recovered.
		return domain.RecoveryResult{
			Action:    domain.RecoveryFallbackPassword,
			Error:     "Biometric recovery requires the user",
			NextSteps: []domain.RecoveryAction{domain.RecoveryFallbackPassword},
		}

	case domain.CategoryStorage:
		if err := o.store.ClearAll(ctx); err != nil {
			return domain.RecoveryResult{
				Action:    domain.RecoveryResetStorage,
				Error:     "Clearing secure storage failed",
				NextSteps: []domain.RecoveryAction{domain.RecoveryContactSupport},
			}
		}
		return domain.RecoveryResult{Success: true, Action: domain.RecoveryResetStorage, NextSteps: []domain.RecoveryAction{domain.RecoveryRetry}}

	case domain.CategoryTokenInvalid, domain.CategoryPermission:
		return domain.RecoveryResult{
			Action:    domain.RecoveryForceLogout,
			Error:     "Session must be re-established",
			NextSteps: []domain.RecoveryAction{domain.RecoveryForceLogout},
		}

	default:
		if err := o.wait(ctx, o.cfg.RetryDelay); err != nil {
			return domain.RecoveryResult{Action: domain.RecoveryRetry, Error: "Recovery cancelled"}
		}
		return domain.RecoveryResult{
			Action:    domain.RecoveryRetry,
			Error:     "No automatic remediation available",
			NextSteps: []domain.RecoveryAction{domain.RecoveryRetry, domain.RecoveryContactSupport},
		}
	}
}

func (o *RecoveryOrchestrator) countAttempt(category domain.ErrorCategory, outcome string) {
	if o.telemetry == nil {
		return
	}
	o.telemetry.RecoveryAttempts.WithLabelValues(string(category), outcome).Inc()
}

func waitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
