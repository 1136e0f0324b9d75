package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
	"github.com/arklim/social-platform-authkit/internal/core/port"
	"github.com/arklim/social-platform-authkit/internal/infra/logger"
	"github.com/arklim/social-platform-authkit/internal/infra/telemetry"
)

const defaultAutoRefreshThreshold = 10 * time.Minute

// securityRecorder is the narrow slice of the security monitor the other
// components feed. Ingestion must never block or fail a caller.
type securityRecorder interface {
	LogSecurityEvent(event domain.SecurityEvent)
}

// tokenAgeChecker is satisfied by the security monitor when token age
// anomaly detection is enabled.
type tokenAgeChecker interface {
	CheckTokenAge(userID string, issuedAt time.Time)
}

// TokenLifecycleManager owns token persistence, expiry decisions, and
// refresh orchestration. Claims are decoded without signature verification
// purely for UX and refresh scheduling; the backend remains the authority on
// token validity.
type TokenLifecycleManager struct {
	store     *SecureTokenStore
	backend   port.AuthBackend
	device    port.DeviceIdentity
	monitor   securityRecorder
	telemetry *telemetry.Provider
	threshold time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewTokenLifecycleManager constructs a TokenLifecycleManager.
func NewTokenLifecycleManager(store *SecureTokenStore, backend port.AuthBackend, device port.DeviceIdentity, threshold time.Duration, log *zap.Logger) *TokenLifecycleManager {
	if log == nil {
		log = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = defaultAutoRefreshThreshold
	}
	manager := &TokenLifecycleManager{
		store:     store,
		backend:   backend,
		device:    device,
		threshold: threshold,
		logger:    log,
	}
	manager.now = func() time.Time { return time.Now().UTC() }
	return manager
}

// WithClock overrides the manager clock for deterministic tests.
func (m *TokenLifecycleManager) WithClock(clock func() time.Time) {
	if clock != nil {
		m.now = clock
	}
}

// WithSecurityRecorder wires the security monitor for event emission.
func (m *TokenLifecycleManager) WithSecurityRecorder(recorder securityRecorder) *TokenLifecycleManager {
	m.monitor = recorder
	return m
}

// WithTelemetry wires the metrics provider.
func (m *TokenLifecycleManager) WithTelemetry(provider *telemetry.Provider) *TokenLifecycleManager {
	m.telemetry = provider
	return m
}

// ValidateTokenFormat reports whether the token has exactly three
// dot-separated segments whose header and payload decode to JSON.
func (m *TokenLifecycleManager) ValidateTokenFormat(token string) bool {
	if token == "" {
		return false
	}
	_, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	return err == nil
}

// TokenExpiry decodes the unverified exp claim of the token.
func (m *TokenLifecycleManager) TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("decode token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("token has no usable exp claim")
	}
	return exp.Time, nil
}

// IsTokenExpired compares the exp claim against the current time. Malformed
// payloads are treated as expired, failing closed.
func (m *TokenLifecycleManager) IsTokenExpired(token string) bool {
	expiresAt, err := m.TokenExpiry(token)
	if err != nil {
		return true
	}
	return !expiresAt.After(m.now())
}

// ShouldRefreshToken reports whether the remaining lifetime has fallen under
// the auto-refresh threshold. Distinct from expiry so refresh can happen
// proactively before a request fails.
func (m *TokenLifecycleManager) ShouldRefreshToken(token string) bool {
	expiresAt, err := m.TokenExpiry(token)
	if err != nil {
		return true
	}
	return expiresAt.Sub(m.now()) < m.threshold
}

// StoreTokens persists a freshly issued pair through the secure store.
func (m *TokenLifecycleManager) StoreTokens(ctx context.Context, pair domain.TokenPair) error {
	now := m.now()
	if err := pair.Validate(now); err != nil {
		return &domain.TokenError{Code: domain.TokenInvalid, Err: err}
	}

	accessExpiry := pair.ExpiresAt
	refreshExpiry := pair.RefreshExpiresAt

	if err := m.store.SetSecureItem(ctx, KeyAccessToken, pair.AccessToken, ItemOptions{ExpiresAt: &accessExpiry}); err != nil {
		return &domain.TokenError{Code: domain.StorageFailed, Err: err}
	}
	if err := m.store.SetSecureItem(ctx, KeyRefreshToken, pair.RefreshToken, ItemOptions{ExpiresAt: &refreshExpiry}); err != nil {
		return &domain.TokenError{Code: domain.StorageFailed, Err: err}
	}
	if err := m.store.SetSecureItem(ctx, KeyTokenExpiry, pair.ExpiresAt.Format(time.RFC3339), ItemOptions{}); err != nil {
		return &domain.TokenError{Code: domain.StorageFailed, Err: err}
	}
	if err := m.store.SetSecureItem(ctx, KeyRefreshExpiry, pair.RefreshExpiresAt.Format(time.RFC3339), ItemOptions{}); err != nil {
		return &domain.TokenError{Code: domain.StorageFailed, Err: err}
	}

	return nil
}

// AccessToken returns the stored access token while unexpired.
func (m *TokenLifecycleManager) AccessToken(ctx context.Context) (string, bool, error) {
	return m.store.GetSecureItem(ctx, KeyAccessToken)
}

// StoredRefreshToken returns the stored refresh token while unexpired.
func (m *TokenLifecycleManager) StoredRefreshToken(ctx context.Context) (string, bool, error) {
	return m.store.GetSecureItem(ctx, KeyRefreshToken)
}

// RefreshTokens exchanges the stored refresh token for a new pair. The
// manager never retries on its own; bounded retry is the recovery
// orchestrator's responsibility.
func (m *TokenLifecycleManager) RefreshTokens(ctx context.Context) (domain.TokenPair, error) {
	refreshToken, found, err := m.StoredRefreshToken(ctx)
	if err != nil {
		return domain.TokenPair{}, &domain.TokenError{Code: domain.StorageFailed, Err: err}
	}
	if !found {
		m.recordEvent(ctx, domain.EventTokenValidationFail, "", map[string]any{"reason": "refresh_token_missing"})
		return domain.TokenPair{}, &domain.TokenError{Code: domain.RefreshFailed, Err: fmt.Errorf("no refresh token available")}
	}

	if checker, ok := m.monitor.(tokenAgeChecker); ok {
		if accessToken, found, err := m.AccessToken(ctx); err == nil && found {
			if issuedAt, ok := m.issuedAt(accessToken); ok {
				checker.CheckTokenAge(m.userIDFromToken(accessToken), issuedAt)
			}
		}
	}

	pair, err := m.backend.RefreshTokens(ctx, refreshToken)
	if err != nil {
		m.recordEvent(ctx, domain.EventTokenValidationFail, "", map[string]any{"reason": "refresh_rejected"})
		return domain.TokenPair{}, &domain.TokenError{Code: domain.RefreshFailed, Err: err}
	}

	if err := m.StoreTokens(ctx, pair); err != nil {
		return domain.TokenPair{}, err
	}

	if m.telemetry != nil {
		m.telemetry.TokenRefreshes.Inc()
	}
	m.recordEvent(ctx, domain.EventTokenRefresh, m.userIDFromToken(pair.AccessToken), map[string]any{
		"expires_at": pair.ExpiresAt.Format(time.RFC3339),
	})
	m.logger.Debug("tokens refreshed", zap.String("access_token", logger.MaskToken(pair.AccessToken)))

	return pair, nil
}

// ClearTokens removes all token material. Logout must never get stuck on a
// storage hiccup, so per-key failures are logged and swallowed.
func (m *TokenLifecycleManager) ClearTokens(ctx context.Context) {
	if err := m.store.ClearAll(ctx); err != nil {
		m.logger.Warn("clear tokens incomplete", zap.Error(err))
	}
}

func (m *TokenLifecycleManager) recordEvent(ctx context.Context, eventType domain.SecurityEventType, userID string, details map[string]any) {
	if m.monitor == nil {
		return
	}
	deviceID := ""
	if m.device != nil {
		if id, err := m.device.DeviceID(ctx); err == nil {
			deviceID = id
		}
	}
	m.monitor.LogSecurityEvent(domain.SecurityEvent{
		Type:      eventType,
		UserID:    userID,
		DeviceID:  deviceID,
		Timestamp: m.now(),
		Details:   details,
	})
}

func (m *TokenLifecycleManager) issuedAt(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return time.Time{}, false
	}
	return iat.Time, true
}

func (m *TokenLifecycleManager) userIDFromToken(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	if uid, ok := claims["uid"].(string); ok {
		return uid
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}
