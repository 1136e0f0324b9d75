package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
	"github.com/arklim/social-platform-authkit/internal/core/port"
	"github.com/arklim/social-platform-authkit/internal/infra/security"
)

// Fixed secure storage keys. ClearAll removes exactly this set; nothing else
// in the subsystem touches storage keys directly.
const (
	KeyAccessToken      = "authkit.access_token"
	KeyRefreshToken     = "authkit.refresh_token"
	KeyTokenExpiry      = "authkit.token_expiry"
	KeyRefreshExpiry    = "authkit.refresh_expiry"
	KeyBiometricEnabled = "authkit.biometric_enabled"
	KeyDeviceKey        = "authkit.device_key"
)

func fixedKeys() []string {
	return []string{
		KeyAccessToken,
		KeyRefreshToken,
		KeyTokenExpiry,
		KeyRefreshExpiry,
		KeyBiometricEnabled,
	}
}

// ItemOptions control how a secure item is written.
type ItemOptions struct {
	RequiresBiometric bool
	ExpiresAt         *time.Time
}

// envelope is the persisted wrapper around every secure value.
type envelope struct {
	Value             string     `json:"value"`
	Encrypted         bool       `json:"encrypted"`
	CreatedAt         time.Time  `json:"createdAt"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	RequiresBiometric bool       `json:"requiresBiometric"`
}

// SecureTokenStore wraps the platform secure storage with envelope
// encryption, lazy expiry, and optional biometric gating. It is the single
// choke point for all persisted secrets.
type SecureTokenStore struct {
	storage   port.SecureStorage
	cipher    *security.Cipher
	biometric port.BiometricAuthenticator
	logger    *zap.Logger
	now       func() time.Time
}

// NewSecureTokenStore constructs a SecureTokenStore.
func NewSecureTokenStore(storage port.SecureStorage, cipher *security.Cipher, biometric port.BiometricAuthenticator, logger *zap.Logger) *SecureTokenStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := &SecureTokenStore{
		storage:   storage,
		cipher:    cipher,
		biometric: biometric,
		logger:    logger,
	}
	store.now = func() time.Time { return time.Now().UTC() }
	return store
}

// WithClock overrides the store clock for deterministic tests.
func (s *SecureTokenStore) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// SetSecureItem seals the value into an envelope and persists it.
func (s *SecureTokenStore) SetSecureItem(ctx context.Context, key, value string, opts ItemOptions) error {
	if key == "" {
		return &domain.StorageError{Op: "set", Err: fmt.Errorf("key is required")}
	}

	sealed, err := s.cipher.Seal(value)
	if err != nil {
		return &domain.StorageError{Op: "set", Key: key, Err: err}
	}

	env := envelope{
		Value:             sealed,
		Encrypted:         true,
		CreatedAt:         s.now(),
		ExpiresAt:         opts.ExpiresAt,
		RequiresBiometric: opts.RequiresBiometric,
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return &domain.StorageError{Op: "set", Key: key, Err: err}
	}

	if err := s.storage.SetItem(ctx, key, string(raw)); err != nil {
		return &domain.StorageError{Op: "set", Key: key, Err: err}
	}

	return nil
}

// GetSecureItem reads and unseals a stored value. An envelope past its expiry
// is treated as absent and proactively removed. Biometric-gated entries
// require a fresh biometric verification before the value is released.
func (s *SecureTokenStore) GetSecureItem(ctx context.Context, key string) (string, bool, error) {
	raw, found, err := s.storage.GetItem(ctx, key)
	if err != nil {
		return "", false, &domain.StorageError{Op: "get", Key: key, Err: err}
	}
	if !found {
		return "", false, nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return "", false, &domain.StorageError{Op: "get", Key: key, Err: err}
	}

	if env.ExpiresAt != nil && !env.ExpiresAt.After(s.now()) {
		if err := s.storage.DeleteItem(ctx, key); err != nil {
			s.logger.Warn("remove expired secure item failed", zap.String("key", key), zap.Error(err))
		}
		return "", false, nil
	}

	if env.RequiresBiometric {
		if s.biometric == nil || !s.biometric.Available(ctx) {
			return "", false, &domain.BiometricError{Type: domain.BiometricNotAvailable}
		}
		if err := s.biometric.Authenticate(ctx, "Unlock secure item"); err != nil {
			if _, ok := err.(*domain.BiometricError); ok {
				return "", false, err
			}
			return "", false, &domain.BiometricError{Type: domain.BiometricRejected, Err: err}
		}
	}

	if !env.Encrypted {
		return env.Value, true, nil
	}

	plaintext, err := s.cipher.Open(env.Value)
	if err != nil {
		// Fail closed: an envelope that no longer authenticates is
		// never surfaced, even partially.
		return "", false, &domain.StorageError{Op: "get", Key: key, Err: err}
	}

	return plaintext, true, nil
}

// RemoveSecureItem deletes the stored value. Removing an absent key is not
// an error.
func (s *SecureTokenStore) RemoveSecureItem(ctx context.Context, key string) error {
	if err := s.storage.DeleteItem(ctx, key); err != nil {
		return &domain.StorageError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

// ClearAll removes every fixed key independently so one failing removal
// never blocks the others. Per-key failures are aggregated, not atomic.
func (s *SecureTokenStore) ClearAll(ctx context.Context) error {
	var errs error
	for _, key := range fixedKeys() {
		if err := s.storage.DeleteItem(ctx, key); err != nil {
			s.logger.Warn("clear secure item failed", zap.String("key", key), zap.Error(err))
			errs = multierr.Append(errs, &domain.StorageError{Op: "clear", Key: key, Err: err})
		}
	}
	return errs
}

// Available reports whether the underlying platform storage is usable.
func (s *SecureTokenStore) Available(ctx context.Context) bool {
	return s.storage.Available(ctx)
}
