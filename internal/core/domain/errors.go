package domain

import (
	"fmt"
	"time"
)

// ErrorCategory is the shared classification taxonomy consumed by both the
// error classifier and the recovery orchestrator.
type ErrorCategory string

const (
	CategoryNetwork      ErrorCategory = "network"
	CategoryTokenExpired ErrorCategory = "token_expired"
	CategoryTokenInvalid ErrorCategory = "token_invalid"
	CategoryBiometric    ErrorCategory = "biometric"
	CategoryPermission   ErrorCategory = "permission"
	CategoryStorage      ErrorCategory = "storage"
	CategoryGeneric      ErrorCategory = "generic"
)

// TokenErrorCode enumerates the structured token failure codes.
type TokenErrorCode string

const (
	TokenExpired    TokenErrorCode = "TOKEN_EXPIRED"
	TokenInvalid    TokenErrorCode = "TOKEN_INVALID"
	RefreshFailed   TokenErrorCode = "REFRESH_FAILED"
	StorageFailed   TokenErrorCode = "STORAGE_ERROR"
	BiometricFailed TokenErrorCode = "BIOMETRIC_ERROR"
)

// BiometricFailure enumerates biometric prompt outcomes that are not success.
type BiometricFailure string

const (
	BiometricNotAvailable BiometricFailure = "not_available"
	BiometricNotEnabled   BiometricFailure = "not_enabled"
	BiometricRejected     BiometricFailure = "failed"
	BiometricCancelled    BiometricFailure = "cancelled"
	BiometricLockout      BiometricFailure = "lockout"
)

// NetworkError describes a failed call to a remote collaborator.
type NetworkError struct {
	Status  int
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Timeout:
		return "network: request timed out"
	case e.Status != 0:
		return fmt.Sprintf("network: unexpected status %d", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("network: %v", e.Err)
	}
	return "network: request failed"
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TokenError describes a token lifecycle failure with a structured code.
type TokenError struct {
	Code TokenErrorCode
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("token %s", e.Code)
}

func (e *TokenError) Unwrap() error { return e.Err }

// BiometricError describes a failed biometric interaction.
type BiometricError struct {
	Type BiometricFailure
	Err  error
}

func (e *BiometricError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("biometric %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("biometric %s", e.Type)
}

func (e *BiometricError) Unwrap() error { return e.Err }

// StorageError wraps a secure storage failure so raw platform errors never
// reach callers directly.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// AuthError is the transient, user-facing error attached to AuthState.
// It is cleared on the next successful action or an explicit clear.
type AuthError struct {
	Code        string
	Message     string
	Recoverable bool
	Timestamp   time.Time
}
