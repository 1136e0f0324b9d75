package usecase

import (
	"errors"
	"net/http"
	"strings"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
)

// Categorize maps any failure from the subsystem onto the shared taxonomy.
// Both the classifier and the recovery orchestrator consume this single
// function so the two layers can never disagree about what kind of error
// occurred.
func Categorize(err error) domain.ErrorCategory {
	if err == nil {
		return domain.CategoryGeneric
	}

	var tokenErr *domain.TokenError
	if errors.As(err, &tokenErr) {
		switch tokenErr.Code {
		case domain.TokenExpired:
			return domain.CategoryTokenExpired
		case domain.TokenInvalid:
			return domain.CategoryTokenInvalid
		case domain.RefreshFailed:
			// A rejected refresh usually means the session must be
			// re-established; treat it as expiry unless the cause
			// was transport-level.
			if cat := categorizeWrapped(tokenErr.Err); cat == domain.CategoryNetwork {
				return domain.CategoryNetwork
			}
			return domain.CategoryTokenExpired
		case domain.StorageFailed:
			return domain.CategoryStorage
		case domain.BiometricFailed:
			return domain.CategoryBiometric
		}
	}

	var biometricErr *domain.BiometricError
	if errors.As(err, &biometricErr) {
		return domain.CategoryBiometric
	}

	var storageErr *domain.StorageError
	if errors.As(err, &storageErr) {
		return domain.CategoryStorage
	}

	var netErr *domain.NetworkError
	if errors.As(err, &netErr) {
		switch {
		case netErr.Status == http.StatusUnauthorized:
			return domain.CategoryTokenInvalid
		case netErr.Status == http.StatusForbidden:
			return domain.CategoryPermission
		default:
			return domain.CategoryNetwork
		}
	}

	return categorizeMessage(err.Error())
}

func categorizeWrapped(err error) domain.ErrorCategory {
	if err == nil {
		return domain.CategoryGeneric
	}
	var netErr *domain.NetworkError
	if errors.As(err, &netErr) && netErr.Status != http.StatusUnauthorized && netErr.Status != http.StatusForbidden {
		return domain.CategoryNetwork
	}
	return domain.CategoryGeneric
}

// categorizeMessage is the substring heuristic fallback for unstructured
// errors coming out of platform collaborators.
func categorizeMessage(message string) domain.ErrorCategory {
	lowered := strings.ToLower(message)

	switch {
	case containsAny(lowered, "network", "timeout", "offline", "connection refused", "no such host"):
		return domain.CategoryNetwork
	case containsAny(lowered, "token expired", "jwt expired", "expired"):
		return domain.CategoryTokenExpired
	case containsAny(lowered, "invalid token", "malformed", "token is invalid", "unauthorized"):
		return domain.CategoryTokenInvalid
	case containsAny(lowered, "biometric", "face id", "fingerprint", "touch id"):
		return domain.CategoryBiometric
	case containsAny(lowered, "permission", "forbidden", "denied"):
		return domain.CategoryPermission
	case containsAny(lowered, "storage", "keychain", "secure store", "enclave"):
		return domain.CategoryStorage
	}

	return domain.CategoryGeneric
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
