package domain

import (
	"fmt"
	"time"
)

// TokenPair bundles the access and refresh credentials issued by the platform
// together with their expiry timestamps.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
}

// Validate enforces the creation invariant: both expiry timestamps must lie
// strictly in the future at the supplied moment.
func (p TokenPair) Validate(at time.Time) error {
	if p.AccessToken == "" {
		return fmt.Errorf("token pair: access token is required")
	}
	if p.RefreshToken == "" {
		return fmt.Errorf("token pair: refresh token is required")
	}
	if !p.ExpiresAt.After(at) {
		return fmt.Errorf("token pair: access expiry %s is not in the future", p.ExpiresAt.Format(time.RFC3339))
	}
	if !p.RefreshExpiresAt.After(at) {
		return fmt.Errorf("token pair: refresh expiry %s is not in the future", p.RefreshExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// IsExpired reports whether the access token has elapsed its validity window.
func (p TokenPair) IsExpired(at time.Time) bool {
	return !p.ExpiresAt.After(at)
}

// RefreshExpired reports whether the refresh token can no longer be presented.
func (p TokenPair) RefreshExpired(at time.Time) bool {
	return !p.RefreshExpiresAt.After(at)
}
