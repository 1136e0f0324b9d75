package domain

import "time"

// LoginMethod identifies how the current session was established.
type LoginMethod string

const (
	LoginMethodPassword  LoginMethod = "password"
	LoginMethodBiometric LoginMethod = "biometric"
	LoginMethodToken     LoginMethod = "token"
	LoginMethodAuto      LoginMethod = "auto"
)

// SessionInfo describes the live client session. It is recreated on every
// successful authentication and its expiry is re-derived on every refresh.
type SessionInfo struct {
	LoginMethod LoginMethod
	LoginTime   time.Time
	ExpiresAt   time.Time
	DeviceID    string
	SessionID   string
}

// IsExpired reports whether the session has elapsed its validity window.
func (s SessionInfo) IsExpired(at time.Time) bool {
	return !s.ExpiresAt.After(at)
}

// WithExpiry returns a copy of the session carrying a new expiry timestamp.
// Used on refresh, which must not touch any other session field.
func (s SessionInfo) WithExpiry(expiresAt time.Time) SessionInfo {
	s.ExpiresAt = expiresAt
	return s
}
