package port

import "context"

// DeviceIdentity supplies the stable device identifier used for session and
// security-event tagging.
type DeviceIdentity interface {
	DeviceID(ctx context.Context) (string, error)
}

// BiometricAuthenticator fronts the platform biometric prompt. Authenticate
// returns a domain.BiometricError describing the failure mode when the user
// is not verified.
type BiometricAuthenticator interface {
	Available(ctx context.Context) bool
	Authenticate(ctx context.Context, reason string) error
}
