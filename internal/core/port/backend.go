package port

import (
	"context"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
)

// LoginResult carries the successful outcome of a credential login.
type LoginResult struct {
	User   domain.User
	Tokens domain.TokenPair
}

// AuthBackend is the hosted authentication service contract. Tokens received
// from it are already signed server-side and treated as opaque by the client.
type AuthBackend interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	ReauthenticateWithPassword(ctx context.Context, password string) error
	AuthenticateWithBiometric(ctx context.Context) error
	EnableBiometric(ctx context.Context) (bool, error)
	DisableBiometric(ctx context.Context) (bool, error)
}

// AutoLoginResult reports the outcome of a silent login attempt at startup.
type AutoLoginResult struct {
	Success bool
	User    *domain.User
	Method  domain.LoginMethod
}

// AutoLoginService attempts to restore a session without user interaction.
type AutoLoginService interface {
	AttemptAutoLogin(ctx context.Context) (AutoLoginResult, error)
}

// LogoutService terminates the server-side session. Callers must treat local
// logout as unconditional regardless of what this collaborator reports.
type LogoutService interface {
	Logout(ctx context.Context, reason string) error
	ForceLogout(ctx context.Context, reason string) error
}
