package usecase

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
	"github.com/arklim/social-platform-authkit/internal/core/port"
)

// AutoLoginManager restores a session at startup from persisted tokens,
// refreshing proactively when the access token is close to expiry. A client
// with no usable tokens simply starts signed out; that is not an error.
type AutoLoginManager struct {
	lifecycle *TokenLifecycleManager
	logger    *zap.Logger
}

// NewAutoLoginManager constructs an AutoLoginManager.
func NewAutoLoginManager(lifecycle *TokenLifecycleManager, log *zap.Logger) *AutoLoginManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &AutoLoginManager{lifecycle: lifecycle, logger: log}
}

// AttemptAutoLogin tries, in order: a live stored access token (refreshing it
// when under the threshold), then a full refresh from the stored refresh
// token. Failure of either path yields a signed-out result, not an error.
func (a *AutoLoginManager) AttemptAutoLogin(ctx context.Context) (port.AutoLoginResult, error) {
	accessToken, found, err := a.lifecycle.AccessToken(ctx)
	if err != nil {
		return port.AutoLoginResult{}, err
	}

	if found && !a.lifecycle.IsTokenExpired(accessToken) {
		if a.lifecycle.ShouldRefreshToken(accessToken) {
			if pair, err := a.lifecycle.RefreshTokens(ctx); err == nil {
				accessToken = pair.AccessToken
			} else {
				a.logger.Debug("proactive refresh during auto login failed", zap.Error(err))
			}
		}
		return port.AutoLoginResult{
			Success: true,
			User:    userFromClaims(accessToken),
			Method:  domain.LoginMethodToken,
		}, nil
	}

	pair, err := a.lifecycle.RefreshTokens(ctx)
	if err != nil {
		a.logger.Debug("auto login refresh failed", zap.Error(err))
		return port.AutoLoginResult{}, nil
	}

	return port.AutoLoginResult{
		Success: true,
		User:    userFromClaims(pair.AccessToken),
		Method:  domain.LoginMethodAuto,
	}, nil
}

// userFromClaims reconstructs the user snapshot from unverified token claims.
// Good enough for rendering; every privileged call is still authorized
// server-side.
func userFromClaims(token string) *domain.User {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}

	user := &domain.User{}
	if uid, ok := claims["uid"].(string); ok {
		user.ID = uid
	} else if sub, ok := claims["sub"].(string); ok {
		user.ID = sub
	}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		user.DisplayName = name
	}
	if role, ok := claims["role"].(string); ok {
		user.Role = role
	} else {
		user.Role = "user"
	}

	if user.ID == "" {
		return nil
	}
	return user
}
