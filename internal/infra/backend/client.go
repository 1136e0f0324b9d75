package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
	"github.com/arklim/social-platform-authkit/internal/core/port"
	"github.com/arklim/social-platform-authkit/internal/infra/config"
)

// TokenSource supplies the bearer token attached to authenticated calls.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, bool, error)
}

// Client talks to the hosted platform API. It implements the AuthBackend,
// LogoutService, and AccountAPI contracts; every failure it returns is a
// *domain.NetworkError so the classifier can categorize transport problems
// without string matching.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *zap.Logger
}

// NewClient constructs a Client from the backend settings.
func NewClient(cfg config.BackendSettings, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  log,
	}
}

// WithTokenSource wires the access-token supplier for authenticated calls.
func (c *Client) WithTokenSource(tokens TokenSource) *Client {
	c.tokens = tokens
	return c
}

type userPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type tokenPayload struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func (p tokenPayload) pair() domain.TokenPair {
	return domain.TokenPair{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		ExpiresAt:        p.ExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

// Login exchanges credentials for a user profile and token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*port.LoginResult, error) {
	var out struct {
		User   userPayload  `json:"user"`
		Tokens tokenPayload `json:"tokens"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, http.MethodPost, "/v1/auth/login", body, &out, false); err != nil {
		return nil, err
	}
	return &port.LoginResult{
		User: domain.User{
			ID:          out.User.ID,
			Email:       out.User.Email,
			DisplayName: out.User.DisplayName,
			Role:        out.User.Role,
		},
		Tokens: out.Tokens.pair(),
	}, nil
}

// RefreshTokens exchanges a refresh token for a new pair.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	var out tokenPayload
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.call(ctx, http.MethodPost, "/v1/auth/refresh", body, &out, false); err != nil {
		return domain.TokenPair{}, err
	}
	return out.pair(), nil
}

// ReauthenticateWithPassword verifies a fresh password entry for the current
// session.
func (c *Client) ReauthenticateWithPassword(ctx context.Context, password string) error {
	body := map[string]string{"password": password}
	return c.call(ctx, http.MethodPost, "/v1/auth/reauth", body, nil, true)
}

// AuthenticateWithBiometric verifies a platform biometric assertion for the
// current session.
func (c *Client) AuthenticateWithBiometric(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/v1/auth/biometric/verify", nil, nil, true)
}

// EnableBiometric registers this device for biometric login.
func (c *Client) EnableBiometric(ctx context.Context) (bool, error) {
	var out struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.call(ctx, http.MethodPost, "/v1/auth/biometric/enable", nil, &out, true); err != nil {
		return false, err
	}
	return out.Enabled, nil
}

// DisableBiometric removes this device's biometric registration.
func (c *Client) DisableBiometric(ctx context.Context) (bool, error) {
	var out struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.call(ctx, http.MethodPost, "/v1/auth/biometric/disable", nil, &out, true); err != nil {
		return false, err
	}
	return !out.Enabled, nil
}

// Logout terminates the server-side session.
func (c *Client) Logout(ctx context.Context, reason string) error {
	body := map[string]string{"reason": reason}
	return c.call(ctx, http.MethodPost, "/v1/auth/logout", body, nil, true)
}

// ForceLogout terminates the server-side session and revokes every token
// issued to it.
func (c *Client) ForceLogout(ctx context.Context, reason string) error {
	body := map[string]any{"reason": reason, "revoke_all": true}
	return c.call(ctx, http.MethodPost, "/v1/auth/logout", body, nil, true)
}

// Status fetches the deletion pre-check for the account.
func (c *Client) Status(ctx context.Context, userID string) (domain.AccountStatus, error) {
	var out struct {
		CanDelete       bool     `json:"can_delete"`
		BlockingReasons []string `json:"blocking_reasons"`
	}
	path := fmt.Sprintf("/v1/accounts/%s/status", userID)
	if err := c.call(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return domain.AccountStatus{}, err
	}
	return domain.AccountStatus{CanDelete: out.CanDelete, BlockingReasons: out.BlockingReasons}, nil
}

// RequestDeletion submits the deletion request.
func (c *Client) RequestDeletion(ctx context.Context, request domain.DeletionRequest) error {
	body := map[string]string{
		"user_id":     request.UserID,
		"reason":      request.Reason,
		"timestamp":   request.Timestamp.Format(time.RFC3339),
		"device_info": request.DeviceInfo,
	}
	return c.call(ctx, http.MethodPost, "/v1/accounts/deletion", body, nil, true)
}

// ConfirmDeletion validates a grace-period confirmation code.
func (c *Client) ConfirmDeletion(ctx context.Context, code string) (string, error) {
	var out struct {
		UserID string `json:"user_id"`
	}
	body := map[string]string{"code": code}
	if err := c.call(ctx, http.MethodPost, "/v1/accounts/deletion/confirm", body, &out, true); err != nil {
		return "", err
	}
	return out.UserID, nil
}

// CancelDeletion withdraws a pending deletion.
func (c *Client) CancelDeletion(ctx context.Context, userID string) error {
	path := fmt.Sprintf("/v1/accounts/%s/deletion", userID)
	return c.call(ctx, http.MethodDelete, path, nil, nil, true)
}

// UserData exports the account's stored data.
func (c *Client) UserData(ctx context.Context, userID string) (map[string]any, error) {
	var out map[string]any
	path := fmt.Sprintf("/v1/accounts/%s/data", userID)
	if err := c.call(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUserData irreversibly deletes the account's server-side data.
func (c *Client) DeleteUserData(ctx context.Context, userID string) error {
	path := fmt.Sprintf("/v1/accounts/%s/data", userID)
	return c.call(ctx, http.MethodDelete, path, nil, nil, true)
}

func (c *Client) call(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &domain.NetworkError{Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &domain.NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if authed && c.tokens != nil {
		token, found, err := c.tokens.AccessToken(ctx)
		if err == nil && found {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.NetworkError{Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Debug("backend call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return &domain.NetworkError{Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.NetworkError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
