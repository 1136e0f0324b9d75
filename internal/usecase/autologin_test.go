package usecase

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
)

func newTestAutoLogin(t *testing.T, backend *fakeBackend) (*AutoLoginManager, *TokenLifecycleManager) {
	t.Helper()
	storage := newFakeStorage()
	store := NewSecureTokenStore(storage, testCipher(), nil, zaptest.NewLogger(t))
	lifecycle := NewTokenLifecycleManager(store, backend, nil, 10*time.Minute, zaptest.NewLogger(t))
	return NewAutoLoginManager(lifecycle, zaptest.NewLogger(t)), lifecycle
}

func TestAutoLoginWithLiveToken(t *testing.T) {
	auto, lifecycle := newTestAutoLogin(t, &fakeBackend{})
	ctx := context.Background()
	now := time.Now().UTC()

	access := makeToken(map[string]any{
		"uid":   "u3",
		"email": "u3@example.com",
		"role":  "premium",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	seed := domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     "r",
		ExpiresAt:        now.Add(time.Hour),
		RefreshExpiresAt: now.Add(24 * time.Hour),
	}
	if err := lifecycle.StoreTokens(ctx, seed); err != nil {
		t.Fatalf("seed tokens: %v", err)
	}

	result, err := auto.AttemptAutoLogin(ctx)
	if err != nil {
		t.Fatalf("AttemptAutoLogin: %v", err)
	}
	if !result.Success || result.Method != domain.LoginMethodToken {
		t.Fatalf("result: %+v", result)
	}
	if result.User == nil || result.User.ID != "u3" || result.User.Role != "premium" {
		t.Fatalf("user: %+v", result.User)
	}
}

func TestAutoLoginRefreshesExpiredToken(t *testing.T) {
	now := time.Now().UTC()
	fresh := tokenWithExpiry("u3", now, now.Add(time.Hour))
	backend := &fakeBackend{
		refreshFn: func(context.Context, string) (domain.TokenPair, error) {
			return domain.TokenPair{
				AccessToken:      fresh,
				RefreshToken:     "new-r",
				ExpiresAt:        now.Add(time.Hour),
				RefreshExpiresAt: now.Add(24 * time.Hour),
			}, nil
		},
	}
	auto, lifecycle := newTestAutoLogin(t, backend)
	ctx := context.Background()

	// Seed with a valid pair, then let the access token age out.
	seed := domain.TokenPair{
		AccessToken:      tokenWithExpiry("u3", now.Add(-2*time.Hour), now.Add(time.Second)),
		RefreshToken:     "r",
		ExpiresAt:        now.Add(time.Second),
		RefreshExpiresAt: now.Add(24 * time.Hour),
	}
	if err := lifecycle.StoreTokens(ctx, seed); err != nil {
		t.Fatalf("seed tokens: %v", err)
	}
	lifecycle.WithClock(func() time.Time { return now.Add(time.Minute) })

	result, err := auto.AttemptAutoLogin(ctx)
	if err != nil {
		t.Fatalf("AttemptAutoLogin: %v", err)
	}
	if !result.Success || result.Method != domain.LoginMethodAuto {
		t.Fatalf("result: %+v", result)
	}
}

func TestAutoLoginWithNothingStored(t *testing.T) {
	auto, _ := newTestAutoLogin(t, &fakeBackend{})

	result, err := auto.AttemptAutoLogin(context.Background())
	if err != nil {
		t.Fatalf("AttemptAutoLogin: %v", err)
	}
	if result.Success {
		t.Fatal("auto login succeeded with no stored tokens")
	}
}
