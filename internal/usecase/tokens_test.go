package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/social-platform-authkit/internal/core/domain"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []domain.SecurityEvent
}

func (r *recordedEvents) LogSecurityEvent(event domain.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordedEvents) byType(eventType domain.SecurityEventType) []domain.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SecurityEvent
	for _, event := range r.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

// newTestLifecycle wires a manager over a fresh store. The clock, when given,
// drives both: envelope lazy-expiry in the store must agree with the manager
// about what "now" is, or seeded tokens evaporate mid-test.
func newTestLifecycle(t *testing.T, backend *fakeBackend, clock func() time.Time) (*TokenLifecycleManager, *fakeStorage, *recordedEvents) {
	t.Helper()
	storage := newFakeStorage()
	store := NewSecureTokenStore(storage, testCipher(), nil, zaptest.NewLogger(t))
	events := &recordedEvents{}
	manager := NewTokenLifecycleManager(store, backend, &fakeDevice{id: "device-1"}, 10*time.Minute, zaptest.NewLogger(t)).
		WithSecurityRecorder(events)
	if clock != nil {
		store.WithClock(clock)
		manager.WithClock(clock)
	}
	return manager, storage, events
}

func TestValidateTokenFormat(t *testing.T) {
	manager, _, _ := newTestLifecycle(t, &fakeBackend{}, nil)

	now := time.Now()
	valid := tokenWithExpiry("u1", now, now.Add(time.Hour))

	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"well formed", valid, true},
		{"empty", "", false},
		{"two segments", "abc.def", false},
		{"garbage payload", "abc.!!!.ghi", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := manager.ValidateTokenFormat(tc.token); got != tc.want {
				t.Fatalf("ValidateTokenFormat(%q) = %v, want %v", tc.token, got, tc.want)
			}
		})
	}
}

func TestIsTokenExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	manager, _, _ := newTestLifecycle(t, &fakeBackend{}, func() time.Time { return now })

	live := tokenWithExpiry("u1", now.Add(-time.Hour), now.Add(time.Minute))
	if manager.IsTokenExpired(live) {
		t.Fatal("live token reported expired")
	}

	dead := tokenWithExpiry("u1", now.Add(-2*time.Hour), now.Add(-time.Second))
	if !manager.IsTokenExpired(dead) {
		t.Fatal("expired token reported live")
	}

	// Malformed tokens fail closed.
	if !manager.IsTokenExpired("not-a-token") {
		t.Fatal("malformed token reported live")
	}
	if !manager.IsTokenExpired(makeToken(map[string]any{"uid": "u1"})) {
		t.Fatal("token without exp reported live")
	}
}

func TestShouldRefreshToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	manager, _, _ := newTestLifecycle(t, &fakeBackend{}, func() time.Time { return now })

	comfortable := tokenWithExpiry("u1", now, now.Add(time.Hour))
	if manager.ShouldRefreshToken(comfortable) {
		t.Fatal("token with an hour left flagged for refresh")
	}

	closeToExpiry := tokenWithExpiry("u1", now, now.Add(9*time.Minute))
	if !manager.ShouldRefreshToken(closeToExpiry) {
		t.Fatal("token under the threshold not flagged for refresh")
	}
}

func TestStoreTokensRejectsExpiredPair(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	manager, storage, _ := newTestLifecycle(t, &fakeBackend{}, func() time.Time { return now })

	pair := domain.TokenPair{
		AccessToken:      "a",
		RefreshToken:     "r",
		ExpiresAt:        now,
		RefreshExpiresAt: now.Add(time.Hour),
	}

	err := manager.StoreTokens(context.Background(), pair)
	var tokenErr *domain.TokenError
	if !errors.As(err, &tokenErr) || tokenErr.Code != domain.TokenInvalid {
		t.Fatalf("expected TOKEN_INVALID, got %v", err)
	}
	if storage.len() != 0 {
		t.Fatal("rejected pair partially persisted")
	}
}

func TestRefreshTokensSuccess(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newAccess := tokenWithExpiry("user-9", now, now.Add(time.Hour))

	backend := &fakeBackend{
		refreshFn: func(_ context.Context, refreshToken string) (domain.TokenPair, error) {
			if refreshToken != "old-refresh" {
				t.Fatalf("backend got refresh token %q", refreshToken)
			}
			return domain.TokenPair{
				AccessToken:      newAccess,
				RefreshToken:     "new-refresh",
				ExpiresAt:        now.Add(time.Hour),
				RefreshExpiresAt: now.Add(30 * 24 * time.Hour),
			}, nil
		},
	}

	manager, _, events := newTestLifecycle(t, backend, func() time.Time { return now })

	ctx := context.Background()
	seed := domain.TokenPair{
		AccessToken:      tokenWithExpiry("user-9", now.Add(-time.Hour), now.Add(time.Minute)),
		RefreshToken:     "old-refresh",
		ExpiresAt:        now.Add(time.Minute),
		RefreshExpiresAt: now.Add(24 * time.Hour),
	}
	if err := manager.StoreTokens(ctx, seed); err != nil {
		t.Fatalf("seed tokens: %v", err)
	}

	pair, err := manager.RefreshTokens(ctx)
	if err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}
	if pair.RefreshToken != "new-refresh" {
		t.Fatalf("got refresh token %q", pair.RefreshToken)
	}

	stored, found, err := manager.StoredRefreshToken(ctx)
	if err != nil || !found || stored != "new-refresh" {
		t.Fatalf("stored refresh token %q found=%v err=%v", stored, found, err)
	}

	refreshEvents := events.byType(domain.EventTokenRefresh)
	if len(refreshEvents) != 1 {
		t.Fatalf("recorded %d refresh events, want 1", len(refreshEvents))
	}
	if refreshEvents[0].UserID != "user-9" {
		t.Fatalf("refresh event user %q, want user-9", refreshEvents[0].UserID)
	}
	if refreshEvents[0].DeviceID != "device-1" {
		t.Fatalf("refresh event device %q, want device-1", refreshEvents[0].DeviceID)
	}
}

func TestRefreshTokensWithoutStoredToken(t *testing.T) {
	manager, _, events := newTestLifecycle(t, &fakeBackend{}, nil)

	_, err := manager.RefreshTokens(context.Background())
	var tokenErr *domain.TokenError
	if !errors.As(err, &tokenErr) || tokenErr.Code != domain.RefreshFailed {
		t.Fatalf("expected REFRESH_FAILED, got %v", err)
	}
	if len(events.byType(domain.EventTokenValidationFail)) != 1 {
		t.Fatal("missing validation failure event")
	}
}

func TestRefreshTokensBackendRejection(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	backend := &fakeBackend{
		refreshFn: func(context.Context, string) (domain.TokenPair, error) {
			return domain.TokenPair{}, &domain.NetworkError{Status: 401}
		},
	}
	manager, _, events := newTestLifecycle(t, backend, func() time.Time { return now })

	ctx := context.Background()
	seed := domain.TokenPair{
		AccessToken:      tokenWithExpiry("u1", now.Add(-time.Hour), now.Add(time.Minute)),
		RefreshToken:     "r",
		ExpiresAt:        now.Add(time.Minute),
		RefreshExpiresAt: now.Add(24 * time.Hour),
	}
	if err := manager.StoreTokens(ctx, seed); err != nil {
		t.Fatalf("seed tokens: %v", err)
	}

	_, err := manager.RefreshTokens(ctx)
	var tokenErr *domain.TokenError
	if !errors.As(err, &tokenErr) || tokenErr.Code != domain.RefreshFailed {
		t.Fatalf("expected REFRESH_FAILED, got %v", err)
	}
	if len(events.byType(domain.EventTokenValidationFail)) != 1 {
		t.Fatal("missing validation failure event")
	}
}

func TestClearTokensSwallowsStorageFailures(t *testing.T) {
	storage := newFakeStorage()
	store := NewSecureTokenStore(storage, testCipher(), nil, zaptest.NewLogger(t))
	manager := NewTokenLifecycleManager(store, &fakeBackend{}, nil, 0, zaptest.NewLogger(t))

	storage.deleteErr[KeyAccessToken] = errors.New("locked")

	// Must not panic or surface the error.
	manager.ClearTokens(context.Background())
}
