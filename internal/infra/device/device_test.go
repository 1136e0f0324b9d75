package device

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
)

type stubStorage struct {
	items  map[string]string
	setErr error
}

func newStubStorage() *stubStorage {
	return &stubStorage{items: make(map[string]string)}
}

func (s *stubStorage) SetItem(_ context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.items[key] = value
	return nil
}

func (s *stubStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	value, ok := s.items[key]
	return value, ok, nil
}

func (s *stubStorage) DeleteItem(_ context.Context, key string) error {
	delete(s.items, key)
	return nil
}

func (s *stubStorage) Available(context.Context) bool { return true }

func TestDeviceIDIsStable(t *testing.T) {
	storage := newStubStorage()
	ctx := context.Background()

	identity := NewIdentity(storage, zaptest.NewLogger(t))
	first, err := identity.DeviceID(ctx)
	if err != nil || first == "" {
		t.Fatalf("first DeviceID: %q err=%v", first, err)
	}

	second, err := identity.DeviceID(ctx)
	if err != nil || second != first {
		t.Fatalf("second DeviceID %q, want %q", second, first)
	}

	// A new instance over the same storage resolves the same id.
	other := NewIdentity(storage, zaptest.NewLogger(t))
	third, err := other.DeviceID(ctx)
	if err != nil || third != first {
		t.Fatalf("reloaded DeviceID %q, want %q", third, first)
	}
}

func TestDeviceIDSurvivesPersistFailure(t *testing.T) {
	storage := newStubStorage()
	storage.setErr = errors.New("read-only")

	identity := NewIdentity(storage, zaptest.NewLogger(t))
	id, err := identity.DeviceID(context.Background())
	if err != nil || id == "" {
		t.Fatalf("DeviceID with failing persist: %q err=%v", id, err)
	}
}
