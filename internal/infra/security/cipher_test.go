package security

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"
)

type mapStorage struct {
	mu     sync.Mutex
	items  map[string]string
	setErr error
}

func newMapStorage() *mapStorage {
	return &mapStorage{items: make(map[string]string)}
}

func (s *mapStorage) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.items[key] = value
	return nil
}

func (s *mapStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.items[key]
	return value, ok, nil
}

func (s *mapStorage) DeleteItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *mapStorage) Available(context.Context) bool { return true }

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestCipherRoundTrip(t *testing.T) {
	cipher, err := NewCipher(testKey())
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	sealed, err := cipher.Seal("attack at dawn")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !strings.HasPrefix(sealed, "encrypted:") {
		t.Fatalf("sealed blob missing prefix: %s", sealed)
	}
	if strings.Contains(sealed, "attack at dawn") {
		t.Fatal("plaintext visible in sealed blob")
	}
	if !IsSealed(sealed) {
		t.Fatal("IsSealed rejected a sealed blob")
	}

	opened, err := cipher.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened != "attack at dawn" {
		t.Fatalf("got %q", opened)
	}
}

func TestCipherNonceVaries(t *testing.T) {
	cipher, _ := NewCipher(testKey())

	first, _ := cipher.Seal("same input")
	second, _ := cipher.Seal("same input")
	if first == second {
		t.Fatal("two seals of the same plaintext produced identical blobs")
	}
}

func TestCipherRejectsTampering(t *testing.T) {
	cipher, _ := NewCipher(testKey())

	sealed, _ := cipher.Seal("payload")
	tampered := strings.Replace(sealed, "encrypted:", "encrypted:QUFB", 1)

	if _, err := cipher.Open(tampered); err == nil {
		t.Fatal("tampered blob opened")
	}
}

func TestCipherRejectsWrongKey(t *testing.T) {
	cipher, _ := NewCipher(testKey())
	other := testKey()
	other[0] ^= 0xff
	otherCipher, _ := NewCipher(other)

	sealed, _ := cipher.Seal("payload")
	if _, err := otherCipher.Open(sealed); err == nil {
		t.Fatal("blob opened with the wrong key")
	}
}

func TestNewCipherKeySize(t *testing.T) {
	if _, err := NewCipher(make([]byte, 16)); err == nil {
		t.Fatal("short key accepted")
	}
}

func TestLoadOrCreateKeyIsStable(t *testing.T) {
	storage := newMapStorage()
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	first, err := LoadOrCreateKey(ctx, storage, "k", log)
	if err != nil {
		t.Fatalf("first LoadOrCreateKey: %v", err)
	}
	second, err := LoadOrCreateKey(ctx, storage, "k", log)
	if err != nil {
		t.Fatalf("second LoadOrCreateKey: %v", err)
	}
	if string(first) != string(second) {
		t.Fatal("key changed between loads")
	}
	if len(first) != 32 {
		t.Fatalf("key length %d, want 32", len(first))
	}
}

func TestLoadOrCreateKeyRegeneratesGarbage(t *testing.T) {
	storage := newMapStorage()
	ctx := context.Background()
	storage.items["k"] = "not base64 material"

	key, err := LoadOrCreateKey(ctx, storage, "k", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("LoadOrCreateKey: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("key length %d, want 32", len(key))
	}
	if storage.items["k"] == "not base64 material" {
		t.Fatal("garbage material not replaced")
	}
}

func TestLoadOrCreateKeyPersistFailure(t *testing.T) {
	storage := newMapStorage()
	storage.setErr = errors.New("read-only")

	if _, err := LoadOrCreateKey(context.Background(), storage, "k", zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected error when nothing can be persisted or reused")
	}
}
