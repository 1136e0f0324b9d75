package security

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/arklim/social-platform-authkit/internal/core/port"
)

// blobPrefix frames sealed values so callers can distinguish ciphertext from
// legacy plaintext entries.
const blobPrefix = "encrypted:"

const (
	materialLength = 32
	saltLength     = 16

	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
)

// Cipher seals and opens secure store values with an XChaCha20-Poly1305 AEAD
// keyed per device. A failed open fails closed: no partial plaintext is ever
// returned.
type Cipher struct {
	key []byte
}

// NewCipher constructs a Cipher from a derived sealing key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("cipher: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	out := make([]byte, len(key))
	copy(out, key)
	return &Cipher{key: out}, nil
}

// Seal encrypts the plaintext and returns the framed blob
// "encrypted:<base64(nonce||ciphertext)>".
func (c *Cipher) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("cipher: init aead: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cipher: generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return blobPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a framed blob produced by Seal. Tampered or foreign
// ciphertext yields an error, never partial data.
func (c *Cipher) Open(blob string) (string, error) {
	encoded, ok := strings.CutPrefix(blob, blobPrefix)
	if !ok {
		return "", fmt.Errorf("cipher: value is not a sealed blob")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("cipher: decode blob: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("cipher: init aead: %w", err)
	}

	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("cipher: blob too short")
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("cipher: integrity check failed: %w", err)
	}

	return string(plaintext), nil
}

// IsSealed reports whether the value carries the sealed blob framing.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, blobPrefix)
}

// DeriveKey stretches device key material into a sealing key using Argon2id.
func DeriveKey(material, salt []byte) []byte {
	return argon2.IDKey(material, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

// LoadOrCreateKey resolves the per-device sealing key. The key material is
// generated once and persisted through the platform secure storage; when a
// fresh persist fails but older material is still readable, the existing key
// is reused rather than locking the device out of its own secrets.
func LoadOrCreateKey(ctx context.Context, storage port.SecureStorage, storageKey string, log *zap.Logger) ([]byte, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if existing, found, err := storage.GetItem(ctx, storageKey); err == nil && found {
		key, parseErr := parseKeyMaterial(existing)
		if parseErr == nil {
			return key, nil
		}
		log.Warn("stored device key material unreadable, regenerating", zap.Error(parseErr))
	}

	material := make([]byte, materialLength)
	if _, err := rand.Read(material); err != nil {
		return nil, fmt.Errorf("generate key material: %w", err)
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate key salt: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(material) + ":" + base64.StdEncoding.EncodeToString(salt)
	if err := storage.SetItem(ctx, storageKey, encoded); err != nil {
		// Fall back to any key material that is still readable before
		// failing outright.
		if existing, found, getErr := storage.GetItem(ctx, storageKey); getErr == nil && found {
			if key, parseErr := parseKeyMaterial(existing); parseErr == nil {
				log.Warn("persist device key failed, reusing existing material", zap.Error(err))
				return key, nil
			}
		}
		return nil, fmt.Errorf("persist device key: %w", err)
	}

	return DeriveKey(material, salt), nil
}

func parseKeyMaterial(encoded string) ([]byte, error) {
	parts := strings.Split(encoded, ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid key material format")
	}

	material, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decode key material: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode key salt: %w", err)
	}

	return DeriveKey(material, salt), nil
}
