package port

import "context"

// SecureStorage is the platform secure enclave contract. Implementations must
// be safe for concurrent use; DeleteItem of an absent key is not an error.
type SecureStorage interface {
	SetItem(ctx context.Context, key, value string) error
	// GetItem returns the stored value and whether the key was present.
	GetItem(ctx context.Context, key string) (string, bool, error)
	DeleteItem(ctx context.Context, key string) error
	Available(ctx context.Context) bool
}
