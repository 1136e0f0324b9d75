package device

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-authkit/internal/core/port"
)

// identityKey is where the generated device identifier persists across runs.
const identityKey = "authkit.device_id"

// Identity assigns this installation a stable random identifier. The id is
// minted once, persisted through secure storage, and reused afterwards.
type Identity struct {
	storage port.SecureStorage
	logger  *zap.Logger

	mu     sync.Mutex
	cached string
}

// NewIdentity constructs an Identity backed by the given storage.
func NewIdentity(storage port.SecureStorage, log *zap.Logger) *Identity {
	if log == nil {
		log = zap.NewNop()
	}
	return &Identity{storage: storage, logger: log}
}

// DeviceID returns the persisted identifier, minting one on first use. When
// persistence fails the freshly minted id is still returned so callers get a
// usable, if ephemeral, identity.
func (i *Identity) DeviceID(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cached != "" {
		return i.cached, nil
	}

	stored, found, err := i.storage.GetItem(ctx, identityKey)
	if err == nil && found && stored != "" {
		i.cached = stored
		return stored, nil
	}
	if err != nil {
		i.logger.Warn("read device id failed", zap.Error(err))
	}

	id := uuid.NewString()
	if err := i.storage.SetItem(ctx, identityKey, id); err != nil {
		i.logger.Warn("persist device id failed", zap.Error(err))
		return id, nil
	}

	i.cached = id
	return id, nil
}
