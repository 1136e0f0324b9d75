package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const storeFileName = "secure_store.json"

// File is a file-backed SecureStorage for hosts without a native enclave.
// The backing file is created with 0600 permissions; values are expected to
// arrive already sealed by the caller.
type File struct {
	path  string
	mu    sync.Mutex
	items map[string]string
}

// NewFile opens (or creates) the store under the supplied directory.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	f := &File{
		path:  filepath.Join(dir, storeFileName),
		items: make(map[string]string),
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, nil
		}
		return nil, fmt.Errorf("read secure store: %w", err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &f.items); err != nil {
			return nil, fmt.Errorf("parse secure store: %w", err)
		}
	}

	return f, nil
}

func (f *File) SetItem(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[key] = value
	return f.flushLocked()
}

func (f *File) GetItem(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.items[key]
	return value, ok, nil
}

func (f *File) DeleteItem(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[key]; !ok {
		return nil
	}
	delete(f.items, key)
	return f.flushLocked()
}

func (f *File) Available(_ context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items != nil
}

func (f *File) flushLocked() error {
	raw, err := json.Marshal(f.items)
	if err != nil {
		return fmt.Errorf("encode secure store: %w", err)
	}
	if err := os.WriteFile(f.path, raw, 0o600); err != nil {
		return fmt.Errorf("write secure store: %w", err)
	}
	return nil
}
