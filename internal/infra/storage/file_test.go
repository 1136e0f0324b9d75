package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	if err := store.SetItem(ctx, "k", "v"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	value, found, err := store.GetItem(ctx, "k")
	if err != nil || !found || value != "v" {
		t.Fatalf("GetItem: %q found=%v err=%v", value, found, err)
	}

	// A fresh instance over the same directory sees the persisted value.
	reopened, err := NewFile(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	value, found, _ = reopened.GetItem(ctx, "k")
	if !found || value != "v" {
		t.Fatalf("reopened value %q found=%v", value, found)
	}
}

func TestFileDeleteAbsentKey(t *testing.T) {
	store, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := store.DeleteItem(context.Background(), "missing"); err != nil {
		t.Fatalf("deleting absent key should not fail: %v", err)
	}
}

func TestFilePermissions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := store.SetItem(context.Background(), "k", "v"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "secure_store.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("store file permissions %o, want 600", perm)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if err := store.SetItem(ctx, "k", "v"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	value, found, err := store.GetItem(ctx, "k")
	if err != nil || !found || value != "v" {
		t.Fatalf("GetItem: %q found=%v err=%v", value, found, err)
	}
	if err := store.DeleteItem(ctx, "k"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if _, found, _ := store.GetItem(ctx, "k"); found {
		t.Fatal("deleted key still present")
	}
}
