package service

import (
	"context"
	"os"
	"path/filepath"
)

// BlobStore is the opaque binary store keyed by path. The real deployment
// points this at an object storage bucket; the service itself only ever
// handles the key.
type BlobStore interface {
	Save(ctx context.Context, path string, content []byte) error
	Remove(ctx context.Context, path string) error
}

// DiskBlobStore is the local development default.
type DiskBlobStore struct {
	Root string
}

func NewDiskBlobStore(root string) *DiskBlobStore {
	return &DiskBlobStore{Root: root}
}

func (s *DiskBlobStore) Save(_ context.Context, path string, content []byte) error {
	full := filepath.Join(s.Root, filepath.Clean(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, content, 0o644)
}

func (s *DiskBlobStore) Remove(_ context.Context, path string) error {
	err := os.Remove(filepath.Join(s.Root, filepath.Clean(path)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
