package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore implements BlobStore on the local filesystem.
//
// All writes go through temp files in the target directory followed by
// rename, so readers never observe a partially written blob. PutAll stages
// every temp file first and renames only after all stages succeeded.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at the given directory.
// The directory is created on first write.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Root returns the root directory.
func (s *LocalStore) Root() string { return s.root }

// Get returns the full contents of a blob.
func (s *LocalStore) Get(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, name))
}

// Put writes a single blob atomically.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	return s.PutAll(ctx, map[string][]byte{name: data})
}

// PutAll writes a group of blobs atomically: every blob is staged to a temp
// file in the target directory, synced, and only then are all temp files
// renamed into place. On any staging failure no target file is touched.
func (s *LocalStore) PutAll(ctx context.Context, blobs map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("blobstore: create root %s: %w", s.root, err)
	}

	type staged struct {
		temp   string
		target string
	}

	temps := make([]string, 0, len(blobs))
	defer func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}()

	mappings := make([]staged, 0, len(blobs))
	for name, data := range blobs {
		target := filepath.Join(s.root, name)

		tmp, err := os.CreateTemp(s.root, name+".tmp-*")
		if err != nil {
			return fmt.Errorf("blobstore: create temp for %s: %w", name, err)
		}
		temps = append(temps, tmp.Name())

		if _, err := tmp.Write(data); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("blobstore: write %s: %w", name, err)
		}
		if err := tmp.Sync(); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("blobstore: sync %s: %w", name, err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("blobstore: close %s: %w", name, err)
		}

		mappings = append(mappings, staged{temp: tmp.Name(), target: target})
	}

	for _, m := range mappings {
		if err := os.Rename(m.temp, m.target); err != nil {
			return fmt.Errorf("blobstore: rename %s: %w", m.target, err)
		}
	}
	temps = nil

	// Best-effort directory fsync so the renames survive power loss.
	if d, err := os.Open(s.root); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// Delete removes a blob. Missing blobs are ignored.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(s.root, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns blob names starting with prefix.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.Contains(name, ".tmp-") {
			continue
		}
		if prefix == "" || strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}
