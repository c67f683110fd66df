// Package storage persists asset bytes on the local filesystem.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Disk writes files to the local filesystem. Writes go through a temporary
// file in the target directory followed by a rename, so a failed request
// never leaves a truncated or zero-byte file visible at the final path.
type Disk struct{}

// NewDisk creates a Disk store.
func NewDisk() *Disk {
	return &Disk{}
}

// EnsureDir creates dir and any missing parents. Safe to call concurrently
// for the same directory; an already existing directory is success.
func (*Disk) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %q: %w", dir, err)
	}
	return nil
}

// WriteFile atomically writes data to path. The bytes land in a hidden
// temporary file in the same directory first and are renamed into place
// only once fully written; on any failure the temporary file is removed.
func (*Disk) WriteFile(_ context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file in %q: %w", dir, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file for %q: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("move %q into place: %w", path, err)
	}
	return nil
}
