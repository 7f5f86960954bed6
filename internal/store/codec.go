package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// FilePermissions restricts the vault artifact to its owner.
	FilePermissions = 0600
	tempSuffix      = ".tmp"
)

var ErrNotFound = errors.New("store: vault artifact does not exist")

// Codec reads and writes a VaultRecord to a single path on disk, atomically.
type Codec struct {
	path string
}

// New returns a Codec bound to path. It does not touch the filesystem.
func New(path string) *Codec {
	return &Codec{path: path}
}

// Path returns the vault artifact path this codec is bound to.
func (c *Codec) Path() string {
	return c.path
}

// Exists reports whether the vault artifact is present.
func (c *Codec) Exists() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

// Load reads and parses the vault artifact. A missing file is ErrNotFound;
// anything unparsable is ErrStoreCorrupt.
func (c *Codec) Load() (*VaultRecord, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: read vault file: %w", err)
	}

	var rec VaultRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		if errors.Is(err, ErrStoreCorrupt) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	return &rec, nil
}

// Save serializes rec and atomically replaces the vault artifact: write to
// a sibling temp file in the same directory, fsync, then rename over the
// target path. Readers never observe a partial file.
func (c *Codec) Save(rec *VaultRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: marshal vault record: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("store: create vault directory: %w", err)
	}

	tempPath := c.path + tempSuffix
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FilePermissions)
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}

	cleanupTemp := true
	defer func() {
		if cleanupTemp {
			_ = f.Close()
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("store: sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("store: close temp file: %w", err)
	}

	if err := os.Rename(tempPath, c.path); err != nil {
		return fmt.Errorf("store: rename temp file into place: %w", err)
	}
	cleanupTemp = false

	return nil
}
