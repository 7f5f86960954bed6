// Package session abstracts how the unwrapped root key is carried
// between separate invocations of the CLI. The process itself holds no
// state across commands, so "unseal" must persist the root key
// somewhere a later "get"/"put" invocation can recover it from, and
// "seal" must make that state unrecoverable.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

// ErrNoSession is returned by Get when no root key is currently carried,
// i.e. the vault is sealed from this carrier's point of view.
var ErrNoSession = errors.New("session: no unsealed session")

// Carrier persists the root key between CLI invocations and erases it
// on seal. Implementations do not interpret the key; they only store
// and return the bytes they were given.
type Carrier interface {
	// Put stores key as the active session. It replaces any existing
	// session.
	Put(key []byte) error
	// Get returns the active session's root key, or ErrNoSession if
	// none is carried.
	Get() ([]byte, error)
	// Clear erases any active session. It is not an error to clear an
	// already-absent session.
	Clear() error
}

// FileCarrier stores the root key hex-encoded in a sibling file next to
// the vault artifact, written with the same temp-file-then-rename
// pattern the store package uses so a reader never observes a partial
// write.
type FileCarrier struct {
	path string
}

const sessionFilePermissions = 0600

// NewFileCarrier returns a FileCarrier that persists its session to path.
func NewFileCarrier(path string) *FileCarrier {
	return &FileCarrier{path: path}
}

func (c *FileCarrier) Put(key []byte) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("session: create session directory: %w", err)
	}

	tempPath := c.path + ".tmp"
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, sessionFilePermissions)
	if err != nil {
		return fmt.Errorf("session: create temp session file: %w", err)
	}

	cleanup := true
	defer func() {
		if cleanup {
			_ = f.Close()
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(encodeHex(key)); err != nil {
		return fmt.Errorf("session: write session file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("session: sync session file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("session: close session file: %w", err)
	}
	if err := os.Rename(tempPath, c.path); err != nil {
		return fmt.Errorf("session: rename session file into place: %w", err)
	}
	cleanup = false
	return nil
}

func (c *FileCarrier) Get() ([]byte, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("session: read session file: %w", err)
	}
	key, err := decodeHex(data)
	if err != nil {
		return nil, fmt.Errorf("session: malformed session file: %w", err)
	}
	return key, nil
}

func (c *FileCarrier) Clear() error {
	err := os.Remove(c.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session: remove session file: %w", err)
	}
	return nil
}

// KeyringCarrier stores the root key in the OS keychain via go-keyring,
// so the session survives without leaving key material on disk. It is
// opt-in: not every environment has a usable OS keyring (headless
// Linux without a secret-service provider, for instance). There is no
// automatic fallback to FileCarrier; keyring errors are returned to the
// caller.
type KeyringCarrier struct {
	service string
	account string
}

const keyringService = "secretvault"

// NewKeyringCarrier returns a KeyringCarrier scoped to vaultID, so
// multiple vaults on one machine don't collide in the shared keychain.
func NewKeyringCarrier(vaultID string) *KeyringCarrier {
	account := "root-key"
	if vaultID != "" {
		account = "root-key-" + vaultID
	}
	return &KeyringCarrier{service: keyringService, account: account}
}

func (c *KeyringCarrier) Put(key []byte) error {
	if err := keyring.Set(c.service, c.account, string(encodeHex(key))); err != nil {
		return fmt.Errorf("session: store session in keyring: %w", err)
	}
	return nil
}

func (c *KeyringCarrier) Get() ([]byte, error) {
	encoded, err := keyring.Get(c.service, c.account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("session: read session from keyring: %w", err)
	}
	key, err := decodeHex([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("session: malformed keyring entry: %w", err)
	}
	return key, nil
}

func (c *KeyringCarrier) Clear() error {
	err := keyring.Delete(c.service, c.account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("session: delete session from keyring: %w", err)
	}
	return nil
}
