package vaultengine

import (
	"errors"
	"fmt"

	"github.com/nyxvault/secretvault/internal/audit"
	"github.com/nyxvault/secretvault/internal/store"
)

// Precondition and lifecycle sentinels.
var (
	ErrVaultExists         = errors.New("vault already exists")
	ErrVaultMissing        = errors.New("vault does not exist")
	ErrVaultSealed         = errors.New("vault is sealed")
	ErrVaultAlreadySealed  = errors.New("vault is already sealed")
	ErrBadPassword         = errors.New("incorrect master password")
	ErrInvalidPath         = errors.New("invalid path")
	ErrEmptyValue          = errors.New("value must not be empty")
	ErrInvalidCapabilities = errors.New("invalid capability")
	ErrEmptyCapabilities   = errors.New("capabilities must not be empty")
	ErrEmptyIdentity       = errors.New("identity must be non-empty and at most 255 characters")
	ErrEmptyPassword       = errors.New("password must not be empty")

	// ErrStoreCorrupt and ErrLogMissing are re-exported from their owning
	// packages so callers only need to import vaultengine's error set.
	ErrStoreCorrupt = store.ErrStoreCorrupt
	ErrLogMissing   = audit.ErrLogMissing
)

// AccessDeniedError reports a policy-gate rejection.
type AccessDeniedError struct {
	Identity   string
	Path       string
	Capability string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("identity %q lacks %q on %q", e.Identity, e.Capability, e.Path)
}

// SecretNotFoundError reports that no secret exists at a path.
type SecretNotFoundError struct {
	Path string
}

func (e *SecretNotFoundError) Error() string {
	return fmt.Sprintf("no secret at path %q", e.Path)
}

// VersionNotFoundError reports that a requested version does not exist.
type VersionNotFoundError struct {
	Path    string
	Version int
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("path %q has no version %d", e.Path, e.Version)
}

// PolicyNotFoundError reports that remove_policy matched no rule.
type PolicyNotFoundError struct {
	Identity string
	Pattern  string
}

func (e *PolicyNotFoundError) Error() string {
	return fmt.Sprintf("no policy rule for identity %q on pattern %q", e.Identity, e.Pattern)
}
