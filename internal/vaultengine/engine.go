// Package vaultengine is the orchestrator: lifecycle state, key-material
// custody, envelope construction and opening, the policy gate, audit
// emission, and secret versioning. It is the only component that
// touches every other package in the core.
package vaultengine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nyxvault/secretvault/internal/audit"
	"github.com/nyxvault/secretvault/internal/cryptoengine"
	"github.com/nyxvault/secretvault/internal/policy"
	"github.com/nyxvault/secretvault/internal/session"
	"github.com/nyxvault/secretvault/internal/store"
)

// verificationPlaintext is the fixed value whose successful decryption
// certifies a candidate root key.
const verificationPlaintext = "vault-verification-token"

// systemIdentity is recorded for lifecycle operations that have no
// caller-supplied identity.
const systemIdentity = "system"

const (
	opInit         = "init"
	opSeal         = "seal"
	opUnseal       = "unseal"
	opStore        = "store"
	opUpdate       = "update"
	opRetrieve     = "retrieve"
	opDelete       = "delete"
	opList         = "list"
	opAddPolicy    = "add-policy"
	opRemovePolicy = "remove-policy"
)

// Engine orchestrates every vault operation against a single store
// artifact, audit log, and session carrier.
type Engine struct {
	codec   *store.Codec
	session session.Carrier
	audit   *audit.Sink
}

// New returns an Engine bound to the given artifacts.
func New(codec *store.Codec, carrier session.Carrier, auditSink *audit.Sink) *Engine {
	return &Engine{codec: codec, session: carrier, audit: auditSink}
}

// Status is the (exists?, unsealed?) pair returned by status().
type Status struct {
	Exists   bool
	Unsealed bool
}

// SecretValue is the result of a successful get().
type SecretValue struct {
	Path    string
	Version int
	Value   string
}

// Status reports whether the store exists and whether a session is
// active. It never audits.
func (e *Engine) Status() Status {
	exists := e.codec.Exists()
	if !exists {
		return Status{}
	}
	_, err := e.session.Get()
	return Status{Exists: true, Unsealed: err == nil}
}

// Init creates a new, empty, sealed vault.
func (e *Engine) Init(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if e.codec.Exists() {
		return ErrVaultExists
	}

	salt, err := cryptoengine.RandomSalt()
	if err != nil {
		return fmt.Errorf("vaultengine: generate salt: %w", err)
	}

	rootKey, err := cryptoengine.DeriveRootKey([]byte(password), salt, cryptoengine.MinIterations)
	if err != nil {
		return fmt.Errorf("vaultengine: derive root key: %w", err)
	}
	defer cryptoengine.ClearBytes(rootKey)

	nonce, token, err := cryptoengine.Seal(rootKey, []byte(verificationPlaintext))
	if err != nil {
		return fmt.Errorf("vaultengine: seal verification token: %w", err)
	}

	rec := &store.VaultRecord{
		Salt:              salt,
		Iterations:        cryptoengine.MinIterations,
		VerificationNonce: nonce,
		VerificationToken: token,
		Secrets:           map[string]*store.SecretRecord{},
		Policies:          []store.PolicyRule{},
	}

	if err := e.codec.Save(rec); err != nil {
		return e.auditError(opInit, systemIdentity, "", fmt.Errorf("vaultengine: save vault: %w", err))
	}

	return e.auditSuccess(opInit, systemIdentity, "")
}

// Unseal re-derives the root key from password and, if it opens the
// verification token, publishes it to the session carrier.
func (e *Engine) Unseal(password string) error {
	rec, err := e.codec.Load()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrVaultMissing
		}
		return err
	}
	if rec.Iterations < cryptoengine.MinIterations {
		return fmt.Errorf("%w: iteration count %d is below the minimum %d", ErrStoreCorrupt, rec.Iterations, cryptoengine.MinIterations)
	}

	rootKey, err := cryptoengine.DeriveRootKey([]byte(password), rec.Salt, rec.Iterations)
	if err != nil {
		return fmt.Errorf("vaultengine: derive root key: %w", err)
	}

	_, err = cryptoengine.Open(rootKey, rec.VerificationNonce, rec.VerificationToken)
	if err != nil {
		cryptoengine.ClearBytes(rootKey)
		_ = e.audit.Append(systemIdentity, opUnseal, "", audit.OutcomeError, "Incorrect master password")
		return ErrBadPassword
	}

	if err := e.session.Put(rootKey); err != nil {
		cryptoengine.ClearBytes(rootKey)
		return e.auditError(opUnseal, systemIdentity, "", fmt.Errorf("vaultengine: publish session: %w", err))
	}
	cryptoengine.ClearBytes(rootKey)

	return e.auditSuccess(opUnseal, systemIdentity, "")
}

// Seal clears the active session.
func (e *Engine) Seal() error {
	if _, err := e.session.Get(); err != nil {
		return ErrVaultAlreadySealed
	}
	if err := e.session.Clear(); err != nil {
		return e.auditError(opSeal, systemIdentity, "", fmt.Errorf("vaultengine: clear session: %w", err))
	}
	return e.auditSuccess(opSeal, systemIdentity, "")
}

// Put stores or updates the value at path, gated on the write capability.
func (e *Engine) Put(identity, path, value string) error {
	if value == "" {
		return ErrEmptyValue
	}
	if !policy.ValidPath(path) {
		return ErrInvalidPath
	}

	rootKey, rec, err := e.unsealedRecord()
	if err != nil {
		return err
	}
	defer cryptoengine.ClearBytes(rootKey)

	if !policy.CheckAccess(rec.Policies, identity, path, policy.CapWrite) {
		_ = e.audit.Append(identity, opStore, path, audit.OutcomeDenied)
		return &AccessDeniedError{Identity: identity, Path: path, Capability: string(policy.CapWrite)}
	}

	existing, operation := rec.Secrets[path], opStore
	versionNumber := 1
	if existing != nil {
		operation = opUpdate
		versionNumber = existing.LatestVersion().VersionNumber + 1
	}

	dek, err := cryptoengine.RandomDEK()
	if err != nil {
		return fmt.Errorf("vaultengine: generate DEK: %w", err)
	}
	defer cryptoengine.ClearBytes(dek)

	valueNonce, encryptedValue, err := cryptoengine.Seal(dek, []byte(value))
	if err != nil {
		return fmt.Errorf("vaultengine: seal value: %w", err)
	}
	dekNonce, encryptedDEK, err := cryptoengine.Seal(rootKey, dek)
	if err != nil {
		return fmt.Errorf("vaultengine: seal DEK: %w", err)
	}

	version := &store.VersionRecord{
		VersionNumber:  versionNumber,
		EncryptedDEK:   encryptedDEK,
		DEKNonce:       dekNonce,
		EncryptedValue: encryptedValue,
		ValueNonce:     valueNonce,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	if existing == nil {
		rec.Secrets[path] = &store.SecretRecord{Path: path, Versions: []*store.VersionRecord{version}}
	} else {
		existing.Versions = append(existing.Versions, version)
	}

	if err := e.codec.Save(rec); err != nil {
		return e.auditError(operation, identity, path, fmt.Errorf("vaultengine: save vault: %w", err))
	}
	return e.auditSuccess(operation, identity, path)
}

// Get retrieves the value at path, optionally a specific version,
// gated on the read capability.
func (e *Engine) Get(identity, path string, requestedVersion int) (*SecretValue, error) {
	rootKey, rec, err := e.unsealedRecord()
	if err != nil {
		return nil, err
	}
	defer cryptoengine.ClearBytes(rootKey)

	if !policy.CheckAccess(rec.Policies, identity, path, policy.CapRead) {
		_ = e.audit.Append(identity, opRetrieve, path, audit.OutcomeDenied)
		return nil, &AccessDeniedError{Identity: identity, Path: path, Capability: string(policy.CapRead)}
	}

	secret, ok := rec.Secrets[path]
	if !ok {
		_ = e.audit.Append(identity, opRetrieve, path, audit.OutcomeError, "secret not found")
		return nil, &SecretNotFoundError{Path: path}
	}

	var version *store.VersionRecord
	if requestedVersion == 0 {
		version = secret.LatestVersion()
	} else {
		version = secret.Version(requestedVersion)
		if version == nil {
			_ = e.audit.Append(identity, opRetrieve, path, audit.OutcomeError, "version not found")
			return nil, &VersionNotFoundError{Path: path, Version: requestedVersion}
		}
	}

	dek, err := cryptoengine.Open(rootKey, version.DEKNonce, version.EncryptedDEK)
	if err != nil {
		return nil, e.auditCryptoFailure(opRetrieve, identity, path, err)
	}
	defer cryptoengine.ClearBytes(dek)

	plaintext, err := cryptoengine.Open(dek, version.ValueNonce, version.EncryptedValue)
	if err != nil {
		return nil, e.auditCryptoFailure(opRetrieve, identity, path, err)
	}

	if err := e.auditSuccess(opRetrieve, identity, path); err != nil {
		return nil, err
	}
	return &SecretValue{Path: path, Version: version.VersionNumber, Value: string(plaintext)}, nil
}

// Delete removes the secret record at path, gated on the delete
// capability.
func (e *Engine) Delete(identity, path string) error {
	rootKey, rec, err := e.unsealedRecord()
	if err != nil {
		return err
	}
	cryptoengine.ClearBytes(rootKey)

	if !policy.CheckAccess(rec.Policies, identity, path, policy.CapDelete) {
		_ = e.audit.Append(identity, opDelete, path, audit.OutcomeDenied)
		return &AccessDeniedError{Identity: identity, Path: path, Capability: string(policy.CapDelete)}
	}

	if _, ok := rec.Secrets[path]; !ok {
		_ = e.audit.Append(identity, opDelete, path, audit.OutcomeError, "secret not found")
		return &SecretNotFoundError{Path: path}
	}

	delete(rec.Secrets, path)

	if err := e.codec.Save(rec); err != nil {
		return e.auditError(opDelete, identity, path, fmt.Errorf("vaultengine: save vault: %w", err))
	}
	return e.auditSuccess(opDelete, identity, path)
}

// List returns, sorted lexicographically, every path beginning with
// prefix. An empty prefix lists every path, gated via the "**" pattern.
func (e *Engine) List(identity, prefix string) ([]string, error) {
	rootKey, rec, err := e.unsealedRecord()
	if err != nil {
		return nil, err
	}
	cryptoengine.ClearBytes(rootKey)

	if !policy.CheckAccess(rec.Policies, identity, prefix, policy.CapList) {
		_ = e.audit.Append(identity, opList, prefix, audit.OutcomeDenied)
		return nil, &AccessDeniedError{Identity: identity, Path: prefix, Capability: string(policy.CapList)}
	}

	var paths []string
	for p := range rec.Secrets {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	if err := e.auditSuccess(opList, identity, prefix); err != nil {
		return nil, err
	}
	return paths, nil
}

// AddPolicy appends a policy rule. Requires an active session; there
// is no policy gate on policy administration.
func (e *Engine) AddPolicy(identity, pattern string, capabilities []string) error {
	if identity == "" || len(identity) > 255 {
		return ErrEmptyIdentity
	}
	if !policy.ValidPattern(pattern) {
		return ErrInvalidPath
	}
	if len(capabilities) == 0 {
		return ErrEmptyCapabilities
	}
	for _, c := range capabilities {
		if !policy.ValidCapabilities[policy.Capability(c)] {
			return fmt.Errorf("%w: %q", ErrInvalidCapabilities, c)
		}
	}

	rootKey, rec, err := e.unsealedRecord()
	if err != nil {
		return err
	}
	cryptoengine.ClearBytes(rootKey)

	rec.Policies = append(rec.Policies, store.PolicyRule{
		Identity:     identity,
		PathPattern:  pattern,
		Capabilities: capabilities,
	})

	if err := e.codec.Save(rec); err != nil {
		return e.auditError(opAddPolicy, identity, "", fmt.Errorf("vaultengine: save vault: %w", err))
	}
	return e.auditSuccess(opAddPolicy, identity, "")
}

// RemovePolicy removes the rule exactly matching identity and pattern.
func (e *Engine) RemovePolicy(identity, pattern string) error {
	rootKey, rec, err := e.unsealedRecord()
	if err != nil {
		return err
	}
	cryptoengine.ClearBytes(rootKey)

	idx := -1
	for i, rule := range rec.Policies {
		if rule.Identity == identity && rule.PathPattern == pattern {
			idx = i
			break
		}
	}
	if idx == -1 {
		return &PolicyNotFoundError{Identity: identity, Pattern: pattern}
	}

	rec.Policies = append(rec.Policies[:idx:idx], rec.Policies[idx+1:]...)

	if err := e.codec.Save(rec); err != nil {
		return e.auditError(opRemovePolicy, identity, "", fmt.Errorf("vaultengine: save vault: %w", err))
	}
	return e.auditSuccess(opRemovePolicy, identity, "")
}

// unsealedRecord loads the store and the active session's root key,
// returning ErrVaultSealed without touching the policy gate if either
// is unavailable.
func (e *Engine) unsealedRecord() ([]byte, *store.VaultRecord, error) {
	rec, err := e.codec.Load()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrVaultSealed
		}
		return nil, nil, err
	}

	rootKey, err := e.session.Get()
	if err != nil {
		return nil, nil, ErrVaultSealed
	}
	return rootKey, rec, nil
}

func (e *Engine) auditSuccess(operation, identity, path string) error {
	if err := e.audit.Append(identity, operation, path, audit.OutcomeSuccess); err != nil {
		return fmt.Errorf("vaultengine: write audit entry: %w", err)
	}
	return nil
}

func (e *Engine) auditError(operation, identity, path string, cause error) error {
	_ = e.audit.Append(identity, operation, path, audit.OutcomeError, cause.Error())
	return cause
}

func (e *Engine) auditCryptoFailure(operation, identity, path string, cause error) error {
	_ = e.audit.Append(identity, operation, path, audit.OutcomeError, "decryption failed")
	return fmt.Errorf("%w: %v", ErrStoreCorrupt, cause)
}
