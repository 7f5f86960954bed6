package vaultengine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nyxvault/secretvault/internal/audit"
	"github.com/nyxvault/secretvault/internal/store"
)

// TestScenarioS1EnvelopeRoundTrip covers:
// init MyMasterPass123; unseal; policy (admin, **, {read,write});
// put production/db/password s3cretValue!; get returns it back at v1.
func TestScenarioS1EnvelopeRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Init("MyMasterPass123"))
	require.NoError(t, e.Unseal("MyMasterPass123"))
	grant(t, e, "admin", "**", "read", "write")

	require.NoError(t, e.Put("admin", "production/db/password", "s3cretValue!"))

	got, err := e.Get("admin", "production/db/password", 0)
	require.NoError(t, err)
	require.Equal(t, "production/db/password", got.Path)
	require.Equal(t, 1, got.Version)
	require.Equal(t, "s3cretValue!", got.Value)
}

// TestScenarioS2WrongPassword covers: init Correct; unseal Wrong ->
// BadPassword; status reports sealed; audit log has an unseal/error entry.
func TestScenarioS2WrongPassword(t *testing.T) {
	e, dir := newTestEngine(t)
	require.NoError(t, e.Init("Correct"))

	err := e.Unseal("Wrong")
	require.ErrorIs(t, err, ErrBadPassword)
	require.False(t, e.Status().Unsealed)

	sink := audit.New(filepath.Join(dir, "audit.log"))
	lines, err := sink.Replay()
	require.NoError(t, err)

	found := false
	for _, l := range lines {
		if strings.Contains(l, " | unseal | - | error") {
			found = true
		}
	}
	require.True(t, found, "expected an unseal error entry in %v", lines)
}

// TestScenarioS3SingleSegmentWildcard covers: policy (deployer,
// production/*/credentials, {read,write}); put production/web/credentials
// succeeds; put production/web/config denied; put production/a/b/credentials
// denied (two segments don't match single *).
func TestScenarioS3SingleSegmentWildcard(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Init("Correct"))
	require.NoError(t, e.Unseal("Correct"))
	grant(t, e, "deployer", "production/*/credentials", "read", "write")

	require.NoError(t, e.Put("deployer", "production/web/credentials", "v"))

	var accessErr *AccessDeniedError
	require.ErrorAs(t, e.Put("deployer", "production/web/config", "v"), &accessErr)
	require.ErrorAs(t, e.Put("deployer", "production/a/b/credentials", "v"), &accessErr)
}

// TestScenarioS4Versioning covers: put config/api-key three times with
// k1,k2,k3; get with no version returns k3; --version 1 returns k1;
// --version 99 returns VersionNotFound.
func TestScenarioS4Versioning(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Init("Correct"))
	require.NoError(t, e.Unseal("Correct"))
	grant(t, e, "admin", "**", "read", "write")

	require.NoError(t, e.Put("admin", "config/api-key", "k1"))
	require.NoError(t, e.Put("admin", "config/api-key", "k2"))
	require.NoError(t, e.Put("admin", "config/api-key", "k3"))

	latest, err := e.Get("admin", "config/api-key", 0)
	require.NoError(t, err)
	require.Equal(t, "k3", latest.Value)
	require.Equal(t, 3, latest.Version)

	v1, err := e.Get("admin", "config/api-key", 1)
	require.NoError(t, err)
	require.Equal(t, "k1", v1.Value)

	_, err = e.Get("admin", "config/api-key", 99)
	var versionErr *VersionNotFoundError
	require.ErrorAs(t, err, &versionErr)
}

// TestScenarioS5DefaultDeny covers: fresh unsealed vault, no policies;
// put secrets/key v as "anyone" denied; audit log has a store/denied entry.
func TestScenarioS5DefaultDeny(t *testing.T) {
	e, dir := newTestEngine(t)
	require.NoError(t, e.Init("Correct"))
	require.NoError(t, e.Unseal("Correct"))

	var accessErr *AccessDeniedError
	require.ErrorAs(t, e.Put("anyone", "secrets/key", "v"), &accessErr)

	sink := audit.New(filepath.Join(dir, "audit.log"))
	lines, err := sink.Replay()
	require.NoError(t, err)

	found := false
	for _, l := range lines {
		if strings.Contains(l, " | store | secrets/key | denied") {
			found = true
		}
	}
	require.True(t, found, "expected a store denied entry in %v", lines)
}

// TestScenarioS6PersistenceAcrossSealCycle covers: put persist/secret
// under a granting policy; seal; unseal with the original password;
// get persist/secret returns persistent-value.
func TestScenarioS6PersistenceAcrossSealCycle(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Init("Correct"))
	require.NoError(t, e.Unseal("Correct"))
	grant(t, e, "admin", "**", "read", "write")

	require.NoError(t, e.Put("admin", "persist/secret", "persistent-value"))
	require.NoError(t, e.Seal())
	require.NoError(t, e.Unseal("Correct"))

	got, err := e.Get("admin", "persist/secret", 0)
	require.NoError(t, err)
	require.Equal(t, "persistent-value", got.Value)
}

// TestNonceUniquenessAcrossStoreOperations covers property #2: distinct
// store operations never reuse a dek_nonce or value_nonce.
func TestNonceUniquenessAcrossStoreOperations(t *testing.T) {
	e, dir := newTestEngine(t)
	require.NoError(t, e.Init("Correct"))
	require.NoError(t, e.Unseal("Correct"))
	grant(t, e, "admin", "**", "read", "write")

	require.NoError(t, e.Put("admin", "a/b", "v1"))
	require.NoError(t, e.Put("admin", "c/d", "v2"))
	require.NoError(t, e.Put("admin", "a/b", "v3"))

	codec := store.New(filepath.Join(dir, "vault.db"))
	rec, err := codec.Load()
	require.NoError(t, err)

	seenDEK := map[string]bool{}
	seenValue := map[string]bool{}
	for _, sec := range rec.Secrets {
		for _, v := range sec.Versions {
			key := string(v.DEKNonce)
			require.False(t, seenDEK[key], "dek_nonce reused")
			seenDEK[key] = true

			vkey := string(v.ValueNonce)
			require.False(t, seenValue[vkey], "value_nonce reused")
			seenValue[vkey] = true
		}
	}
}

// TestSaveLoadByteExactRoundTrip covers: save(load(x)) == x for any valid
// store written by this codec.
func TestSaveLoadByteExactRoundTrip(t *testing.T) {
	e, dir := newTestEngine(t)
	require.NoError(t, e.Init("Correct"))
	require.NoError(t, e.Unseal("Correct"))
	grant(t, e, "admin", "**", "read", "write")
	require.NoError(t, e.Put("admin", "a/b", "v"))

	vaultPath := filepath.Join(dir, "vault.db")
	original, err := os.ReadFile(vaultPath)
	require.NoError(t, err)

	codec := store.New(vaultPath)
	loaded, err := codec.Load()
	require.NoError(t, err)
	require.NoError(t, codec.Save(loaded))

	resaved, err := os.ReadFile(vaultPath)
	require.NoError(t, err)
	require.Equal(t, original, resaved)

	reloaded, err := codec.Load()
	require.NoError(t, err)
	require.Equal(t, loaded, reloaded)
}
