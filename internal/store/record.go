// Package store defines the persistent vault record and its on-disk
// serialization. It has no knowledge of policy evaluation or key custody;
// it only round-trips bytes.
package store

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrStoreCorrupt is returned for any load that cannot be parsed, is
// missing a required top-level field, or contains a non-decodable binary
// field.
var ErrStoreCorrupt = errors.New("store: corrupt vault artifact")

// VaultRecord is the persistent top-level artifact.
type VaultRecord struct {
	Salt              []byte                   `json:"-"`
	Iterations        int                      `json:"iterations"`
	VerificationNonce []byte                   `json:"-"`
	VerificationToken []byte                   `json:"-"`
	Secrets           map[string]*SecretRecord `json:"secrets"`
	Policies          []PolicyRule             `json:"policies"`
}

// SecretRecord holds every stored version of the value at a path.
type SecretRecord struct {
	Path     string           `json:"path"`
	Versions []*VersionRecord `json:"versions"`
}

// VersionRecord is one encrypted version of a secret's value.
type VersionRecord struct {
	VersionNumber  int    `json:"version_number"`
	EncryptedDEK   []byte `json:"-"`
	DEKNonce       []byte `json:"-"`
	EncryptedValue []byte `json:"-"`
	ValueNonce     []byte `json:"-"`
	CreatedAt      string `json:"created_at"` // ISO 8601 extended, UTC
}

// PolicyRule grants a set of capabilities to an identity over paths
// matching a pattern.
type PolicyRule struct {
	Identity     string   `json:"identity"`
	PathPattern  string   `json:"path_pattern"`
	Capabilities []string `json:"capabilities"`
}

// LatestVersion returns the highest-numbered version, or nil if the
// secret has no versions (which should never happen for a persisted
// record, per the SecretRecord invariant).
func (s *SecretRecord) LatestVersion() *VersionRecord {
	if len(s.Versions) == 0 {
		return nil
	}
	return s.Versions[len(s.Versions)-1]
}

// Version returns the version with the given number, or nil.
func (s *SecretRecord) Version(n int) *VersionRecord {
	for _, v := range s.Versions {
		if v.VersionNumber == n {
			return v
		}
	}
	return nil
}

// the wire representation of VaultRecord / VersionRecord: binary fields
// are hex-encoded text. This set is closed and enumerated here; no other
// field is ever treated as binary.

type wireVaultRecord struct {
	Salt              string                `json:"salt"`
	Iterations        int                   `json:"iterations"`
	VerificationNonce string                `json:"verification_nonce"`
	VerificationToken string                `json:"verification_token"`
	Secrets           map[string]wireSecret `json:"secrets"`
	Policies          []PolicyRule          `json:"policies"`
}

type wireSecret struct {
	Path     string        `json:"path"`
	Versions []wireVersion `json:"versions"`
}

type wireVersion struct {
	VersionNumber  int    `json:"version_number"`
	EncryptedDEK   string `json:"encrypted_dek"`
	DEKNonce       string `json:"dek_nonce"`
	EncryptedValue string `json:"encrypted_value"`
	ValueNonce     string `json:"value_nonce"`
	CreatedAt      string `json:"created_at"`
}

// MarshalJSON renders the record with all binary fields hex-encoded.
func (v *VaultRecord) MarshalJSON() ([]byte, error) {
	w := wireVaultRecord{
		Salt:              hex.EncodeToString(v.Salt),
		Iterations:        v.Iterations,
		VerificationNonce: hex.EncodeToString(v.VerificationNonce),
		VerificationToken: hex.EncodeToString(v.VerificationToken),
		Secrets:           make(map[string]wireSecret, len(v.Secrets)),
		Policies:          v.Policies,
	}
	if w.Policies == nil {
		w.Policies = []PolicyRule{}
	}
	for path, sec := range v.Secrets {
		ws := wireSecret{Path: sec.Path, Versions: make([]wireVersion, 0, len(sec.Versions))}
		for _, ver := range sec.Versions {
			ws.Versions = append(ws.Versions, wireVersion{
				VersionNumber:  ver.VersionNumber,
				EncryptedDEK:   hex.EncodeToString(ver.EncryptedDEK),
				DEKNonce:       hex.EncodeToString(ver.DEKNonce),
				EncryptedValue: hex.EncodeToString(ver.EncryptedValue),
				ValueNonce:     hex.EncodeToString(ver.ValueNonce),
				CreatedAt:      ver.CreatedAt,
			})
		}
		w.Secrets[path] = ws
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the hex-encoded wire format back into a VaultRecord.
// A missing top-level field or any non-hex binary field is a fatal
// ErrStoreCorrupt. Fields inside a version entry are not checked for
// presence; an absent one decodes to empty bytes.
func (v *VaultRecord) UnmarshalJSON(data []byte) error {
	var w wireVaultRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	var present map[string]json.RawMessage
	if err := json.Unmarshal(data, &present); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
	}
	for _, field := range []string{"salt", "iterations", "verification_nonce", "verification_token", "secrets", "policies"} {
		if _, ok := present[field]; !ok {
			return fmt.Errorf("%w: missing field %q", ErrStoreCorrupt, field)
		}
	}

	salt, err := decodeHexField(w.Salt, "salt")
	if err != nil {
		return err
	}
	verNonce, err := decodeHexField(w.VerificationNonce, "verification_nonce")
	if err != nil {
		return err
	}
	verToken, err := decodeHexField(w.VerificationToken, "verification_token")
	if err != nil {
		return err
	}

	secrets := make(map[string]*SecretRecord, len(w.Secrets))
	for path, ws := range w.Secrets {
		sec := &SecretRecord{Path: ws.Path}
		for _, wv := range ws.Versions {
			dek, err := decodeHexField(wv.EncryptedDEK, "encrypted_dek")
			if err != nil {
				return err
			}
			dekNonce, err := decodeHexField(wv.DEKNonce, "dek_nonce")
			if err != nil {
				return err
			}
			val, err := decodeHexField(wv.EncryptedValue, "encrypted_value")
			if err != nil {
				return err
			}
			valNonce, err := decodeHexField(wv.ValueNonce, "value_nonce")
			if err != nil {
				return err
			}
			sec.Versions = append(sec.Versions, &VersionRecord{
				VersionNumber:  wv.VersionNumber,
				EncryptedDEK:   dek,
				DEKNonce:       dekNonce,
				EncryptedValue: val,
				ValueNonce:     valNonce,
				CreatedAt:      wv.CreatedAt,
			})
		}
		secrets[path] = sec
	}

	v.Salt = salt
	v.Iterations = w.Iterations
	v.VerificationNonce = verNonce
	v.VerificationToken = verToken
	v.Secrets = secrets
	v.Policies = w.Policies
	if v.Policies == nil {
		v.Policies = []PolicyRule{}
	}
	return nil
}

func decodeHexField(s, field string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q is not valid hex: %v", ErrStoreCorrupt, field, err)
	}
	return b, nil
}
