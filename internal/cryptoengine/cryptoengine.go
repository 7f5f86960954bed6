// Package cryptoengine implements the envelope-encryption primitives the
// vault is built on: password-based key derivation and AES-256-GCM
// seal/open, with no knowledge of what is being encrypted.
package cryptoengine

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KeyLength   = 32 // AES-256 key / DEK length
	SaltLength  = 16
	NonceLength = 12 // AES-GCM standard nonce size
	TagLength   = 16 // AES-GCM authentication tag size

	// MinIterations is the floor enforced by the vault engine on every
	// root-key derivation. It is never weakened, regardless of caller input.
	MinIterations = 600000
)

var (
	ErrInvalidKeyLength   = errors.New("cryptoengine: invalid key length")
	ErrInvalidSaltLength  = errors.New("cryptoengine: invalid salt length")
	ErrInvalidNonceLength = errors.New("cryptoengine: invalid nonce length")
	// ErrAuthFailure is returned by Open when the GCM authentication tag
	// does not verify. It is the sole correctness oracle for a candidate key.
	ErrAuthFailure = errors.New("cryptoengine: authentication failed")
)

// DeriveRootKey derives a 32-byte key from a password and salt using
// PBKDF2-HMAC-SHA256. iterations is not validated here; the caller (the
// vault engine) is responsible for enforcing MinIterations.
func DeriveRootKey(password []byte, salt []byte, iterations int) ([]byte, error) {
	if len(salt) != SaltLength {
		return nil, ErrInvalidSaltLength
	}
	return pbkdf2.Key(password, salt, iterations, KeyLength, sha256.New), nil
}

// Seal encrypts plaintext under key using AES-256-GCM with no associated
// data. It returns a freshly generated 12-byte nonce and the ciphertext,
// whose tail carries the 16-byte authentication tag.
func Seal(key, plaintext []byte) (nonce, ciphertext []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("cryptoengine: generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return nonce, ciphertext, nil
}

// Open decrypts ciphertext under key and nonce, verifying the GCM
// authentication tag. ErrAuthFailure is the only recoverable error this
// layer produces.
func Open(key, nonce, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceLength {
		return nil, ErrInvalidNonceLength
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailure
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoengine: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptoengine: new gcm: %w", err)
	}
	return gcm, nil
}

// RandomSalt returns a fresh 16-byte salt from a cryptographically strong
// random source.
func RandomSalt() ([]byte, error) {
	return randomBytes(SaltLength)
}

// RandomDEK returns a fresh 32-byte data encryption key from the same
// strong random source used for salts and nonces.
func RandomDEK() ([]byte, error) {
	return randomBytes(KeyLength)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("cryptoengine: random bytes: %w", err)
	}
	return b, nil
}

// ClearBytes overwrites data with zeros. The constant-time compare against
// a same-length zero buffer acts as a compiler barrier so the store is not
// optimized away.
func ClearBytes(data []byte) {
	if data == nil {
		return
	}
	for i := range data {
		data[i] = 0
	}
	dummy := make([]byte, len(data))
	subtle.ConstantTimeCompare(data, dummy)
}
