package cryptoengine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomSaltUnique(t *testing.T) {
	a, err := RandomSalt()
	require.NoError(t, err)
	require.Len(t, a, SaltLength)

	b, err := RandomSalt()
	require.NoError(t, err)
	require.False(t, bytes.Equal(a, b), "two generated salts should not be equal")
}

func TestRandomDEKUnique(t *testing.T) {
	a, err := RandomDEK()
	require.NoError(t, err)
	require.Len(t, a, KeyLength)

	b, err := RandomDEK()
	require.NoError(t, err)
	require.False(t, bytes.Equal(a, b))
}

func TestDeriveRootKeyDeterministic(t *testing.T) {
	salt, err := RandomSalt()
	require.NoError(t, err)

	k1, err := DeriveRootKey([]byte("correct horse"), salt, MinIterations)
	require.NoError(t, err)
	require.Len(t, k1, KeyLength)

	k2, err := DeriveRootKey([]byte("correct horse"), salt, MinIterations)
	require.NoError(t, err)
	require.Equal(t, k1, k2)

	salt2 := append([]byte(nil), salt...)
	salt2[0] ^= 0xFF
	k3, err := DeriveRootKey([]byte("correct horse"), salt2, MinIterations)
	require.NoError(t, err)
	require.NotEqual(t, k1, k3)
}

func TestDeriveRootKeyRejectsBadSaltLength(t *testing.T) {
	_, err := DeriveRootKey([]byte("pw"), []byte("tooshort"), MinIterations)
	require.ErrorIs(t, err, ErrInvalidSaltLength)
}

func TestSealOpenRoundTrip(t *testing.T) {
	key, err := RandomDEK()
	require.NoError(t, err)

	plaintext := []byte("s3cretValue!")
	nonce, ciphertext, err := Seal(key, plaintext)
	require.NoError(t, err)
	require.Len(t, nonce, NonceLength)
	require.True(t, len(ciphertext) >= len(plaintext)+TagLength)

	recovered, err := Open(key, nonce, ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, recovered)
}

func TestSealNonceUniquePerCall(t *testing.T) {
	key, err := RandomDEK()
	require.NoError(t, err)

	n1, _, err := Seal(key, []byte("a"))
	require.NoError(t, err)
	n2, _, err := Seal(key, []byte("a"))
	require.NoError(t, err)

	require.False(t, bytes.Equal(n1, n2), "nonces must differ across encryptions under the same key")
}

func TestOpenFailsOnTamperedCiphertext(t *testing.T) {
	key, err := RandomDEK()
	require.NoError(t, err)

	nonce, ciphertext, err := Seal(key, []byte("hello"))
	require.NoError(t, err)

	tampered := append([]byte(nil), ciphertext...)
	tampered[0] ^= 0x01

	_, err = Open(key, nonce, tampered)
	require.ErrorIs(t, err, ErrAuthFailure)
}

func TestOpenFailsOnWrongKey(t *testing.T) {
	key, err := RandomDEK()
	require.NoError(t, err)
	other, err := RandomDEK()
	require.NoError(t, err)

	nonce, ciphertext, err := Seal(key, []byte("hello"))
	require.NoError(t, err)

	_, err = Open(other, nonce, ciphertext)
	require.ErrorIs(t, err, ErrAuthFailure)
}

func TestClearBytesZeroes(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	ClearBytes(data)
	for _, b := range data {
		require.Equal(t, byte(0), b)
	}
}
