package mediacrypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveIsDeterministic(t *testing.T) {
	secret := []byte("01234567890123456789012345678901")
	salt := []byte("0123456789012345")

	a := Derive(secret, salt, 1000, 32)
	b := Derive(secret, salt, 1000, 32)
	require.Equal(t, a.Derived, b.Derived)
	require.Len(t, a.Derived, 32)
}

func TestDeriveDiffersBySalt(t *testing.T) {
	secret := []byte("01234567890123456789012345678901")
	a := Derive(secret, []byte("0123456789012345"), 1000, 32)
	b := Derive(secret, []byte("5432109876543210"), 1000, 32)
	require.NotEqual(t, a.Derived, b.Derived)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	c, err := NewCipher(key)
	require.NoError(t, err)

	plaintext := []byte("sixteen byte pcm payload chunk!")
	ciphertext, iv, err := c.Encrypt(plaintext)
	require.NoError(t, err)
	require.Len(t, iv, IVSize)
	require.NotEqual(t, plaintext, ciphertext)

	got := c.Decrypt(ciphertext, iv)
	require.Equal(t, plaintext, got)
}

func TestEncryptGeneratesFreshIVEveryCall(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	c, err := NewCipher(key)
	require.NoError(t, err)

	_, iv1, err := c.Encrypt([]byte("payload one"))
	require.NoError(t, err)
	_, iv2, err := c.Encrypt([]byte("payload two"))
	require.NoError(t, err)

	require.NotEqual(t, iv1, iv2)
}

func TestDecryptRejectsWrongIVLength(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	c, err := NewCipher(key)
	require.NoError(t, err)

	got := c.Decrypt([]byte("ciphertext"), []byte("tooshort"))
	require.Nil(t, got)
}

func TestSetKeyAppliesToLaterDecrypts(t *testing.T) {
	key1 := bytes.Repeat([]byte{0x01}, 32)
	key2 := bytes.Repeat([]byte{0x02}, 32)
	c, err := NewCipher(key1)
	require.NoError(t, err)

	plaintext := []byte("payload under the first key!!!!")
	ciphertext, iv, err := c.Encrypt(plaintext)
	require.NoError(t, err)

	require.NoError(t, c.SetKey(key2))

	// Decrypting old ciphertext under the new key should not recover the
	// original plaintext: the key really did change for new operations.
	got := c.Decrypt(ciphertext, iv)
	require.NotEqual(t, plaintext, got)
}

func TestGenerateSecretAndSaltLengths(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)
	require.Len(t, secret, 32)

	salt, err := GenerateSalt()
	require.NoError(t, err)
	require.Len(t, salt, 16)
}
