package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("Hello world")
	b := Fingerprint("Hello world")
	c := Fingerprint("Hello world!")

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestEncryptorRoundTrip(t *testing.T) {
	key, err := GenerateKeyBase64()
	require.NoError(t, err)

	enc, err := NewEncryptorFromBase64(key)
	require.NoError(t, err)
	require.NotNil(t, enc)

	sealed, err := enc.Encrypt("a secret analysis input")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "secret")

	plain, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "a secret analysis input", plain)
}

func TestEncryptorRejectsTampering(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	enc, err := NewEncryptor(key)
	require.NoError(t, err)

	other, err := GenerateKey()
	require.NoError(t, err)
	otherEnc, err := NewEncryptor(other)
	require.NoError(t, err)

	sealed, err := enc.Encrypt("payload")
	require.NoError(t, err)

	_, err = otherEnc.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = enc.Decrypt("c2hvcnQ=")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestNewEncryptorKeyValidation(t *testing.T) {
	_, err := NewEncryptor([]byte(strings.Repeat("k", 16)))
	assert.ErrorIs(t, err, ErrInvalidKey)

	enc, err := NewEncryptorFromBase64("")
	require.NoError(t, err)
	assert.Nil(t, enc)

	sealed, err := enc.Encrypt("ignored")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	_, err = NewEncryptorFromBase64("not base64!!")
	assert.Error(t, err)
}
