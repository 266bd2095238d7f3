package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	key := bytes.Repeat([]byte{0x1}, 32)
	plaintext := []byte("sensitive data")

	encoded, err := Encrypt(plaintext, key)
	require.NoError(t, err)

	decrypted, err := Decrypt(encoded, key)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	encoded, err := Encrypt([]byte("secret"), bytes.Repeat([]byte{0x1}, 16))
	require.NoError(t, err)

	_, err = Decrypt(encoded, bytes.Repeat([]byte{0x2}, 16))
	require.Error(t, err)
}

func TestEncryptStringRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x7}, 32)

	sealed, err := EncryptString("hunter2", key)
	require.NoError(t, err)
	require.True(t, IsEncrypted(sealed))
	require.NotContains(t, sealed, "hunter2")

	plain, err := DecryptString(sealed, key)
	require.NoError(t, err)
	require.Equal(t, "hunter2", plain)
}

func TestDecryptStringPassesPlaintextThrough(t *testing.T) {
	plain, err := DecryptString("not sealed", bytes.Repeat([]byte{0x7}, 32))
	require.NoError(t, err)
	require.Equal(t, "not sealed", plain)
}

func TestGenerateSalt(t *testing.T) {
	a, err := GenerateSalt(16)
	require.NoError(t, err)
	b, err := GenerateSalt(16)
	require.NoError(t, err)

	require.Len(t, a, 16)
	require.NotEqual(t, a, b)
}
