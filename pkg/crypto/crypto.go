package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// EncryptedPrefix marks values produced by EncryptString so callers can tell
// sealed values apart from plaintext ones stored before a key was configured.
const EncryptedPrefix = "enc:v1:"

// Encrypt encrypts plaintext bytes using AES-GCM and returns a base64 string.
// The key length selects AES-128, AES-192 or AES-256.
func Encrypt(plaintext, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a base64 encoded AES-GCM payload.
func Decrypt(ciphertext string, key []byte) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, cipherBytes := data[:nonceSize], data[nonceSize:]
	return gcm.Open(nil, nonce, cipherBytes, nil)
}

// EncryptString seals value and prefixes it with EncryptedPrefix.
func EncryptString(value string, key []byte) (string, error) {
	sealed, err := Encrypt([]byte(value), key)
	if err != nil {
		return "", err
	}
	return EncryptedPrefix + sealed, nil
}

// DecryptString reverses EncryptString. Values without the prefix are
// returned unchanged.
func DecryptString(value string, key []byte) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	plain, err := Decrypt(strings.TrimPrefix(value, EncryptedPrefix), key)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// IsEncrypted reports whether value carries the EncryptedPrefix marker.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}

// GenerateSalt returns n random bytes.
func GenerateSalt(n int) ([]byte, error) {
	buffer := make([]byte, n)
	if _, err := rand.Read(buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}
