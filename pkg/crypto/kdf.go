package crypto

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	kdfScheme   = "argon2id"
	minSaltSize = 16
	keySize     = 32
)

// KeyDerivation records how a settings passphrase becomes the AES-256 key.
// It is persisted next to the sealed values so the cost can be raised later
// without breaking databases written with older parameters.
type KeyDerivation struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	Salt    []byte
}

// NewKeyDerivation returns the current default cost with a fresh random salt.
func NewKeyDerivation() (KeyDerivation, error) {
	salt, err := GenerateSalt(minSaltSize)
	if err != nil {
		return KeyDerivation{}, err
	}
	return KeyDerivation{Time: 2, Memory: 19 * 1024, Threads: 1, Salt: salt}, nil
}

// ParseKeyDerivation reads the form produced by String:
// argon2id$m=<KiB>,t=<iterations>,p=<threads>$<base64 salt>.
func ParseKeyDerivation(encoded string) (KeyDerivation, error) {
	parts := strings.Split(strings.TrimSpace(encoded), "$")
	if len(parts) != 3 || parts[0] != kdfScheme {
		return KeyDerivation{}, fmt.Errorf("kdf: unrecognised format")
	}

	var k KeyDerivation
	if _, err := fmt.Sscanf(parts[1], "m=%d,t=%d,p=%d", &k.Memory, &k.Time, &k.Threads); err != nil {
		return KeyDerivation{}, fmt.Errorf("kdf: parameters: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return KeyDerivation{}, fmt.Errorf("kdf: salt: %w", err)
	}
	k.Salt = salt

	if err := k.Validate(); err != nil {
		return KeyDerivation{}, err
	}
	return k, nil
}

func (k KeyDerivation) String() string {
	return fmt.Sprintf("%s$m=%d,t=%d,p=%d$%s",
		kdfScheme, k.Memory, k.Time, k.Threads, base64.RawStdEncoding.EncodeToString(k.Salt))
}

// Validate rejects cost factors argon2 cannot run with and short salts.
func (k KeyDerivation) Validate() error {
	switch {
	case k.Time == 0:
		return fmt.Errorf("kdf: time cost must be greater than zero")
	case k.Threads == 0:
		return fmt.Errorf("kdf: parallelism must be greater than zero")
	case k.Memory < 8*uint32(k.Threads):
		return fmt.Errorf("kdf: memory cost must be at least 8 * threads")
	case len(k.Salt) < minSaltSize:
		return fmt.Errorf("kdf: salt must be at least %d bytes (got %d)", minSaltSize, len(k.Salt))
	}
	return nil
}

// Key derives the AES-256 key for passphrase.
func (k KeyDerivation) Key(passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("kdf: passphrase is required")
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return argon2.IDKey([]byte(passphrase), k.Salt, k.Time, k.Memory, k.Threads, keySize), nil
}
