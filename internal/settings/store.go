package settings

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/sftpfs/internal/database"
	"github.com/charlesng35/sftpfs/pkg/crypto"
	apperrors "github.com/charlesng35/sftpfs/pkg/errors"
)

const (
	storePrefix = "sftp."
	kdfKey      = "settings.kdf"
)

// Entry is a persisted setting as shown to operators. Secret values are masked.
type Entry struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Secret bool   `json:"secret"`
}

// Store persists settings in the database under the sftp. prefix. When a
// passphrase is configured, secret keys are sealed with an AES key derived
// from it through the per-database argon2id record stored under settings.kdf.
type Store struct {
	db  *gorm.DB
	key []byte
}

// NewStore opens a store on db. An empty passphrase stores everything as plaintext.
func NewStore(ctx context.Context, db *gorm.DB, passphrase string) (*Store, error) {
	if db == nil {
		return nil, apperrors.ErrConfig.Newf("Settings store requires a database")
	}

	store := &Store{db: db}
	if strings.TrimSpace(passphrase) == "" {
		return store, nil
	}

	kdf, err := loadOrCreateKDF(ctx, db)
	if err != nil {
		return nil, apperrors.ErrConfig.Newf("Unable to prepare settings encryption").WithInternal(err)
	}
	key, err := kdf.Key(passphrase)
	if err != nil {
		return nil, apperrors.ErrConfig.Newf("Unable to derive settings key").WithInternal(err)
	}
	store.key = key
	return store, nil
}

func loadOrCreateKDF(ctx context.Context, db *gorm.DB) (crypto.KeyDerivation, error) {
	existing, found, err := database.GetSetting(ctx, db, kdfKey)
	if err != nil {
		return crypto.KeyDerivation{}, err
	}
	if found {
		return crypto.ParseKeyDerivation(existing.Value)
	}

	kdf, err := crypto.NewKeyDerivation()
	if err != nil {
		return crypto.KeyDerivation{}, err
	}
	if err := database.UpsertSetting(ctx, db, kdfKey, kdf.String(), false); err != nil {
		return crypto.KeyDerivation{}, err
	}
	return kdf, nil
}

// Encrypted reports whether secret values are sealed on write.
func (s *Store) Encrypted() bool {
	return len(s.key) > 0
}

// Setting implements Provider.
func (s *Store) Setting(ctx context.Context, key string) (string, bool, error) {
	key = Normalize(key)
	record, found, err := database.GetSetting(ctx, s.db, storePrefix+key)
	if err != nil {
		return "", false, apperrors.ErrConfig.Newf("Unable to read setting %s", key).WithInternal(err)
	}
	if !found {
		return "", false, nil
	}

	if !crypto.IsEncrypted(record.Value) {
		return record.Value, true, nil
	}
	if !s.Encrypted() {
		return "", false, apperrors.ErrConfig.Newf("Setting %s is encrypted but no encryption key is configured", key)
	}
	value, err := crypto.DecryptString(record.Value, s.key)
	if err != nil {
		return "", false, apperrors.ErrConfig.Newf("Unable to decrypt setting %s", key).WithInternal(err)
	}
	return value, true, nil
}

// Set stores value under key, sealing secret keys when encryption is enabled.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if !IsKnown(key) {
		return apperrors.ErrConfig.Newf("Unknown setting %q", key)
	}
	key = Normalize(key)
	secret := IsSecret(key)

	stored := value
	if secret && s.Encrypted() {
		sealed, err := crypto.EncryptString(value, s.key)
		if err != nil {
			return apperrors.ErrConfig.Newf("Unable to encrypt setting %s", key).WithInternal(err)
		}
		stored = sealed
	}

	if err := database.UpsertSetting(ctx, s.db, storePrefix+key, stored, secret); err != nil {
		return apperrors.ErrConfig.Newf("Unable to store setting %s", key).WithInternal(err)
	}
	return nil
}

// Unset removes key and reports whether it was present.
func (s *Store) Unset(ctx context.Context, key string) (bool, error) {
	key = Normalize(key)
	deleted, err := database.DeleteSetting(ctx, s.db, storePrefix+key)
	if err != nil {
		return false, apperrors.ErrConfig.Newf("Unable to remove setting %s", key).WithInternal(err)
	}
	return deleted, nil
}

// List returns every stored setting with secret values masked.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	records, err := database.ListSettings(ctx, s.db, storePrefix)
	if err != nil {
		return nil, apperrors.ErrConfig.Newf("Unable to list settings").WithInternal(err)
	}

	entries := make([]Entry, 0, len(records))
	for _, record := range records {
		entry := Entry{
			Key:    strings.TrimPrefix(record.Key, storePrefix),
			Value:  record.Value,
			Secret: record.Secret,
		}
		if entry.Secret {
			entry.Value = "***"
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
