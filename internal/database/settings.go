package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/sftpfs/internal/models"
)

// GetSetting retrieves a setting by key. The boolean is false when the key is
// absent or the settings table has not been created yet.
func GetSetting(ctx context.Context, db *gorm.DB, key string) (models.Setting, bool, error) {
	if db == nil {
		return models.Setting{}, false, fmt.Errorf("settings: db is nil")
	}

	var setting models.Setting
	err := db.WithContext(ctx).Take(&setting, "key = ?", key).Error
	if err == nil {
		return setting, true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Setting{}, false, nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return models.Setting{}, false, nil
	}
	return models.Setting{}, false, fmt.Errorf("settings: get %q: %w", key, err)
}

// UpsertSetting stores or updates a setting value.
func UpsertSetting(ctx context.Context, db *gorm.DB, key, value string, secret bool) error {
	if db == nil {
		return fmt.Errorf("settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("settings: key is required")
	}

	record := models.Setting{
		Key:    key,
		Value:  value,
		Secret: secret,
	}

	if err := db.WithContext(ctx).
		Where("key = ?", key).
		Assign(map[string]any{"value": value, "secret": secret}).
		FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("settings: upsert %q: %w", key, err)
	}

	return nil
}

// DeleteSetting removes key and reports whether a row existed.
func DeleteSetting(ctx context.Context, db *gorm.DB, key string) (bool, error) {
	if db == nil {
		return false, fmt.Errorf("settings: db is nil")
	}

	result := db.WithContext(ctx).Where("key = ?", key).Delete(&models.Setting{})
	if result.Error != nil {
		return false, fmt.Errorf("settings: delete %q: %w", key, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListSettings returns settings whose key starts with prefix, ordered by key.
func ListSettings(ctx context.Context, db *gorm.DB, prefix string) ([]models.Setting, error) {
	if db == nil {
		return nil, fmt.Errorf("settings: db is nil")
	}

	var settings []models.Setting
	query := db.WithContext(ctx).Order("key")
	if prefix != "" {
		query = query.Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
	}
	if err := query.Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("settings: list %q: %w", prefix, err)
	}
	return settings, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
