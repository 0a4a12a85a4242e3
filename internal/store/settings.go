package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/dukerupert/majo/internal/model"
)

const (
	KeyDarkMode     = "is_dark_mode"
	KeyLanguageCode = "language_code"
	KeyAccentColor  = "accent_color"
)

var backupKeys = []string{
	"backup_enabled",
	"backup_schedule_hour",
	"backup_retention_days",
	"backup_passphrase_salt",
	"backup_passphrase_check",
}

var storageKeys = []string{
	"s3_endpoint",
	"s3_bucket",
	"s3_region",
	"s3_access_key",
	"s3_secret_key",
}

var reminderKeys = []string{
	"reminder_enabled",
	"reminder_hour",
}

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) GetAll() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// GetUserSettings reads the preference bag, falling back to defaults for
// keys that were never written.
func (s *SettingsStore) GetUserSettings() (model.UserSettings, error) {
	us := model.DefaultUserSettings()

	values, err := s.getKeys([]string{KeyDarkMode, KeyLanguageCode, KeyAccentColor})
	if err != nil {
		return us, err
	}

	if v, ok := values[KeyDarkMode]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			us.DarkMode = b
		}
	}
	if v := values[KeyLanguageCode]; v != "" {
		us.LanguageCode = v
	}
	if v := values[KeyAccentColor]; v != "" {
		us.AccentColor = v
	}
	return us, nil
}

func (s *SettingsStore) SetDarkMode(dark bool) error {
	return s.Set(KeyDarkMode, strconv.FormatBool(dark))
}

func (s *SettingsStore) SetLanguageCode(code string) error {
	return s.Set(KeyLanguageCode, code)
}

func (s *SettingsStore) SetAccentColor(color string) error {
	return s.Set(KeyAccentColor, color)
}

func (s *SettingsStore) GetBackupSettings() (map[string]string, error) {
	return s.getKeys(backupKeys)
}

func (s *SettingsStore) GetStorageSettings() (map[string]string, error) {
	return s.getKeys(storageKeys)
}

func (s *SettingsStore) GetReminderSettings() (map[string]string, error) {
	return s.getKeys(reminderKeys)
}

// getKeys returns the stored values for keys; missing keys are omitted.
func (s *SettingsStore) getKeys(keys []string) (map[string]string, error) {
	settings := make(map[string]string)
	for _, key := range keys {
		var value string
		err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get setting %q: %w", key, err)
		}
		settings[key] = value
	}
	return settings, nil
}
