package backup

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dukerupert/majo/internal/store"
)

const (
	DefaultScheduleHour  = 3
	DefaultRetentionDays = 30
)

var ErrInvalidSettings = errors.New("invalid backup settings")

// Settings is the user-editable backup schedule.
type Settings struct {
	Enabled       bool `json:"enabled"`
	ScheduleHour  int  `json:"schedule_hour"`
	RetentionDays int  `json:"retention_days"`
	PassphraseSet bool `json:"passphrase_set"`
}

// LoadSettings reads the schedule from the settings table. Unparseable
// values fall back to the defaults.
func LoadSettings(ss *store.SettingsStore) (Settings, error) {
	raw, err := ss.GetBackupSettings()
	if err != nil {
		return Settings{}, fmt.Errorf("get backup settings: %w", err)
	}

	s := Settings{
		Enabled:       raw["backup_enabled"] == "true",
		ScheduleHour:  DefaultScheduleHour,
		RetentionDays: DefaultRetentionDays,
		PassphraseSet: raw["backup_passphrase_salt"] != "",
	}
	if h, err := strconv.Atoi(raw["backup_schedule_hour"]); err == nil && h >= 0 && h <= 23 {
		s.ScheduleHour = h
	}
	if d, err := strconv.Atoi(raw["backup_retention_days"]); err == nil && d > 0 {
		s.RetentionDays = d
	}
	return s, nil
}

// SaveSettings validates and stores the schedule. PassphraseSet is ignored.
func SaveSettings(ss *store.SettingsStore, s Settings) error {
	if s.ScheduleHour < 0 || s.ScheduleHour > 23 {
		return fmt.Errorf("%w: schedule hour must be between 0 and 23", ErrInvalidSettings)
	}
	if s.RetentionDays < 1 || s.RetentionDays > 3650 {
		return fmt.Errorf("%w: retention must be between 1 and 3650 days", ErrInvalidSettings)
	}

	values := map[string]string{
		"backup_enabled":        strconv.FormatBool(s.Enabled),
		"backup_schedule_hour":  strconv.Itoa(s.ScheduleHour),
		"backup_retention_days": strconv.Itoa(s.RetentionDays),
	}
	for key, value := range values {
		if err := ss.Set(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// LoadStorage returns the storage target saved through SetStorage, or base
// when nothing has been saved. A saved empty bucket means storage was
// switched off and wins over base.
func LoadStorage(ss *store.SettingsStore, base S3Config) (S3Config, error) {
	raw, err := ss.GetStorageSettings()
	if err != nil {
		return S3Config{}, fmt.Errorf("get storage settings: %w", err)
	}
	if _, saved := raw["s3_bucket"]; !saved {
		return base, nil
	}
	return S3Config{
		Endpoint:  raw["s3_endpoint"],
		Bucket:    raw["s3_bucket"],
		Region:    raw["s3_region"],
		AccessKey: raw["s3_access_key"],
		SecretKey: raw["s3_secret_key"],
	}, nil
}

// SaveStorage stores cfg. Bucket, access key and secret key must be all set
// or all empty.
func SaveStorage(ss *store.SettingsStore, cfg S3Config) error {
	set := 0
	for _, v := range []string{cfg.Bucket, cfg.AccessKey, cfg.SecretKey} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("%w: bucket, access key and secret key go together", ErrInvalidSettings)
	}
	if cfg.Region == "" && set == 3 {
		cfg.Region = "auto"
	}

	values := map[string]string{
		"s3_endpoint":   cfg.Endpoint,
		"s3_bucket":     cfg.Bucket,
		"s3_region":     cfg.Region,
		"s3_access_key": cfg.AccessKey,
		"s3_secret_key": cfg.SecretKey,
	}
	for key, value := range values {
		if err := ss.Set(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}
