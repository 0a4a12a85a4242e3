package model

import "time"

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	DefaultLanguageCode = "ru"
	DefaultAccentColor  = "Purple"
)

// UserSettings is the small preference bag shown on the settings screen.
type UserSettings struct {
	DarkMode     bool   `json:"dark_mode"`
	LanguageCode string `json:"language_code"`
	AccentColor  string `json:"accent_color"`
}

func DefaultUserSettings() UserSettings {
	return UserSettings{
		DarkMode:     false,
		LanguageCode: DefaultLanguageCode,
		AccentColor:  DefaultAccentColor,
	}
}
