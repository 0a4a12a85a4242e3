package tracker

import (
	"fmt"
	"strings"

	"github.com/dukerupert/majo/internal/model"
)

var languages = map[string]string{
	"ru":      "ru",
	"русский": "ru",
	"en":      "en",
	"english": "en",
}

// AccentColors lists the selectable accent colors.
var AccentColors = []string{"Blue", "Green", "Purple"}

// SettingsPatch carries the settings to change; nil fields are left alone.
type SettingsPatch struct {
	DarkMode    *bool   `json:"dark_mode,omitempty"`
	Language    *string `json:"language,omitempty"`
	AccentColor *string `json:"accent_color,omitempty"`
}

// LanguageCode maps a language code or display name to a supported code.
// Unknown values fall back to Russian.
func LanguageCode(s string) string {
	if code, ok := languages[strings.ToLower(strings.TrimSpace(s))]; ok {
		return code
	}
	return model.DefaultLanguageCode
}

func normalizeAccent(s string) (string, bool) {
	for _, c := range AccentColors {
		if strings.EqualFold(c, strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}

func (t *Tracker) Settings() (model.UserSettings, error) {
	s, err := t.settings.GetUserSettings()
	if err != nil {
		return model.UserSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

// UpdateSettings validates the whole patch before writing any key.
func (t *Tracker) UpdateSettings(p SettingsPatch) (model.UserSettings, error) {
	var accent string
	if p.AccentColor != nil {
		var ok bool
		if accent, ok = normalizeAccent(*p.AccentColor); !ok {
			return model.UserSettings{}, invalid("accent_color", "accent color must be one of "+strings.Join(AccentColors, ", "))
		}
	}

	if p.DarkMode != nil {
		if err := t.settings.SetDarkMode(*p.DarkMode); err != nil {
			return model.UserSettings{}, fmt.Errorf("set dark mode: %w", err)
		}
	}
	if p.Language != nil {
		if err := t.settings.SetLanguageCode(LanguageCode(*p.Language)); err != nil {
			return model.UserSettings{}, fmt.Errorf("set language: %w", err)
		}
	}
	if p.AccentColor != nil {
		if err := t.settings.SetAccentColor(accent); err != nil {
			return model.UserSettings{}, fmt.Errorf("set accent color: %w", err)
		}
	}

	t.notifier.Notify(EntitySettings, "updated", 0)
	return t.Settings()
}
