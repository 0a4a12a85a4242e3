package tracker

import (
	"time"

	"github.com/dukerupert/majo/internal/model"
)

// ActionRepository is satisfied by *store.ActionStore. Lookups return
// nil, nil when the action does not exist.
type ActionRepository interface {
	Create(a model.Action) (*model.Action, error)
	GetByID(id int64) (*model.Action, error)
	List() ([]model.Action, error)
	ListActive() ([]model.Action, error)
	Update(a model.Action) (*model.Action, error)
	SetActive(id int64, active bool) (*model.Action, error)
	Delete(id int64) error
}

// RecordRepository is satisfied by *store.RecordStore.
type RecordRepository interface {
	Create(r model.ActionRecord) (*model.ActionRecord, error)
	GetByID(id int64) (*model.ActionRecord, error)
	ListByAction(actionID int64) ([]model.ActionRecord, error)
	ListForPeriod(start, end time.Time) ([]model.ActionRecord, error)
	Summarize(start, end time.Time) (*model.PeriodSummary, error)
	Delete(id int64) error
}

// SettingsRepository is satisfied by *store.SettingsStore.
type SettingsRepository interface {
	GetUserSettings() (model.UserSettings, error)
	SetDarkMode(dark bool) error
	SetLanguageCode(code string) error
	SetAccentColor(color string) error
}

// Notifier receives a change event after every successful mutation.
type Notifier interface {
	Notify(entity, action string, id int64)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, int64) {}
