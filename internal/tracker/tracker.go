// Package tracker holds the application operations behind every screen:
// editing actions, logging records, day navigation, period summaries and
// user settings. It depends only on the repository interfaces it declares.
package tracker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/majo/internal/model"
	"github.com/dukerupert/majo/internal/points"
)

// Entities named in change notifications.
const (
	EntityAction   = "action"
	EntityRecord   = "record"
	EntitySettings = "settings"
)

// RecordObserver is told about every record that is logged.
type RecordObserver interface {
	RecordLogged(t model.ActionType, points float64)
}

type Tracker struct {
	actions  ActionRepository
	records  RecordRepository
	settings SettingsRepository
	notifier Notifier
	observer RecordObserver
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

type Option func(*Tracker)

func WithNotifier(n Notifier) Option {
	return func(t *Tracker) { t.notifier = n }
}

func WithObserver(o RecordObserver) Option {
	return func(t *Tracker) { t.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the time zone that decides where a day begins.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.loc = loc }
}

func New(actions ActionRepository, records RecordRepository, settings SettingsRepository, opts ...Option) *Tracker {
	t := &Tracker{
		actions:  actions,
		records:  records,
		settings: settings,
		notifier: nopNotifier{},
		logger:   slog.Default(),
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "tracker")
	return t
}

// SaveAction creates the action when form.ID is 0 and updates it otherwise.
func (t *Tracker) SaveAction(form ActionForm) (*model.Action, error) {
	a, err := form.toAction()
	if err != nil {
		return nil, err
	}

	if a.ID == 0 {
		created, err := t.actions.Create(a)
		if err != nil {
			return nil, fmt.Errorf("create action: %w", err)
		}
		t.logger.Info("action created", "action_id", created.ID, "type", created.Type)
		t.notifier.Notify(EntityAction, "created", created.ID)
		return created, nil
	}

	existing, err := t.actions.GetByID(a.ID)
	if err != nil {
		return nil, fmt.Errorf("get action: %w", err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	if form.Active == nil {
		a.Active = existing.Active
	}

	updated, err := t.actions.Update(a)
	if err != nil {
		return nil, fmt.Errorf("update action: %w", err)
	}
	// deleted between the lookup and the update
	if updated == nil {
		return nil, ErrNotFound
	}
	t.notifier.Notify(EntityAction, "updated", updated.ID)
	return updated, nil
}

func (t *Tracker) ListActions() ([]model.Action, error) {
	actions, err := t.actions.List()
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	if actions == nil {
		actions = []model.Action{}
	}
	return actions, nil
}

func (t *Tracker) ListActiveActions() ([]model.Action, error) {
	actions, err := t.actions.ListActive()
	if err != nil {
		return nil, fmt.Errorf("list active actions: %w", err)
	}
	if actions == nil {
		actions = []model.Action{}
	}
	return actions, nil
}

func (t *Tracker) GetAction(id int64) (*model.Action, error) {
	a, err := t.actions.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("get action: %w", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

// DeleteAction removes the action together with all of its records.
func (t *Tracker) DeleteAction(id int64) error {
	if _, err := t.GetAction(id); err != nil {
		return err
	}
	if err := t.actions.Delete(id); err != nil {
		return fmt.Errorf("delete action: %w", err)
	}
	t.logger.Info("action deleted", "action_id", id)
	t.notifier.Notify(EntityAction, "deleted", id)
	return nil
}

func (t *Tracker) SetActionActive(id int64, active bool) (*model.Action, error) {
	if _, err := t.GetAction(id); err != nil {
		return nil, err
	}
	a, err := t.actions.SetActive(id, active)
	if err != nil {
		return nil, fmt.Errorf("set action active: %w", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}
	t.notifier.Notify(EntityAction, "updated", id)
	return a, nil
}

// PreviewPoints returns the points a record with this value would earn.
func (t *Tracker) PreviewPoints(actionID int64, value string) (float64, error) {
	a, err := t.GetAction(actionID)
	if err != nil {
		return 0, err
	}
	v, err := parseValue(value)
	if err != nil {
		return 0, err
	}
	return points.Calculate(*a, v), nil
}

// LogRecord stores a record for an active action. Records that would earn
// no points are refused.
func (t *Tracker) LogRecord(form RecordForm) (*model.ActionRecord, error) {
	a, err := t.GetAction(form.ActionID)
	if errors.Is(err, ErrNotFound) {
		return nil, invalid("action_id", "action does not exist")
	}
	if err != nil {
		return nil, err
	}
	if !a.Active {
		return nil, invalid("action_id", "action is not active")
	}

	v, err := parseValue(form.Value)
	if err != nil {
		return nil, err
	}
	earned := points.Calculate(*a, v)
	if earned <= 0 {
		return nil, invalid("value", "record earns no points")
	}

	recordedAt := t.now()
	if form.RecordedAt != nil {
		recordedAt = *form.RecordedAt
	}

	rec, err := t.records.Create(model.ActionRecord{
		ActionID:    a.ID,
		Value:       v,
		RecordedAt:  recordedAt,
		TotalPoints: earned,
	})
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	if t.observer != nil {
		t.observer.RecordLogged(a.Type, earned)
	}
	t.logger.Info("record logged", "record_id", rec.ID, "action_id", a.ID, "points", earned)
	t.notifier.Notify(EntityRecord, "created", rec.ID)
	return rec, nil
}

func (t *Tracker) DeleteRecord(id int64) error {
	rec, err := t.records.GetByID(id)
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	if rec == nil {
		return ErrNotFound
	}
	if err := t.records.Delete(id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	t.notifier.Notify(EntityRecord, "deleted", id)
	return nil
}

// ListRecordsForAction returns the action's records, newest first.
func (t *Tracker) ListRecordsForAction(actionID int64) ([]model.ActionRecord, error) {
	if _, err := t.GetAction(actionID); err != nil {
		return nil, err
	}
	recs, err := t.records.ListByAction(actionID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if recs == nil {
		recs = []model.ActionRecord{}
	}
	return recs, nil
}
