package tracker

import (
	"errors"
	"sort"
	"time"

	"github.com/dukerupert/majo/internal/model"
)

// In-memory repositories with the same ordering and not-found behavior as
// the SQLite stores.

type memActions struct {
	nextID  int64
	actions map[int64]model.Action
	now     func() time.Time
	records *memRecords
}

func newMemActions(now func() time.Time) *memActions {
	return &memActions{actions: make(map[int64]model.Action), now: now}
}

func (m *memActions) Create(a model.Action) (*model.Action, error) {
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = m.now()
	m.actions[a.ID] = a
	return &a, nil
}

func (m *memActions) GetByID(id int64) (*model.Action, error) {
	a, ok := m.actions[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memActions) sorted(activeOnly bool) []model.Action {
	var out []model.Action
	for _, a := range m.actions {
		if activeOnly && !a.Active {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memActions) List() ([]model.Action, error)       { return m.sorted(false), nil }
func (m *memActions) ListActive() ([]model.Action, error) { return m.sorted(true), nil }

func (m *memActions) Update(a model.Action) (*model.Action, error) {
	old, ok := m.actions[a.ID]
	if !ok {
		return nil, nil
	}
	a.CreatedAt = old.CreatedAt
	m.actions[a.ID] = a
	return &a, nil
}

func (m *memActions) SetActive(id int64, active bool) (*model.Action, error) {
	a, ok := m.actions[id]
	if !ok {
		return nil, nil
	}
	a.Active = active
	m.actions[id] = a
	return &a, nil
}

func (m *memActions) Delete(id int64) error {
	delete(m.actions, id)
	if m.records != nil {
		for rid, r := range m.records.records {
			if r.ActionID == id {
				delete(m.records.records, rid)
			}
		}
	}
	return nil
}

type memRecords struct {
	nextID  int64
	records map[int64]model.ActionRecord
	actions *memActions
}

func newMemRecords(actions *memActions) *memRecords {
	r := &memRecords{records: make(map[int64]model.ActionRecord), actions: actions}
	actions.records = r
	return r
}

func (m *memRecords) Create(r model.ActionRecord) (*model.ActionRecord, error) {
	if _, ok := m.actions.actions[r.ActionID]; !ok {
		return nil, errors.New("FOREIGN KEY constraint failed")
	}
	m.nextID++
	r.ID = m.nextID
	m.records[r.ID] = r
	return &r, nil
}

func (m *memRecords) GetByID(id int64) (*model.ActionRecord, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memRecords) filter(keep func(model.ActionRecord) bool) []model.ActionRecord {
	var out []model.ActionRecord
	for _, r := range m.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func inRange(ts, start, end time.Time) bool {
	return !ts.Before(start) && !ts.After(end)
}

func (m *memRecords) ListByAction(actionID int64) ([]model.ActionRecord, error) {
	return m.filter(func(r model.ActionRecord) bool { return r.ActionID == actionID }), nil
}

func (m *memRecords) ListForPeriod(start, end time.Time) ([]model.ActionRecord, error) {
	return m.filter(func(r model.ActionRecord) bool { return inRange(r.RecordedAt, start, end) }), nil
}

func (m *memRecords) Summarize(start, end time.Time) (*model.PeriodSummary, error) {
	s := &model.PeriodSummary{Start: start, End: end, PointsByAction: make(map[int64]float64)}
	for _, r := range m.records {
		if !inRange(r.RecordedAt, start, end) {
			continue
		}
		s.PointsByAction[r.ActionID] += r.TotalPoints
		s.TotalPoints += r.TotalPoints
		s.RecordCount++
	}
	return s, nil
}

func (m *memRecords) Delete(id int64) error {
	delete(m.records, id)
	return nil
}

type memSettings struct {
	s model.UserSettings
}

func newMemSettings() *memSettings {
	return &memSettings{s: model.DefaultUserSettings()}
}

func (m *memSettings) GetUserSettings() (model.UserSettings, error) { return m.s, nil }
func (m *memSettings) SetDarkMode(dark bool) error                  { m.s.DarkMode = dark; return nil }
func (m *memSettings) SetLanguageCode(code string) error            { m.s.LanguageCode = code; return nil }
func (m *memSettings) SetAccentColor(color string) error            { m.s.AccentColor = color; return nil }

type event struct {
	entity, action string
	id             int64
}

type recordingNotifier struct {
	events []event
}

func (n *recordingNotifier) Notify(entity, action string, id int64) {
	n.events = append(n.events, event{entity, action, id})
}

type observed struct {
	typ    model.ActionType
	points float64
}

type recordingObserver struct {
	calls []observed
}

func (o *recordingObserver) RecordLogged(t model.ActionType, points float64) {
	o.calls = append(o.calls, observed{t, points})
}
