package tracker

import (
	"fmt"
	"time"

	"github.com/dukerupert/majo/internal/model"
)

// DayEntry pairs a record with its action. Action is nil when the action
// can no longer be found.
type DayEntry struct {
	Record model.ActionRecord `json:"record"`
	Action *model.Action      `json:"action"`
}

type DayView struct {
	Date        string     `json:"date"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Entries     []DayEntry `json:"entries"`
	TotalPoints float64    `json:"total_points"`
	HasNext     bool       `json:"has_next"`
}

const dateLayout = "2006-01-02"

// StartOfDay returns midnight of the day containing ts in loc.
func StartOfDay(ts time.Time, loc *time.Location) time.Time {
	ts = ts.In(loc)
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
}

// dayBounds returns the first and last millisecond of the day.
func dayBounds(start time.Time) (time.Time, time.Time) {
	next := start.AddDate(0, 0, 1)
	return start, next.Add(-time.Millisecond)
}

// ParseDay parses "today" or a YYYY-MM-DD date in the tracker's location.
func (t *Tracker) ParseDay(s string) (time.Time, error) {
	if s == "" || s == "today" {
		return StartOfDay(t.now(), t.loc), nil
	}
	d, err := time.ParseInLocation(dateLayout, s, t.loc)
	if err != nil {
		return time.Time{}, invalid("date", "date must be YYYY-MM-DD")
	}
	return d, nil
}

// DayView lists the records logged on the day containing day.
func (t *Tracker) DayView(day time.Time) (*DayView, error) {
	start, end := dayBounds(StartOfDay(day, t.loc))

	recs, err := t.records.ListForPeriod(start, end)
	if err != nil {
		return nil, fmt.Errorf("list records for day: %w", err)
	}

	actions, err := t.actions.List()
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	byID := make(map[int64]*model.Action, len(actions))
	for i := range actions {
		byID[actions[i].ID] = &actions[i]
	}

	view := &DayView{
		Date:    start.Format(dateLayout),
		Start:   start,
		End:     end,
		Entries: make([]DayEntry, 0, len(recs)),
		HasNext: start.Before(StartOfDay(t.now(), t.loc)),
	}
	for _, r := range recs {
		view.Entries = append(view.Entries, DayEntry{Record: r, Action: byID[r.ActionID]})
		view.TotalPoints += r.TotalPoints
	}
	return view, nil
}

func (t *Tracker) PreviousDay(day time.Time) time.Time {
	return StartOfDay(day, t.loc).AddDate(0, 0, -1)
}

// NextDay moves one day forward but never past today.
func (t *Tracker) NextDay(day time.Time) time.Time {
	next := StartOfDay(day, t.loc).AddDate(0, 0, 1)
	today := StartOfDay(t.now(), t.loc)
	if next.After(today) {
		return today
	}
	return next
}
