package tracker

import (
	"fmt"
	"time"

	"github.com/dukerupert/majo/internal/model"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	case "":
		return PeriodDay, nil
	}
	return "", invalid("period", "period must be day, week or month")
}

// PeriodBounds returns the inclusive range of the period containing anchor.
// Weeks start on Monday.
func (t *Tracker) PeriodBounds(p Period, anchor time.Time) (time.Time, time.Time) {
	day := StartOfDay(anchor, t.loc)
	var start, next time.Time
	switch p {
	case PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
		next = start.AddDate(0, 0, 7)
	case PeriodMonth:
		start = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, t.loc)
		next = start.AddDate(0, 1, 0)
	default:
		start = day
		next = start.AddDate(0, 0, 1)
	}
	return start, next.Add(-time.Millisecond)
}

// Summary aggregates the points earned in the period containing anchor.
func (t *Tracker) Summary(p Period, anchor time.Time) (*model.PeriodSummary, error) {
	start, end := t.PeriodBounds(p, anchor)
	return t.SummaryRange(start, end)
}

// SummaryRange aggregates the points earned in [start, end].
func (t *Tracker) SummaryRange(start, end time.Time) (*model.PeriodSummary, error) {
	if end.Before(start) {
		return nil, invalid("end", "end must not be before start")
	}
	s, err := t.records.Summarize(start, end)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	return s, nil
}
