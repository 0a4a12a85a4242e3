package model

import "time"

// ActionRecord is one logged occurrence of an action. TotalPoints is
// computed when the record is written and never recalculated.
type ActionRecord struct {
	ID          int64     `json:"id"`
	ActionID    int64     `json:"action_id"`
	Value       float64   `json:"value"`
	RecordedAt  time.Time `json:"recorded_at"`
	TotalPoints float64   `json:"total_points"`
}

type PeriodSummary struct {
	Start          time.Time         `json:"start"`
	End            time.Time         `json:"end"`
	TotalPoints    float64           `json:"total_points"`
	RecordCount    int               `json:"record_count"`
	PointsByAction map[int64]float64 `json:"points_by_action"`
}
