package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/majo/internal/model"
)

type RecordStore struct {
	db *sql.DB
}

func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

func scanRecord(scanner interface{ Scan(...any) error }) (*model.ActionRecord, error) {
	var r model.ActionRecord
	var recordedAt int64

	err := scanner.Scan(&r.ID, &r.ActionID, &r.Value, &recordedAt, &r.TotalPoints)
	if err != nil {
		return nil, err
	}
	r.RecordedAt = time.UnixMilli(recordedAt)
	return &r, nil
}

const recordCols = `id, action_id, value, recorded_at, total_points`

func (s *RecordStore) Create(r model.ActionRecord) (*model.ActionRecord, error) {
	result, err := s.db.Exec(
		`INSERT INTO records (action_id, value, recorded_at, total_points) VALUES (?, ?, ?, ?)`,
		r.ActionID, r.Value, r.RecordedAt.UnixMilli(), r.TotalPoints,
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RecordStore) GetByID(id int64) (*model.ActionRecord, error) {
	row := s.db.QueryRow(`SELECT `+recordCols+` FROM records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return r, nil
}

// ListByAction returns the action's records, most recent first.
func (s *RecordStore) ListByAction(actionID int64) ([]model.ActionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+recordCols+` FROM records WHERE action_id = ? ORDER BY recorded_at DESC, id DESC`,
		actionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list records by action: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListForPeriod returns records with start <= recorded_at <= end, most recent first.
func (s *RecordStore) ListForPeriod(start, end time.Time) ([]model.ActionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+recordCols+` FROM records WHERE recorded_at BETWEEN ? AND ? ORDER BY recorded_at DESC, id DESC`,
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("list records for period: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]model.ActionRecord, error) {
	var records []model.ActionRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

func (s *RecordStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// Summarize aggregates the points of every record in [start, end].
func (s *RecordStore) Summarize(start, end time.Time) (*model.PeriodSummary, error) {
	rows, err := s.db.Query(
		`SELECT action_id, COALESCE(SUM(total_points), 0), COUNT(*) FROM records
		 WHERE recorded_at BETWEEN ? AND ? GROUP BY action_id`,
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("summarize records: %w", err)
	}
	defer rows.Close()

	summary := &model.PeriodSummary{
		Start:          start,
		End:            end,
		PointsByAction: make(map[int64]float64),
	}
	for rows.Next() {
		var actionID int64
		var total float64
		var count int
		if err := rows.Scan(&actionID, &total, &count); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summary.PointsByAction[actionID] = total
		summary.TotalPoints += total
		summary.RecordCount += count
	}
	return summary, rows.Err()
}

// CountSince returns how many records were logged at or after t.
func (s *RecordStore) CountSince(t time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records WHERE recorded_at >= ?`, t.UnixMilli()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
