package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/majo/internal/model"
)

type ActionStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewActionStore(db *sql.DB) *ActionStore {
	return &ActionStore{db: db, now: time.Now}
}

func scanAction(scanner interface{ Scan(...any) error }) (*model.Action, error) {
	var a model.Action
	var typ, unit, category string
	var active int
	var createdAt int64

	err := scanner.Scan(&a.ID, &a.Name, &typ, &unit, &a.PointsPerUnit, &category, &active, &createdAt)
	if err != nil {
		return nil, err
	}

	if a.Type, err = model.ParseActionType(typ); err != nil {
		return nil, err
	}
	if a.Unit, err = model.ParseUnitType(unit); err != nil {
		return nil, err
	}
	if a.Category, err = model.ParseActionCategory(category); err != nil {
		return nil, err
	}
	a.Active = active != 0
	a.CreatedAt = time.UnixMilli(createdAt)
	return &a, nil
}

const actionCols = `id, name, type, unit, points_per_unit, category, is_active, created_at`

// Create inserts a new action. ID and CreatedAt on the argument are ignored.
func (s *ActionStore) Create(a model.Action) (*model.Action, error) {
	result, err := s.db.Exec(
		`INSERT INTO actions (name, type, unit, points_per_unit, category, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Name, string(a.Type), string(a.Unit), a.PointsPerUnit, string(a.Category), boolToInt(a.Active), s.now().UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert action: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ActionStore) GetByID(id int64) (*model.Action, error) {
	row := s.db.QueryRow(`SELECT `+actionCols+` FROM actions WHERE id = ?`, id)
	a, err := scanAction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get action: %w", err)
	}
	return a, nil
}

// List returns all actions, newest first.
func (s *ActionStore) List() ([]model.Action, error) {
	return s.list(`SELECT ` + actionCols + ` FROM actions ORDER BY created_at DESC, id DESC`)
}

// ListActive returns only active actions, newest first.
func (s *ActionStore) ListActive() ([]model.Action, error) {
	return s.list(`SELECT ` + actionCols + ` FROM actions WHERE is_active = 1 ORDER BY created_at DESC, id DESC`)
}

func (s *ActionStore) list(query string) ([]model.Action, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []model.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		actions = append(actions, *a)
	}
	return actions, rows.Err()
}

// Update overwrites every editable field of the action with a.ID.
// CreatedAt is preserved.
func (s *ActionStore) Update(a model.Action) (*model.Action, error) {
	_, err := s.db.Exec(
		`UPDATE actions SET name = ?, type = ?, unit = ?, points_per_unit = ?, category = ?, is_active = ? WHERE id = ?`,
		a.Name, string(a.Type), string(a.Unit), a.PointsPerUnit, string(a.Category), boolToInt(a.Active), a.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update action: %w", err)
	}
	return s.GetByID(a.ID)
}

func (s *ActionStore) SetActive(id int64, active bool) (*model.Action, error) {
	_, err := s.db.Exec(`UPDATE actions SET is_active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return nil, fmt.Errorf("set action active: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes the action; its records go with it.
func (s *ActionStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM actions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete action: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
