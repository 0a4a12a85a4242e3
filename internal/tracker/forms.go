package tracker

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/majo/internal/model"
	"github.com/dukerupert/majo/internal/points"
)

// ActionForm is the raw input of the add/edit action screen. ID 0 creates.
type ActionForm struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Unit          string `json:"unit"`
	PointsPerUnit string `json:"points_per_unit"`
	Category      string `json:"category"`
	Active        *bool  `json:"active,omitempty"`
}

// NewActionForm returns a form holding the defaults shown for a new action.
func NewActionForm() ActionForm {
	return ActionForm{
		Type:          string(model.ActionTypeCount),
		Unit:          string(model.UnitRepetition),
		PointsPerUnit: "1",
		Category:      string(model.CategoryOther),
	}
}

// RecordForm is the raw input of the log-record screen.
type RecordForm struct {
	ActionID   int64      `json:"action_id"`
	Value      string     `json:"value"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

var decimalPattern = regexp.MustCompile(`^\d*\.?\d*$`)

// parseValue accepts plain non-negative decimals such as "5", "2.5" or ".5".
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, invalid("value", "value is required")
	}
	if !decimalPattern.MatchString(s) {
		return 0, invalid("value", "value must be a non-negative number")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, invalid("value", "value must be a non-negative number")
	}
	return v, nil
}

// toAction validates the form and converts it into a model.Action.
func (f ActionForm) toAction() (model.Action, error) {
	defaults := NewActionForm()

	name := strings.TrimSpace(f.Name)
	if name == "" {
		return model.Action{}, invalid("name", "name is required")
	}

	typeStr := strings.ToUpper(strings.TrimSpace(f.Type))
	if typeStr == "" {
		typeStr = defaults.Type
	}
	actionType, err := model.ParseActionType(typeStr)
	if err != nil {
		return model.Action{}, invalid("type", err.Error())
	}

	unit := points.DefaultUnit(actionType)
	if actionType != model.ActionTypeBinary {
		if u := strings.ToUpper(strings.TrimSpace(f.Unit)); u != "" {
			unit, err = model.ParseUnitType(u)
			if err != nil {
				return model.Action{}, invalid("unit", err.Error())
			}
		}
	}
	if !points.IsValidUnit(actionType, unit) {
		return model.Action{}, invalid("unit", "unit "+string(unit)+" is not valid for "+string(actionType))
	}

	pointsStr := strings.TrimSpace(f.PointsPerUnit)
	if pointsStr == "" {
		pointsStr = defaults.PointsPerUnit
	}
	rate, err := strconv.ParseFloat(pointsStr, 64)
	if err != nil || rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return model.Action{}, invalid("points_per_unit", "invalid points value")
	}

	catStr := strings.ToUpper(strings.TrimSpace(f.Category))
	if catStr == "" {
		catStr = defaults.Category
	}
	category, err := model.ParseActionCategory(catStr)
	if err != nil {
		return model.Action{}, invalid("category", err.Error())
	}

	active := true
	if f.Active != nil {
		active = *f.Active
	}

	return model.Action{
		ID:            f.ID,
		Name:          name,
		Type:          actionType,
		Unit:          unit,
		PointsPerUnit: rate,
		Category:      category,
		Active:        active,
	}, nil
}
