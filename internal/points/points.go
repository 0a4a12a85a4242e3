// Package points converts a logged quantity into the points it earns.
package points

import (
	"math"

	"github.com/dukerupert/majo/internal/model"
)

var validUnits = map[model.ActionType][]model.UnitType{
	model.ActionTypeTime:     {model.UnitHour, model.UnitMinute},
	model.ActionTypeDistance: {model.UnitKM, model.UnitMeter},
	model.ActionTypeCount:    {model.UnitRepetition},
	model.ActionTypeBinary:   {},
}

// Calculate returns the points earned by logging value for the action.
// Binary actions award the flat rate when performed at all; every other
// type multiplies value by the rate. Negative, NaN and infinite values
// earn nothing, and so does a product that is not finite.
func Calculate(action model.Action, value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0
	}
	if action.Type == model.ActionTypeBinary {
		return action.PointsPerUnit
	}
	p := value * action.PointsPerUnit
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return p
}

// ValidUnits returns the units an action of type t may be measured in.
// Binary actions have none.
func ValidUnits(t model.ActionType) []model.UnitType {
	units := validUnits[t]
	out := make([]model.UnitType, len(units))
	copy(out, units)
	return out
}

// IsValidUnit reports whether unit fits action type t. Binary actions only
// accept UnitNone.
func IsValidUnit(t model.ActionType, unit model.UnitType) bool {
	units, ok := validUnits[t]
	if !ok {
		return false
	}
	if len(units) == 0 {
		return unit == model.UnitNone
	}
	for _, u := range units {
		if u == unit {
			return true
		}
	}
	return false
}

// DefaultUnit returns the first valid unit for t, or UnitNone.
func DefaultUnit(t model.ActionType) model.UnitType {
	if units := validUnits[t]; len(units) > 0 {
		return units[0]
	}
	return model.UnitNone
}
