package model

import (
	"fmt"
	"time"
)

type ActionType string

const (
	ActionTypeDistance ActionType = "DISTANCE"
	ActionTypeTime     ActionType = "TIME"
	ActionTypeCount    ActionType = "COUNT"
	ActionTypeBinary   ActionType = "BINARY"
)

var actionTypes = []ActionType{ActionTypeDistance, ActionTypeTime, ActionTypeCount, ActionTypeBinary}

// ActionTypes returns every action type in display order.
func ActionTypes() []ActionType {
	out := make([]ActionType, len(actionTypes))
	copy(out, actionTypes)
	return out
}

func ParseActionType(s string) (ActionType, error) {
	for _, t := range actionTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown action type %q", s)
}

type UnitType string

const (
	UnitNone       UnitType = "NONE"
	UnitKM         UnitType = "KM"
	UnitMeter      UnitType = "METER"
	UnitMinute     UnitType = "MINUTE"
	UnitHour       UnitType = "HOUR"
	UnitRepetition UnitType = "REPETITION"
)

var unitTypes = []UnitType{UnitNone, UnitKM, UnitMeter, UnitMinute, UnitHour, UnitRepetition}

func ParseUnitType(s string) (UnitType, error) {
	for _, u := range unitTypes {
		if string(u) == s {
			return u, nil
		}
	}
	return "", fmt.Errorf("unknown unit %q", s)
}

type ActionCategory string

const (
	CategoryFitness      ActionCategory = "FITNESS"
	CategoryProductivity ActionCategory = "PRODUCTIVITY"
	CategoryHealth       ActionCategory = "HEALTH"
	CategoryEducation    ActionCategory = "EDUCATION"
	CategoryOther        ActionCategory = "OTHER"
)

var categories = []ActionCategory{CategoryFitness, CategoryProductivity, CategoryHealth, CategoryEducation, CategoryOther}

func ParseActionCategory(s string) (ActionCategory, error) {
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Action is a user-defined trackable activity with a unit and a point rate.
type Action struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Type          ActionType     `json:"type"`
	Unit          UnitType       `json:"unit"`
	PointsPerUnit float64        `json:"points_per_unit"`
	Category      ActionCategory `json:"category"`
	Active        bool           `json:"active"`
	CreatedAt     time.Time      `json:"created_at"`
}
