package points

import (
	"math"
	"testing"

	"github.com/dukerupert/majo/internal/model"
)

func action(t model.ActionType, rate float64) model.Action {
	return model.Action{ID: 1, Name: "test", Type: t, PointsPerUnit: rate}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name  string
		typ   model.ActionType
		rate  float64
		value float64
		want  float64
	}{
		{"distance multiplies", model.ActionTypeDistance, 10, 5, 50},
		{"time multiplies", model.ActionTypeTime, 2, 1.5, 3},
		{"count multiplies", model.ActionTypeCount, 0.5, 20, 10},
		{"count zero value", model.ActionTypeCount, 3, 0, 0},
		{"count negative value", model.ActionTypeCount, 3, -4, 0},
		{"zero rate", model.ActionTypeDistance, 0, 12, 0},
		{"binary performed", model.ActionTypeBinary, 25, 1, 25},
		{"binary ignores quantity", model.ActionTypeBinary, 25, 7, 25},
		{"binary fractional", model.ActionTypeBinary, 25, 0.01, 25},
		{"binary not performed", model.ActionTypeBinary, 25, 0, 0},
		{"binary negative", model.ActionTypeBinary, 25, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(action(tt.typ, tt.rate), tt.value)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Calculate(%s, rate=%v, value=%v) = %v, want %v", tt.typ, tt.rate, tt.value, got, tt.want)
			}
		})
	}
}

func TestCalculateNaN(t *testing.T) {
	for _, typ := range model.ActionTypes() {
		if got := Calculate(action(typ, 10), math.NaN()); got != 0 {
			t.Errorf("Calculate(%s, NaN) = %v, want 0", typ, got)
		}
	}
}

func TestCalculateInfinity(t *testing.T) {
	tests := []struct {
		name  string
		rate  float64
		value float64
	}{
		{"infinite value zero rate", 0, math.Inf(1)},
		{"infinite value", 5, math.Inf(1)},
		{"negative infinity", 5, math.Inf(-1)},
		{"overflowing product", math.MaxFloat64, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, typ := range []model.ActionType{model.ActionTypeDistance, model.ActionTypeTime, model.ActionTypeCount} {
				got := Calculate(action(typ, tt.rate), tt.value)
				if got != 0 {
					t.Errorf("Calculate(%s, rate=%v, value=%v) = %v, want 0", typ, tt.rate, tt.value, got)
				}
			}
		})
	}
}

func TestCalculateMatchesRateForNonBinary(t *testing.T) {
	values := []float64{0, 0.25, 1, 3.5, 42, 1000}
	rates := []float64{0, 0.1, 1, 7.5}
	for _, typ := range []model.ActionType{model.ActionTypeDistance, model.ActionTypeTime, model.ActionTypeCount} {
		for _, rate := range rates {
			for _, v := range values {
				if got, want := Calculate(action(typ, rate), v), v*rate; got != want {
					t.Errorf("Calculate(%s, rate=%v, value=%v) = %v, want %v", typ, rate, v, got, want)
				}
			}
		}
	}
}

func TestValidUnits(t *testing.T) {
	tests := []struct {
		typ  model.ActionType
		want []model.UnitType
	}{
		{model.ActionTypeTime, []model.UnitType{model.UnitHour, model.UnitMinute}},
		{model.ActionTypeDistance, []model.UnitType{model.UnitKM, model.UnitMeter}},
		{model.ActionTypeCount, []model.UnitType{model.UnitRepetition}},
		{model.ActionTypeBinary, []model.UnitType{}},
	}

	for _, tt := range tests {
		got := ValidUnits(tt.typ)
		if len(got) != len(tt.want) {
			t.Fatalf("ValidUnits(%s) = %v, want %v", tt.typ, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ValidUnits(%s)[%d] = %s, want %s", tt.typ, i, got[i], tt.want[i])
			}
		}
	}
}

func TestIsValidUnit(t *testing.T) {
	if !IsValidUnit(model.ActionTypeDistance, model.UnitKM) {
		t.Error("KM should be valid for DISTANCE")
	}
	if IsValidUnit(model.ActionTypeDistance, model.UnitHour) {
		t.Error("HOUR should not be valid for DISTANCE")
	}
	if !IsValidUnit(model.ActionTypeBinary, model.UnitNone) {
		t.Error("NONE should be valid for BINARY")
	}
	if IsValidUnit(model.ActionTypeBinary, model.UnitRepetition) {
		t.Error("REPETITION should not be valid for BINARY")
	}
	if IsValidUnit(model.ActionType("BOGUS"), model.UnitNone) {
		t.Error("unknown type should have no valid units")
	}
}

func TestDefaultUnit(t *testing.T) {
	if got := DefaultUnit(model.ActionTypeCount); got != model.UnitRepetition {
		t.Errorf("DefaultUnit(COUNT) = %s, want REPETITION", got)
	}
	if got := DefaultUnit(model.ActionTypeBinary); got != model.UnitNone {
		t.Errorf("DefaultUnit(BINARY) = %s, want NONE", got)
	}
}
