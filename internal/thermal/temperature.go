// Package thermal estimates indoor temperature from heating power.
package thermal

import (
	"errors"
	"math"
	"sort"
)

var (
	ErrEmptyTable   = errors.New("temperature table is empty")
	ErrInvalidPower = errors.New("heating power is not a number")
)

// Point is one breakpoint of the estimator: heating power in kW and the
// resulting indoor temperature in °C.
type Point struct {
	PowerKW float64 `json:"power_kw"`
	TempC   float64 `json:"temp_c"`
}

// Table is a piecewise-linear curve. Origin is the temperature with no
// heating at all and anchors interpolation below the first breakpoint.
type Table struct {
	Origin Point
	Points []Point // ascending by PowerKW
}

// DefaultTable is the curve used by the dashboard: 15 °C unheated, rising
// 1.8 °C per kW from 2 kW up to 36 °C at 12 kW.
var DefaultTable = Table{
	Origin: Point{PowerKW: 0, TempC: 15.0},
	Points: []Point{
		{1.5, 17.10},
		{2, 18.00},
		{3, 19.80},
		{4, 21.60},
		{5, 23.40},
		{6, 25.20},
		{7, 27.00},
		{8, 28.80},
		{9, 30.60},
		{10, 32.40},
		{11, 34.20},
		{12, 36.00},
	},
}

// Estimate returns the temperature for the given total heating power using
// DefaultTable.
func Estimate(powerKW float64) (float64, error) {
	return DefaultTable.Estimate(powerKW)
}

// Estimate interpolates the temperature for powerKW. Inputs at or below the
// origin return the origin temperature; inputs past the last breakpoint
// saturate at its temperature. The result is rounded to 2 decimals.
func (t Table) Estimate(powerKW float64) (float64, error) {
	if math.IsNaN(powerKW) {
		return 0, ErrInvalidPower
	}
	n := len(t.Points)
	if n == 0 {
		return 0, ErrEmptyTable
	}

	if powerKW <= t.Origin.PowerKW {
		return round2(t.Origin.TempC), nil
	}
	last := t.Points[n-1]
	if powerKW >= last.PowerKW {
		return round2(last.TempC), nil
	}

	// First breakpoint at or above the input.
	i := sort.Search(n, func(i int) bool {
		return t.Points[i].PowerKW >= powerKW
	})
	upper := t.Points[i]
	if upper.PowerKW == powerKW {
		return round2(upper.TempC), nil
	}
	lower := t.Origin
	if i > 0 {
		lower = t.Points[i-1]
	}

	frac := (powerKW - lower.PowerKW) / (upper.PowerKW - lower.PowerKW)
	return round2(lower.TempC + frac*(upper.TempC-lower.TempC)), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
