package thermal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name    string
		powerKW float64
		want    float64
	}{
		{"no heating", 0, 15.00},
		{"negative input", -3, 15.00},
		{"midpoint below first breakpoint", 0.75, 16.05},
		{"first breakpoint", 1.5, 17.10},
		{"between 1.5 and 2", 1.75, 17.55},
		{"exact 2", 2, 18.00},
		{"between 2 and 3", 2.5, 18.90},
		{"default heating load", 5, 23.40},
		{"exact 6", 6, 25.20},
		{"between 11 and 12", 11.5, 35.10},
		{"last breakpoint", 12, 36.00},
		{"clamp above max", 20, 36.00},
		{"positive infinity", math.Inf(1), 36.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Estimate(tt.powerKW)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEstimate_Rounding(t *testing.T) {
	// 0.1 kW -> 15 + 0.1/1.5*2.1 = 15.14
	got, err := Estimate(0.1)
	require.NoError(t, err)
	assert.InDelta(t, 15.14, got, 1e-9)
}

func TestEstimate_Monotonic(t *testing.T) {
	prev := -1.0
	for kw := 0.0; kw <= 13; kw += 0.05 {
		got, err := Estimate(kw)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev, "kw=%.2f", kw)
		prev = got
	}
}

func TestEstimate_NaN(t *testing.T) {
	_, err := Estimate(math.NaN())
	assert.ErrorIs(t, err, ErrInvalidPower)
}

func TestTable_Empty(t *testing.T) {
	_, err := Table{Origin: Point{0, 15}}.Estimate(3)
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestTable_SinglePoint(t *testing.T) {
	tbl := Table{Origin: Point{0, 10}, Points: []Point{{4, 20}}}

	got, err := tbl.Estimate(1)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, got, 1e-9)

	got, err = tbl.Estimate(9)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, got, 1e-9)
}
