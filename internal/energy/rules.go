// Package energy holds the per-tick update rules of the flow simulation.
// Everything here is a pure function of its inputs and the random source.
package energy

import (
	"math"

	"energy_dashboard/internal/model"
)

// Rand is the random source used by the update rules. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Nominal holds the fixed values components reset to when not pinned.
type Nominal struct {
	HeatPumpKW    float64 `json:"heat_pump_kw"`
	HeatingKW     float64 `json:"heating_kw"`
	BatteryPowerW float64 `json:"battery_power_w"`
	CarStepKW     float64 `json:"car_step_kw"`
}

// DefaultNominal returns the constants of the current dashboard iteration.
// Earlier iterations used -5/-3 kW for heat pump and heating.
func DefaultNominal() Nominal {
	return Nominal{
		HeatPumpKW:    -3,
		HeatingKW:     -2,
		BatteryPowerW: 5000,
		CarStepKW:     1,
	}
}

// Band is a uniform range [Base, Base+Spread).
type Band struct {
	Base   float64
	Spread float64
}

// SolarBands maps each weather mode to its solar output band in kW.
var SolarBands = map[model.WeatherMode]Band{
	model.WeatherSunny:  {Base: 9, Spread: 2},
	model.WeatherCloudy: {Base: 4, Spread: 2},
	model.WeatherRainy:  {Base: 1, Spread: 1.5},
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Trunc2 truncates v to two decimal places, keeping draws inside half-open bands.
func Trunc2(v float64) float64 {
	return math.Trunc(v*100) / 100
}

// uniform draws from [lo, hi).
func uniform(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// SolarSample draws one solar value for the weather mode. Unknown modes fall
// back to the sunny band.
func SolarSample(mode model.WeatherMode, r Rand) float64 {
	b, ok := SolarBands[mode]
	if !ok {
		b = SolarBands[model.WeatherSunny]
	}
	return Trunc2(b.Base + uniform(r, 0, b.Spread))
}

// CarManual applies the manual-mode fluctuation: while charging harder than
// 0.1 kW the value drifts by U(-0.1, 0.2), otherwise it holds.
func CarManual(car float64, r Rand) float64 {
	if car < -0.1 {
		return Round2(car + uniform(r, -0.1, 0.2))
	}
	return car
}

// CarAuto is the target-grid controller. When the previous grid value is
// below target, charging is reduced by one step, never past zero. There is
// no deadband, so near the target the value overshoots by up to one step.
func CarAuto(car, prevGrid, targetGrid, step float64) float64 {
	if prevGrid < targetGrid {
		return Round2(math.Min(0, car+step))
	}
	return car
}

// FridgeWalk adds U(-0.02, 0.05) to the fridge value.
func FridgeWalk(fridge float64, r Rand) float64 {
	return Round2(fridge + uniform(r, -0.02, 0.05))
}

// ApplianceSample redraws the appliance load from [-5, -2] kW.
func ApplianceSample(r Rand) float64 {
	return Round2(-2 - uniform(r, 0, 3))
}

// PercentageWalk moves the battery percentage by -1, 0 or +1, clamped to [0, 100].
func PercentageWalk(pct int, r Rand) int {
	pct += r.IntN(3) - 1
	return min(100, max(0, pct))
}

// Aggregate recomputes home and grid from the component values.
func Aggregate(f model.Flows) model.Flows {
	f.Home = Round2(f.Consumption())
	f.Grid = Round2(f.Green() + f.Consumption())
	return f
}
