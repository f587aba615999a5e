package energy

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"energy_dashboard/internal/model"
)

// fixedRand returns the same draw every time.
type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(int) int     { return r.n }

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func startFlows() model.Flows {
	return Aggregate(model.Flows{
		Solar:     9.04,
		Car:       -11.01,
		HeatPump:  -3,
		Heating:   -2,
		Fridge:    -0.42,
		Appliance: -1,
		Battery:   model.Battery{PowerW: 5000, Percentage: 23},
	})
}

func TestSolarSample_Bands(t *testing.T) {
	tests := []struct {
		mode   model.WeatherMode
		lo, hi float64
	}{
		{model.WeatherSunny, 9.0, 11.0},
		{model.WeatherCloudy, 4.0, 6.0},
		{model.WeatherRainy, 1.0, 2.5},
	}

	r := seeded(1)
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			for i := 0; i < 500; i++ {
				v := SolarSample(tt.mode, r)
				assert.GreaterOrEqual(t, v, tt.lo)
				assert.Less(t, v, tt.hi)
			}
		})
	}
}

func TestSolarSample_UpperEdgeStaysOpen(t *testing.T) {
	v := SolarSample(model.WeatherRainy, fixedRand{f: 0.99999})
	assert.Less(t, v, 2.5)
	assert.InDelta(t, 2.49, v, 1e-9)
}

func TestCarAuto(t *testing.T) {
	// Importing more than the target: back off one step.
	assert.InDelta(t, -21.01, CarAuto(-22.01, -20, -15, 1), 1e-9)

	// At or above target: hold.
	assert.InDelta(t, -22.01, CarAuto(-22.01, -15, -15, 1), 1e-9)
	assert.InDelta(t, -22.01, CarAuto(-22.01, 3, -15, 1), 1e-9)

	// Never past zero.
	assert.Equal(t, 0.0, CarAuto(-0.4, -20, -15, 1))
	assert.Equal(t, 0.0, CarAuto(0, -20, -15, 1))
}

func TestCarManual(t *testing.T) {
	// U(-0.1, 0.2) with draw 0 is -0.1.
	assert.InDelta(t, -5.1, CarManual(-5, fixedRand{f: 0}), 1e-9)
	// draw 0.5 is +0.05.
	assert.InDelta(t, -4.95, CarManual(-5, fixedRand{f: 0.5}), 1e-9)
	// Idle car holds.
	assert.Equal(t, -0.05, CarManual(-0.05, fixedRand{f: 0.9}))
}

func TestFridgeWalk(t *testing.T) {
	assert.InDelta(t, -0.44, FridgeWalk(-0.42, fixedRand{f: 0}), 1e-9)
	assert.InDelta(t, -0.37, FridgeWalk(-0.42, fixedRand{f: 0.999999}), 1e-9)
}

func TestApplianceSample(t *testing.T) {
	r := seeded(7)
	for i := 0; i < 500; i++ {
		v := ApplianceSample(r)
		assert.GreaterOrEqual(t, v, -5.0)
		assert.LessOrEqual(t, v, -2.0)
	}
}

func TestPercentageWalk(t *testing.T) {
	assert.Equal(t, 22, PercentageWalk(23, fixedRand{n: 0}))
	assert.Equal(t, 23, PercentageWalk(23, fixedRand{n: 1}))
	assert.Equal(t, 24, PercentageWalk(23, fixedRand{n: 2}))
	assert.Equal(t, 0, PercentageWalk(0, fixedRand{n: 0}))
	assert.Equal(t, 100, PercentageWalk(100, fixedRand{n: 2}))
}

func TestTick_Invariants(t *testing.T) {
	for _, auto := range []bool{true, false} {
		r := seeded(42)
		f := startFlows()
		ctl := model.Controls{Weather: model.WeatherCloudy, AutoMode: auto, TargetGridKW: -15}

		for i := 0; i < 2000; i++ {
			f = Tick(f, ctl, r, DefaultNominal())

			assert.InDelta(t, Round2(f.Car+f.HeatPump+f.Heating+f.Fridge+f.Appliance), f.Home, 0.011)
			assert.InDelta(t, Round2(f.Solar+f.Battery.PowerW/1000+f.Consumption()), f.Grid, 0.011)
			assert.GreaterOrEqual(t, f.Battery.Percentage, 0)
			assert.LessOrEqual(t, f.Battery.Percentage, 100)
			if auto {
				assert.LessOrEqual(t, f.Car, 0.0)
			}
		}
	}
}

func TestTick_AutoModeScenario(t *testing.T) {
	prev := startFlows()
	prev.Car = -22.01
	prev.Grid = -20
	ctl := model.Controls{Weather: model.WeatherSunny, AutoMode: true, TargetGridKW: -15}

	next := Tick(prev, ctl, seeded(3), DefaultNominal())
	assert.InDelta(t, -21.01, next.Car, 1e-9)
}

func TestTick_AutoModeOverridesCarEdit(t *testing.T) {
	prev := startFlows()
	prev.Car = -8
	prev.Grid = -20
	ctl := model.Controls{
		AutoMode:     true,
		TargetGridKW: -15,
		Edited:       model.EditedSet{Car: true},
	}

	next := Tick(prev, ctl, seeded(3), DefaultNominal())
	assert.InDelta(t, -7.0, next.Car, 1e-9)
}

func TestTick_EditedCarFrozenInManualMode(t *testing.T) {
	prev := startFlows()
	prev.Car = -8.5
	ctl := model.Controls{Weather: model.WeatherSunny, Edited: model.EditedSet{Car: true}}

	r := seeded(5)
	for i := 0; i < 50; i++ {
		prev = Tick(prev, ctl, r, DefaultNominal())
		assert.Equal(t, -8.5, prev.Car)
	}
}

func TestTick_EditedHeatPumpStaysFrozen(t *testing.T) {
	f := startFlows()
	f.HeatPump = -4
	f.Heating = -7
	ctl := model.Controls{Weather: model.WeatherSunny, Edited: model.EditedSet{HeatPump: true}}

	r := seeded(9)
	for i := 0; i < 100; i++ {
		f = Tick(f, ctl, r, DefaultNominal())
		assert.Equal(t, -4.0, f.HeatPump)
		assert.Equal(t, -2.0, f.Heating)
	}
}

func TestTick_BatteryPinnedUnlessEdited(t *testing.T) {
	f := startFlows()
	f.Battery.PowerW = 1200

	next := Tick(f, model.Controls{Weather: model.WeatherSunny}, seeded(11), DefaultNominal())
	assert.Equal(t, 5000.0, next.Battery.PowerW)

	edited := model.Controls{Weather: model.WeatherSunny, Edited: model.EditedSet{Battery: true}}
	next = Tick(f, edited, seeded(11), DefaultNominal())
	assert.Equal(t, 1200.0, next.Battery.PowerW)
	assert.InDelta(t, 23, next.Battery.Percentage, 1)
}

func TestTick_EditedSolarHeld(t *testing.T) {
	f := startFlows()
	f.Solar = 0.5
	ctl := model.Controls{Weather: model.WeatherSunny, Edited: model.EditedSet{Solar: true}}

	next := Tick(f, ctl, seeded(13), DefaultNominal())
	assert.Equal(t, 0.5, next.Solar)
}

func TestTick_DoesNotMutateInput(t *testing.T) {
	f := startFlows()
	before := f
	Tick(f, model.Controls{Weather: model.WeatherRainy}, seeded(17), DefaultNominal())
	assert.Equal(t, before, f)
}

func TestAggregate(t *testing.T) {
	f := Aggregate(model.Flows{
		Solar:     9.04,
		Car:       -11.01,
		HeatPump:  -3,
		Heating:   -2,
		Fridge:    -0.42,
		Appliance: -1,
		Battery:   model.Battery{PowerW: 5000},
	})
	assert.InDelta(t, -17.43, f.Home, 1e-9)
	assert.InDelta(t, -3.39, f.Grid, 1e-9)
}
