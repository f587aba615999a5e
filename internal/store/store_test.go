package store

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy_dashboard/internal/energy"
	"energy_dashboard/internal/model"
)

var initialFlows = model.Flows{
	Solar:     9.04,
	Car:       -11.01,
	HeatPump:  -3,
	Heating:   -2,
	Fridge:    -0.42,
	Appliance: -1,
	Battery:   model.Battery{PowerW: 5000, Percentage: 23},
}

func newStore() *Store {
	return New(initialFlows, model.Controls{
		Weather:      model.WeatherSunny,
		AutoMode:     true,
		TargetGridKW: -15,
	}, rand.New(rand.NewPCG(1, 0)))
}

func TestStore_NewDerivesAggregates(t *testing.T) {
	s := newStore()
	f := s.Flows()
	assert.InDelta(t, -17.43, f.Home, 1e-9)
	assert.InDelta(t, -3.39, f.Grid, 1e-9)
}

func TestStore_NewClampsTarget(t *testing.T) {
	s := New(initialFlows, model.Controls{TargetGridKW: -99}, rand.New(rand.NewPCG(1, 0)))
	assert.Equal(t, -15.0, s.Controls().TargetGridKW)
}

func TestStore_SetComponentValue(t *testing.T) {
	tests := []struct {
		name string
		c    model.Component
		raw  float64
		want float64 // kW as returned by Flows.Value
	}{
		{"consumer stored negative", model.ComponentHeatPump, 4, -4},
		{"consumer negative input", model.ComponentFridge, -0.3, -0.3},
		{"solar as given", model.ComponentSolar, 2.75, 2.75},
		{"battery kW to W", model.ComponentBattery, 3.2, 3.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore()
			f, err := s.SetComponentValue(tt.c, tt.raw)
			require.NoError(t, err)

			got, err := f.Value(tt.c)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.True(t, s.Controls().Edited.Has(tt.c))

			assert.InDelta(t, energy.Round2(f.Consumption()), f.Home, 1e-9)
		})
	}
}

func TestStore_SetComponentValue_RoundsToTwoDecimals(t *testing.T) {
	s := newStore()

	f, err := s.SetComponentValue(model.ComponentHeatPump, 4.5678)
	require.NoError(t, err)
	assert.Equal(t, -4.57, f.HeatPump)
	assert.Equal(t, -4.57, s.Tick(energy.DefaultNominal()).HeatPump)

	f, err = s.SetComponentValue(model.ComponentSolar, 3.14159)
	require.NoError(t, err)
	assert.Equal(t, 3.14, f.Solar)

	f, err = s.SetComponentValue(model.ComponentBattery, 1.23456)
	require.NoError(t, err)
	assert.Equal(t, 1230.0, f.Battery.PowerW)
	assert.Equal(t, 1230.0, s.Tick(energy.DefaultNominal()).Battery.PowerW)
}

func TestStore_SetComponentValue_BatteryKeepsPercentage(t *testing.T) {
	s := newStore()
	f, err := s.SetComponentValue(model.ComponentBattery, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, f.Battery.PowerW)
	assert.Equal(t, 23, f.Battery.Percentage)
}

func TestStore_SetComponentValue_Rejects(t *testing.T) {
	s := newStore()

	_, err := s.SetComponentValue(model.ComponentGrid, 1)
	assert.ErrorIs(t, err, model.ErrNotEditable)

	_, err = s.SetComponentValue(model.Component("kettle"), 1)
	assert.ErrorIs(t, err, model.ErrUnknownComponent)

	_, err = s.SetComponentValue(model.ComponentCar, math.NaN())
	assert.ErrorIs(t, err, ErrInvalidValue)

	assert.Equal(t, model.EditedSet{}, s.Controls().Edited)
}

func TestStore_HeatPumpEditFrozenAcrossTicks(t *testing.T) {
	s := newStore()
	_, err := s.SetComponentValue(model.ComponentHeatPump, 4)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		f := s.Tick(energy.DefaultNominal())
		assert.Equal(t, -4.0, f.HeatPump)
		assert.Equal(t, -2.0, f.Heating)
	}
}

func TestStore_SetWeatherMode_Resamples(t *testing.T) {
	s := newStore()

	f, err := s.SetWeatherMode(model.WeatherRainy)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f.Solar, 1.0)
	assert.Less(t, f.Solar, 2.5)
	assert.Equal(t, model.WeatherRainy, s.Controls().Weather)

	f = s.Tick(energy.DefaultNominal())
	assert.GreaterOrEqual(t, f.Solar, 1.0)
	assert.Less(t, f.Solar, 2.5)

	f, err = s.SetWeatherMode(model.WeatherSunny)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f.Solar, 9.0)
	assert.Less(t, f.Solar, 11.0)
}

func TestStore_SetWeatherMode_PinnedSolar(t *testing.T) {
	s := newStore()
	_, err := s.SetComponentValue(model.ComponentSolar, 0.5)
	require.NoError(t, err)

	f, err := s.SetWeatherMode(model.WeatherCloudy)
	require.NoError(t, err)
	assert.Equal(t, 0.5, f.Solar)
	assert.Equal(t, model.WeatherCloudy, s.Controls().Weather)
}

func TestStore_SetWeatherMode_Unknown(t *testing.T) {
	s := newStore()
	_, err := s.SetWeatherMode(model.WeatherMode("foggy"))
	assert.ErrorIs(t, err, model.ErrUnknownWeather)
	assert.Equal(t, model.WeatherSunny, s.Controls().Weather)
}

func TestStore_SetTargetGrid(t *testing.T) {
	s := newStore()

	v, err := s.SetTargetGrid(-2.5)
	require.NoError(t, err)
	assert.Equal(t, -2.5, v)

	v, err = s.SetTargetGrid(50)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, 5.0, s.Controls().TargetGridKW)

	_, err = s.SetTargetGrid(math.NaN())
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestStore_ToggleAutoMode(t *testing.T) {
	s := newStore()
	_, err := s.SetComponentValue(model.ComponentCar, 7)
	require.NoError(t, err)

	assert.False(t, s.ToggleAutoMode())
	assert.True(t, s.Controls().Edited.Car, "toggle keeps the car flag")
	assert.True(t, s.ToggleAutoMode())
}

func TestStore_Nudge(t *testing.T) {
	s := newStore()

	f, err := s.Nudge(model.ComponentCar, 1)
	require.NoError(t, err)
	assert.InDelta(t, -12.01, f.Car, 1e-9)
	assert.True(t, s.Controls().Edited.Car)

	f, err = s.Nudge(model.ComponentHeating, -0.5)
	require.NoError(t, err)
	assert.InDelta(t, -1.5, f.Heating, 1e-9)

	// Magnitude floors at zero.
	f, err = s.Nudge(model.ComponentHeating, -5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, math.Abs(f.Heating))

	_, err = s.Nudge(model.ComponentHome, 1)
	assert.ErrorIs(t, err, model.ErrNotEditable)
}

func TestStore_TickKeepsInvariants(t *testing.T) {
	s := newStore()
	for i := 0; i < 200; i++ {
		f := s.Tick(energy.DefaultNominal())
		assert.InDelta(t, energy.Round2(f.Consumption()), f.Home, 1e-9)
		assert.InDelta(t, energy.Round2(f.Green()+f.Consumption()), f.Grid, 1e-9)
		assert.LessOrEqual(t, f.Car, 0.0)
	}
}
