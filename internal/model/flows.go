package model

import (
	"errors"
	"fmt"
	"math"
)

// Battery is the compound battery reading. PowerW is in watts.
type Battery struct {
	PowerW     float64 `json:"power"`
	Percentage int     `json:"percentage"`
}

// Flows holds the value of every component at one instant, in kW unless noted.
// Consumption components are negative.
type Flows struct {
	Solar     float64 `json:"solar"`
	Car       float64 `json:"car"`
	HeatPump  float64 `json:"heatPump"`
	Heating   float64 `json:"heating"`
	Fridge    float64 `json:"fridge"`
	Appliance float64 `json:"appliance"`
	Battery   Battery `json:"battery"`
	Grid      float64 `json:"grid"`
	Home      float64 `json:"home"`
}

// Consumption returns the signed sum of the five consumption components.
func (f Flows) Consumption() float64 {
	return f.Car + f.HeatPump + f.Heating + f.Fridge + f.Appliance
}

// Green returns solar plus battery power in kW.
func (f Flows) Green() float64 {
	return f.Solar + f.Battery.PowerW/1000
}

// HeatingKW returns the total heating power drawn by heat pump and heating.
func (f Flows) HeatingKW() float64 {
	return math.Abs(f.HeatPump) + math.Abs(f.Heating)
}

// Value returns the component's value in kW. Battery is converted from W.
func (f Flows) Value(c Component) (float64, error) {
	switch c {
	case ComponentSolar:
		return f.Solar, nil
	case ComponentCar:
		return f.Car, nil
	case ComponentHeatPump:
		return f.HeatPump, nil
	case ComponentHeating:
		return f.Heating, nil
	case ComponentFridge:
		return f.Fridge, nil
	case ComponentAppliance:
		return f.Appliance, nil
	case ComponentBattery:
		return f.Battery.PowerW / 1000, nil
	case ComponentGrid:
		return f.Grid, nil
	case ComponentHome:
		return f.Home, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownComponent, c)
}

// With returns a copy of f with the component set to v (kW, already signed).
// Battery power is given in kW and stored in W.
func (f Flows) With(c Component, v float64) (Flows, error) {
	switch c {
	case ComponentSolar:
		f.Solar = v
	case ComponentCar:
		f.Car = v
	case ComponentHeatPump:
		f.HeatPump = v
	case ComponentHeating:
		f.Heating = v
	case ComponentFridge:
		f.Fridge = v
	case ComponentAppliance:
		f.Appliance = v
	case ComponentBattery:
		f.Battery.PowerW = math.Round(v * 1000)
	case ComponentGrid, ComponentHome:
		return f, fmt.Errorf("%w: %q", ErrNotEditable, c)
	default:
		return f, fmt.Errorf("%w: %q", ErrUnknownComponent, c)
	}
	return f, nil
}

// EditedSet marks components pinned by a user edit.
type EditedSet struct {
	Solar     bool `json:"solar"`
	Car       bool `json:"car"`
	HeatPump  bool `json:"heatPump"`
	Heating   bool `json:"heating"`
	Fridge    bool `json:"fridge"`
	Appliance bool `json:"appliance"`
	Battery   bool `json:"battery"`
}

// Has reports whether c is pinned.
func (e EditedSet) Has(c Component) bool {
	switch c {
	case ComponentSolar:
		return e.Solar
	case ComponentCar:
		return e.Car
	case ComponentHeatPump:
		return e.HeatPump
	case ComponentHeating:
		return e.Heating
	case ComponentFridge:
		return e.Fridge
	case ComponentAppliance:
		return e.Appliance
	case ComponentBattery:
		return e.Battery
	}
	return false
}

// Mark returns a copy with c pinned. Aggregates are ignored.
func (e EditedSet) Mark(c Component) EditedSet {
	switch c {
	case ComponentSolar:
		e.Solar = true
	case ComponentCar:
		e.Car = true
	case ComponentHeatPump:
		e.HeatPump = true
	case ComponentHeating:
		e.Heating = true
	case ComponentFridge:
		e.Fridge = true
	case ComponentAppliance:
		e.Appliance = true
	case ComponentBattery:
		e.Battery = true
	}
	return e
}

// WeatherMode selects the band solar output is drawn from.
type WeatherMode string

const (
	WeatherSunny  WeatherMode = "sunny"
	WeatherCloudy WeatherMode = "cloudy"
	WeatherRainy  WeatherMode = "rainy"
)

var ErrUnknownWeather = errors.New("unknown weather mode")

// ParseWeatherMode validates a weather mode name.
func ParseWeatherMode(s string) (WeatherMode, error) {
	switch m := WeatherMode(s); m {
	case WeatherSunny, WeatherCloudy, WeatherRainy:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWeather, s)
}

// Target grid bounds in kW.
const (
	MinTargetGridKW = -15.0
	MaxTargetGridKW = 5.0
)

// Controls are the user-driven inputs of the tick.
type Controls struct {
	Weather      WeatherMode `json:"weather"`
	AutoMode     bool        `json:"auto_mode"`
	TargetGridKW float64     `json:"target_grid_kw"`
	Edited       EditedSet   `json:"edited"`
}

// ClampTargetGrid limits v to [MinTargetGridKW, MaxTargetGridKW].
func ClampTargetGrid(v float64) float64 {
	return math.Max(MinTargetGridKW, math.Min(MaxTargetGridKW, v))
}

// DefaultFlows returns the component values a new session starts from.
// Home and grid are left zero; they are derived when the session starts.
func DefaultFlows() Flows {
	return Flows{
		Solar:     9.04,
		Car:       -11.01,
		HeatPump:  -3,
		Heating:   -2,
		Fridge:    -0.42,
		Appliance: -1,
		Battery:   Battery{PowerW: 5000, Percentage: 23},
	}
}

// DefaultControls returns the control inputs of a new session.
func DefaultControls() Controls {
	return Controls{
		Weather:      WeatherSunny,
		AutoMode:     true,
		TargetGridKW: MinTargetGridKW,
	}
}
