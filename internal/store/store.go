package store

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"energy_dashboard/internal/energy"
	"energy_dashboard/internal/model"
)

var ErrInvalidValue = errors.New("value is not a finite number")

// Store holds the simulation session in memory: component values, the
// user-edited flags and the control inputs. All mutations are atomic.
type Store struct {
	mu       sync.RWMutex
	flows    model.Flows
	controls model.Controls
	rnd      energy.Rand
}

// New creates a store seeded with initial flows and controls. Home and grid
// are derived from the initial components.
func New(initial model.Flows, controls model.Controls, rnd energy.Rand) *Store {
	controls.TargetGridKW = model.ClampTargetGrid(controls.TargetGridKW)
	return &Store{
		flows:    energy.Aggregate(initial),
		controls: controls,
		rnd:      rnd,
	}
}

// Flows returns a copy of the current component values.
func (s *Store) Flows() model.Flows {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flows
}

// Controls returns a copy of the current control inputs.
func (s *Store) Controls() model.Controls {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controls
}

// Snapshot returns flows and controls read under the same lock.
func (s *Store) Snapshot() (model.Flows, model.Controls) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flows, s.controls
}

// Tick applies one simulation step using the controls current at call time.
func (s *Store) Tick(nom energy.Nominal) model.Flows {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows = energy.Tick(s.flows, s.controls, s.rnd, nom)
	return s.flows
}

// SetComponentValue pins a component to a user value rounded to 2 decimals.
// Consumers are stored as -|raw|, solar as given and battery power as raw kW
// converted to W.
func (s *Store) SetComponentValue(c model.Component, raw float64) (model.Flows, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return model.Flows{}, fmt.Errorf("%w: %v", ErrInvalidValue, raw)
	}
	if !c.Editable() {
		if _, ok := model.ComponentCatalog[c]; !ok {
			return model.Flows{}, fmt.Errorf("%w: %q", model.ErrUnknownComponent, c)
		}
		return model.Flows{}, fmt.Errorf("%w: %q", model.ErrNotEditable, c)
	}

	v := energy.Round2(raw)
	if c.Consumer() {
		v = -math.Abs(v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pin(c, v)
}

// Nudge shifts a component's magnitude by deltaKW, floored at zero, keeping
// its sign convention, and pins it. Used by the inline +/- controls.
func (s *Store) Nudge(c model.Component, deltaKW float64) (model.Flows, error) {
	if math.IsNaN(deltaKW) || math.IsInf(deltaKW, 0) {
		return model.Flows{}, fmt.Errorf("%w: %v", ErrInvalidValue, deltaKW)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.flows.Value(c)
	if err != nil {
		return model.Flows{}, err
	}
	mag := math.Max(0, energy.Round2(math.Abs(cur)+deltaKW))
	if c.Consumer() {
		mag = -mag
	}
	return s.pin(c, mag)
}

// pin stores v for c, marks c edited and refreshes the aggregates.
// Must be called with mu held.
func (s *Store) pin(c model.Component, v float64) (model.Flows, error) {
	next, err := s.flows.With(c, v)
	if err != nil {
		return model.Flows{}, err
	}
	s.flows = energy.Aggregate(next)
	s.controls.Edited = s.controls.Edited.Mark(c)
	return s.flows, nil
}

// SetWeatherMode changes the weather and, unless solar is pinned, resamples
// solar from the new band immediately.
func (s *Store) SetWeatherMode(mode model.WeatherMode) (model.Flows, error) {
	if _, err := model.ParseWeatherMode(string(mode)); err != nil {
		return model.Flows{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.Weather = mode
	if !s.controls.Edited.Solar {
		s.flows.Solar = energy.SolarSample(mode, s.rnd)
		s.flows = energy.Aggregate(s.flows)
	}
	return s.flows, nil
}

// SetTargetGrid stores the auto-mode target, clamped to the slider range.
func (s *Store) SetTargetGrid(kw float64) (float64, error) {
	if math.IsNaN(kw) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidValue, kw)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.TargetGridKW = model.ClampTargetGrid(kw)
	return s.controls.TargetGridKW, nil
}

// ToggleAutoMode flips between automatic and manual car charging. The car
// edited flag is left as is.
func (s *Store) ToggleAutoMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls.AutoMode = !s.controls.AutoMode
	return s.controls.AutoMode
}
