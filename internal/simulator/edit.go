package simulator

import (
	"errors"
	"fmt"
	"math"

	"energy_dashboard/internal/energy"
	"energy_dashboard/internal/model"
)

// Step sizes of the inline +/- controls.
const (
	CarNudgeKW         = 1.0
	TemperatureNudgeKW = 0.5
)

// EditSteps are the increments offered by the edit surface.
var EditSteps = []float64{-1, -0.1, 0.1, 1}

var (
	ErrEditInProgress   = errors.New("an edit is already open")
	ErrNoEdit           = errors.New("no edit is open")
	ErrInvalidStep      = errors.New("invalid edit step")
	ErrInvalidDirection = errors.New("direction must be +1 or -1")
)

// EditState describes the edit surface. ValueKW is the magnitude shown to
// the user; the sign convention is applied on save.
type EditState struct {
	Active    bool            `json:"active"`
	Component model.Component `json:"component,omitempty"`
	ValueKW   float64         `json:"value_kw"`
}

// BeginEdit opens the edit surface for a component, pre-populated with its
// current magnitude (battery power in kW). The tick loop is paused until the
// edit is saved or cancelled.
func (e *Engine) BeginEdit(c model.Component) (EditState, error) {
	if !c.Editable() {
		if _, ok := model.ComponentCatalog[c]; !ok {
			return EditState{}, fmt.Errorf("%w: %q", model.ErrUnknownComponent, c)
		}
		return EditState{}, fmt.Errorf("%w: %q", model.ErrNotEditable, c)
	}

	e.mu.Lock()
	if e.edit != nil {
		e.mu.Unlock()
		return EditState{}, ErrEditInProgress
	}
	// ticks run under mu, so the value read here is the one the edit freezes
	cur, err := e.store.Flows().Value(c)
	if err != nil {
		e.mu.Unlock()
		return EditState{}, err
	}
	if c != model.ComponentBattery {
		cur = math.Abs(cur)
	}
	e.resumeAfterEdit = e.stopLocked()
	edit := EditState{Active: true, Component: c, ValueKW: energy.Round2(cur)}
	e.edit = &edit
	e.mu.Unlock()

	e.log.Info("edit opened", "target", c, "value_kw", edit.ValueKW)
	e.callback.OnEdit(edit)
	e.broadcastState()
	return edit, nil
}

// AdjustEdit moves the draft value by one of EditSteps, flooring at zero.
func (e *Engine) AdjustEdit(step float64) (EditState, error) {
	if !validStep(step) {
		return EditState{}, fmt.Errorf("%w: %v", ErrInvalidStep, step)
	}

	e.mu.Lock()
	if e.edit == nil {
		e.mu.Unlock()
		return EditState{}, ErrNoEdit
	}
	e.edit.ValueKW = math.Max(0, energy.Round2(e.edit.ValueKW+step))
	edit := *e.edit
	e.mu.Unlock()

	e.callback.OnEdit(edit)
	return edit, nil
}

// SaveEdit commits the draft through the store and closes the edit surface.
func (e *Engine) SaveEdit() error {
	e.mu.Lock()
	if e.edit == nil {
		e.mu.Unlock()
		return ErrNoEdit
	}
	edit := *e.edit
	e.mu.Unlock()

	if _, err := e.store.SetComponentValue(edit.Component, edit.ValueKW); err != nil {
		return err
	}
	e.log.Info("edit saved", "target", edit.Component, "value_kw", edit.ValueKW)
	e.closeEdit()
	e.broadcastChange()
	return nil
}

// CancelEdit discards the draft and closes the edit surface.
func (e *Engine) CancelEdit() error {
	e.mu.Lock()
	open := e.edit != nil
	e.mu.Unlock()
	if !open {
		return ErrNoEdit
	}

	e.log.Info("edit cancelled")
	e.closeEdit()
	e.broadcastState()
	return nil
}

// Edit returns the current edit surface state.
func (e *Engine) Edit() EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.edit == nil {
		return EditState{}
	}
	return *e.edit
}

// closeEdit clears the draft and resumes the loop if it was running.
func (e *Engine) closeEdit() {
	e.mu.Lock()
	e.edit = nil
	if e.resumeAfterEdit {
		e.startLocked()
	}
	e.resumeAfterEdit = false
	e.mu.Unlock()

	e.callback.OnEdit(EditState{})
}

// NudgeCar changes car charging power by one step. Direction +1 charges harder.
func (e *Engine) NudgeCar(direction int) error {
	return e.nudge(model.ComponentCar, direction, CarNudgeKW)
}

// NudgeTemperature changes heating power by half a kW. Direction +1 heats more.
func (e *Engine) NudgeTemperature(direction int) error {
	return e.nudge(model.ComponentHeating, direction, TemperatureNudgeKW)
}

func (e *Engine) nudge(c model.Component, direction int, step float64) error {
	if direction != 1 && direction != -1 {
		return fmt.Errorf("%w: %d", ErrInvalidDirection, direction)
	}
	if _, err := e.store.Nudge(c, float64(direction)*step); err != nil {
		return err
	}
	e.broadcastChange()
	return nil
}

func validStep(step float64) bool {
	for _, s := range EditSteps {
		if math.Abs(s-step) < 1e-9 {
			return true
		}
	}
	return false
}
