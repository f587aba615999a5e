package ws

import (
	"encoding/json"

	"energy_dashboard/internal/model"
	"energy_dashboard/internal/simulator"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants
const (
	// Client -> Server
	TypeSimStart         = "sim:start"
	TypeSimPause         = "sim:pause"
	TypeSimStep          = "sim:step"
	TypeWeatherSet       = "weather:set"
	TypeComponentSet     = "component:set"
	TypeModeToggle       = "mode:toggle"
	TypeGridSetTarget    = "grid:set_target"
	TypeEditBegin        = "edit:begin"
	TypeEditAdjust       = "edit:adjust"
	TypeEditSave         = "edit:save"
	TypeEditCancel       = "edit:cancel"
	TypeCarNudge         = "car:nudge"
	TypeTemperatureNudge = "temperature:nudge"

	// Server -> Client
	TypeSimState      = "sim:state"
	TypeFlowsUpdate   = "flows:update"
	TypeSummaryUpdate = "summary:update"
	TypeEditState     = "edit:state"
	TypeError         = "error"
)

// Client -> Server messages

type WeatherPayload struct {
	Mode string `json:"mode"`
}

type ComponentSetPayload struct {
	Component string  `json:"component"`
	Value     float64 `json:"value"`
}

type TargetGridPayload struct {
	Value float64 `json:"value"`
}

type EditBeginPayload struct {
	Component string `json:"component"`
}

type EditAdjustPayload struct {
	Step float64 `json:"step"`
}

type NudgePayload struct {
	Direction int `json:"direction"`
}

// Server -> Client messages

type SimStatePayload struct {
	SessionID    string          `json:"session_id"`
	Running      bool            `json:"running"`
	Editing      bool            `json:"editing"`
	IntervalMS   int64           `json:"interval_ms"`
	Ticks        uint64          `json:"ticks"`
	Weather      string          `json:"weather"`
	AutoMode     bool            `json:"auto_mode"`
	TargetGridKW float64         `json:"target_grid_kw"`
	Edited       model.EditedSet `json:"edited"`
}

type FlowsPayload struct {
	Tick      uint64      `json:"tick"`
	Timestamp string      `json:"timestamp"`
	Flows     model.Flows `json:"flows"`
}

type SummaryPayload struct {
	HomeAvg15MinKW float64 `json:"home_avg_15min_kw"`
	HeatingKW      float64 `json:"heating_kw"`
	TemperatureC   float64 `json:"temperature_c"`
	Ticks          uint64  `json:"ticks"`
}

type EditStatePayload struct {
	Active    bool    `json:"active"`
	Component string  `json:"component,omitempty"`
	ValueKW   float64 `json:"value_kw"`
}

type ErrorPayload struct {
	Request string `json:"request"`
	Message string `json:"message"`
}

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func SimStateFromEngine(s simulator.State) SimStatePayload {
	return SimStatePayload{
		SessionID:    s.SessionID,
		Running:      s.Running,
		Editing:      s.Editing,
		IntervalMS:   s.Interval.Milliseconds(),
		Ticks:        s.Ticks,
		Weather:      string(s.Controls.Weather),
		AutoMode:     s.Controls.AutoMode,
		TargetGridKW: s.Controls.TargetGridKW,
		Edited:       s.Controls.Edited,
	}
}

func FlowsFromEngine(u simulator.Update) FlowsPayload {
	return FlowsPayload{
		Tick:      u.Tick,
		Timestamp: u.Time.UTC().Format("2006-01-02T15:04:05Z"),
		Flows:     u.Flows,
	}
}

func SummaryFromEngine(s simulator.Summary) SummaryPayload {
	return SummaryPayload{
		HomeAvg15MinKW: s.HomeAvg15MinKW,
		HeatingKW:      s.HeatingKW,
		TemperatureC:   s.TemperatureC,
		Ticks:          s.Ticks,
	}
}

func EditFromEngine(e simulator.EditState) EditStatePayload {
	return EditStatePayload{
		Active:    e.Active,
		Component: string(e.Component),
		ValueKW:   e.ValueKW,
	}
}
