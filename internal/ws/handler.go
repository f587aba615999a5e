package ws

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"energy_dashboard/internal/model"
	"energy_dashboard/internal/simulator"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler manages WebSocket connections and routes messages to the engine.
type Handler struct {
	hub    *Hub
	engine *simulator.Engine
}

func NewHandler(hub *Hub, engine *simulator.Engine) *Handler {
	return &Handler{hub: hub, engine: engine}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.log.Warn("upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.hub.Register(client)
	go client.writePump()

	h.sendSnapshot(client)

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.hub.log.Warn("read failed", "error", err)
			}
			return
		}

		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.sendError(c, "", fmt.Errorf("invalid message: %w", err))
		return
	}
	if err := h.dispatch(env); err != nil {
		h.hub.log.Debug("request rejected", "type", env.Type, "error", err)
		h.sendError(c, env.Type, err)
	}
}

func (h *Handler) dispatch(env Envelope) error {
	switch env.Type {
	case TypeSimStart:
		h.engine.Start()

	case TypeSimPause:
		h.engine.Pause()

	case TypeSimStep:
		_, err := h.engine.Step()
		return err

	case TypeWeatherSet:
		var p WeatherPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		mode, err := model.ParseWeatherMode(p.Mode)
		if err != nil {
			return err
		}
		return h.engine.SetWeatherMode(mode)

	case TypeComponentSet:
		var p ComponentSetPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		c, err := model.ParseComponent(p.Component)
		if err != nil {
			return err
		}
		return h.engine.SetComponentValue(c, p.Value)

	case TypeModeToggle:
		h.engine.ToggleAutoMode()

	case TypeGridSetTarget:
		var p TargetGridPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		return h.engine.SetTargetGrid(p.Value)

	case TypeEditBegin:
		var p EditBeginPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		c, err := model.ParseComponent(p.Component)
		if err != nil {
			return err
		}
		_, err = h.engine.BeginEdit(c)
		return err

	case TypeEditAdjust:
		var p EditAdjustPayload
		if err := decode(env, &p); err != nil {
			return err
		}
		_, err := h.engine.AdjustEdit(p.Step)
		return err

	case TypeEditSave:
		return h.engine.SaveEdit()

	case TypeEditCancel:
		return h.engine.CancelEdit()

	case TypeCarNudge:
		var p NudgePayload
		if err := decode(env, &p); err != nil {
			return err
		}
		return h.engine.NudgeCar(p.Direction)

	case TypeTemperatureNudge:
		var p NudgePayload
		if err := decode(env, &p); err != nil {
			return err
		}
		return h.engine.NudgeTemperature(p.Direction)

	default:
		return fmt.Errorf("unknown message type %q", env.Type)
	}
	return nil
}

func decode(env Envelope, v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", env.Type, err)
	}
	return nil
}

// sendSnapshot brings a newly connected client up to date.
func (h *Handler) sendSnapshot(c *Client) {
	state := h.engine.State()
	flows := h.engine.Flows()
	summary := h.engine.Summary()
	edit := h.engine.Edit()

	msgs := []struct {
		typ     string
		payload any
	}{
		{TypeSimState, SimStateFromEngine(state)},
		{TypeFlowsUpdate, FlowsPayload{Tick: state.Ticks, Flows: flows}},
		{TypeSummaryUpdate, SummaryFromEngine(summary)},
		{TypeEditState, EditFromEngine(edit)},
	}
	for _, m := range msgs {
		msg, err := NewEnvelope(m.typ, m.payload)
		if err != nil {
			h.hub.log.Error("marshal failed", "type", m.typ, "error", err)
			continue
		}
		c.sendTo(msg)
	}
}

func (h *Handler) sendError(c *Client, request string, err error) {
	msg, merr := NewEnvelope(TypeError, ErrorPayload{Request: request, Message: err.Error()})
	if merr != nil {
		return
	}
	c.sendTo(msg)
}
