package ws

import (
	"energy_dashboard/internal/simulator"
)

// Bridge implements simulator.Callback and broadcasts events to the WebSocket hub.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

func (b *Bridge) OnState(s simulator.State) {
	b.broadcast(TypeSimState, SimStateFromEngine(s))
}

func (b *Bridge) OnUpdate(u simulator.Update) {
	b.broadcast(TypeFlowsUpdate, FlowsFromEngine(u))
}

func (b *Bridge) OnSummary(s simulator.Summary) {
	b.broadcast(TypeSummaryUpdate, SummaryFromEngine(s))
}

func (b *Bridge) OnEdit(e simulator.EditState) {
	b.broadcast(TypeEditState, EditFromEngine(e))
}

func (b *Bridge) broadcast(msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		b.hub.log.Error("marshal failed", "type", msgType, "error", err)
		return
	}
	b.hub.Broadcast(msg)
}
