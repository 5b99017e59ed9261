package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"escrowmarket/core/events"
	"escrowmarket/core/types"

	"nhooyr.io/websocket"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsSubscriberSize = 64
)

// EventHub fans engine events out to websocket subscribers. It implements
// events.Emitter, so it can sit in the emitter fanout next to the journal.
// A subscriber that stops draining its channel is dropped rather than
// allowed to stall the emit path.
type EventHub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan *types.Event
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[uint64]chan *types.Event)}
}

// Emit delivers the event to every live subscriber without blocking.
func (h *EventHub) Emit(evt events.Event) {
	payload, ok := evt.(events.Payload)
	if !ok {
		return
	}
	wire := payload.Event()
	if wire == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- wire:
		default:
			close(ch)
			delete(h.subs, id)
		}
	}
}

func (h *EventHub) subscribe() (uint64, chan *types.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan *types.Event, wsSubscriberSize)
	h.subs[h.nextID] = ch
	return h.nextID, ch
}

func (h *EventHub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
}

type wsEventPayload struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := h.stream(r.Context(), conn); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (h *EventHub) stream(ctx context.Context, conn *websocket.Conn) error {
	id, ch := h.subscribe()
	defer h.unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt *types.Event) error {
	data, err := json.Marshal(wsEventPayload{Type: evt.Type, Attributes: evt.Attributes})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
