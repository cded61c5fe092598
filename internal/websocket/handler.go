// internal/websocket/handler.go
package websocket

import (
	"context"
	"fmt"
	"sort"
	"sync"

	wstypes "dispatch-console/internal/domain/websocket"
)

// MessageHandler serves client-sent events other than the handshake and
// room membership, which the hub owns.
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg *wstypes.Message) error
	SupportedEvents() []wstypes.EventType
}

// HandlerRegistry routes an event to the single handler that claimed it
type HandlerRegistry struct {
	mu     sync.RWMutex
	routes map[wstypes.EventType]MessageHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{routes: make(map[wstypes.EventType]MessageHandler)}
}

// Register claims every event handler supports. Claiming an event twice
// panics.
func (r *HandlerRegistry) Register(handler MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range handler.SupportedEvents() {
		if _, taken := r.routes[ev]; taken {
			panic(fmt.Sprintf("websocket: event %q already has a handler", ev))
		}
		r.routes[ev] = handler
	}
}

// Dispatch runs the handler for msg. handled is false when nothing claims
// the event.
func (r *HandlerRegistry) Dispatch(ctx context.Context, client *Client, msg *wstypes.Message) (handled bool, err error) {
	r.mu.RLock()
	handler, ok := r.routes[msg.Event]
	r.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

// Events lists the claimed events, sorted
func (r *HandlerRegistry) Events() []wstypes.EventType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wstypes.EventType, 0, len(r.routes))
	for ev := range r.routes {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
