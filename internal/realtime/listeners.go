package realtime

import (
	"encoding/json"
	"sync"
	"time"

	wstypes "dispatch-console/internal/domain/websocket"

	"go.uber.org/zap"
)

// AnyEvent registers a listener for every event.
const AnyEvent wstypes.EventType = "*"

// Event is a sanitized inbound event, or a local one such as
// reconnect_failed. Data holds decoded JSON values.
type Event struct {
	Name      wstypes.EventType `json:"event"`
	Data      any               `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Decode converts the sanitized payload into target.
func (e Event) Decode(target any) error {
	return mapToStruct(e.Data, target)
}

type Handler func(Event)

// Listener is the handle returned by On; pass it to Off to unregister.
type Listener struct {
	event wstypes.EventType
	fn    Handler
}

// registry maps event names to listeners. Dispatch snapshots under the lock
// and calls out without it, so handlers may register or unregister freely.
type registry struct {
	mu        sync.RWMutex
	listeners map[wstypes.EventType][]*Listener
	logger    *zap.Logger
}

func newRegistry(logger *zap.Logger) *registry {
	return &registry{
		listeners: make(map[wstypes.EventType][]*Listener),
		logger:    logger,
	}
}

func (r *registry) add(event wstypes.EventType, fn Handler) *Listener {
	l := &Listener{event: event, fn: fn}
	r.mu.Lock()
	r.listeners[event] = append(r.listeners[event], l)
	r.mu.Unlock()
	return l
}

// remove drops l, or every listener for event when l is nil.
func (r *registry) remove(event wstypes.EventType, l *Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l == nil {
		delete(r.listeners, event)
		return
	}
	list := r.listeners[event]
	for i, cur := range list {
		if cur == l {
			r.listeners[event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(r.listeners[event]) == 0 {
		delete(r.listeners, event)
	}
}

func (r *registry) count(event wstypes.EventType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[event])
}

func (r *registry) dispatch(ev Event) {
	r.mu.RLock()
	targets := make([]*Listener, 0, len(r.listeners[ev.Name])+len(r.listeners[AnyEvent]))
	targets = append(targets, r.listeners[ev.Name]...)
	targets = append(targets, r.listeners[AnyEvent]...)
	r.mu.RUnlock()

	for _, l := range targets {
		r.call(l, ev)
	}
}

func (r *registry) call(l *Listener, ev Event) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("realtime listener panicked",
				zap.String("event", string(ev.Name)),
				zap.Any("panic", p),
			)
		}
	}()
	l.fn(ev)
}

// mapToStruct converts decoded JSON values to a specific struct
func mapToStruct(data any, target any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}
