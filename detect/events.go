package detect

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/filaform/filatag/log"
	"github.com/filaform/filatag/types"
)

// Listener receives detection events. Listeners run synchronously on
// the emitting goroutine; keep them fast.
type Listener func(*types.EventEnvelope)

// Broadcaster fans detection events out to registered listeners.
// Multiple listeners may subscribe to the same event; a panicking
// listener is isolated per call and never corrupts engine state.
type Broadcaster struct {
	mu        sync.Mutex
	listeners map[types.EventType][]Listener
	all       []Listener
	seq       int64
	logger    *log.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *log.Logger) *Broadcaster {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Broadcaster{
		listeners: make(map[types.EventType][]Listener),
		logger:    logger,
	}
}

// Subscribe registers a listener for one event type.
func (b *Broadcaster) Subscribe(event types.EventType, l Listener) {
	b.mu.Lock()
	b.listeners[event] = append(b.listeners[event], l)
	b.mu.Unlock()
}

// SubscribeAll registers a listener for every event.
func (b *Broadcaster) SubscribeAll(l Listener) {
	b.mu.Lock()
	b.all = append(b.all, l)
	b.mu.Unlock()
}

// Emit stamps identity fields onto the envelope and delivers it to all
// matching listeners. Delivery is synchronous and panic-isolated per
// listener.
func (b *Broadcaster) Emit(envelope *types.EventEnvelope) {
	b.mu.Lock()
	b.seq++
	envelope.Seq = b.seq
	envelope.EventID = uuid.NewString()
	envelope.Ts = types.Timestamp(time.Now())
	targets := make([]Listener, 0, len(b.listeners[envelope.Type])+len(b.all))
	targets = append(targets, b.listeners[envelope.Type]...)
	targets = append(targets, b.all...)
	b.mu.Unlock()

	for _, l := range targets {
		b.deliver(l, envelope)
	}
}

// deliver invokes one listener, containing panics.
func (b *Broadcaster) deliver(l Listener, envelope *types.EventEnvelope) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked", map[string]any{
				"event": string(envelope.Type),
				"panic": fmt.Sprint(r),
			})
		}
	}()
	l(envelope)
}
