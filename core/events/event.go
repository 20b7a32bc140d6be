package events

import (
	"sync"

	"github.com/lidofinance/anchor-collateral-steth/core/types"
)

// Event represents a structured state change emitted by the vault modules.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (journal, metrics, logs).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events in memory until they are flushed to a downstream
// emitter. Engines stage events in a buffer while an operation is in flight and
// only flush once the operation has committed.
type Buffer struct {
	events []Event
}

// Emit appends the event to the buffer.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.events = append(b.events, evt)
}

// Len reports the number of staged events.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.events)
}

// Flush forwards every staged event to dst in emission order and resets the
// buffer.
func (b *Buffer) Flush(dst Emitter) {
	if b == nil {
		return
	}
	staged := b.events
	b.events = nil
	if dst == nil {
		return
	}
	for _, evt := range staged {
		dst.Emit(evt)
	}
}

// Discard drops every staged event.
func (b *Buffer) Discard() {
	if b == nil {
		return
	}
	b.events = nil
}

// Recorder is a concurrency-safe emitter retaining everything it receives.
// Tests and the inspection tooling use it to assert on emitted events.
type Recorder struct {
	mu     sync.Mutex
	events []*types.Event
}

// Emit records the rendered event.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	rendered := evt.Event()
	if rendered == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, rendered)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []*types.Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events with the supplied type.
func (r *Recorder) OfType(eventType string) []*types.Event {
	var out []*types.Event
	for _, evt := range r.Events() {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// Reset clears the recorded events.
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Fanout forwards every event to each of the wrapped emitters.
type Fanout []Emitter

// Emit implements Emitter.
func (f Fanout) Emit(evt Event) {
	for _, dst := range f {
		if dst != nil {
			dst.Emit(evt)
		}
	}
}
