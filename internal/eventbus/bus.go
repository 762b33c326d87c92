package eventbus

import (
	"log/slog"
	"reflect"
	"sync"

	"pantry-shop/internal/observability"
)

// Handler receives an event payload. The payload type per event is documented
// in events.go.
type Handler func(payload any)

type subscription struct {
	id   uint64
	fn   Handler
	once bool
	// fnPtr identifies the original callback for Off.
	fnPtr uintptr
}

// Bus is a synchronous in-process publish/subscribe bus. Delivery is
// at-most-once and fire-and-forget: events emitted before a subscriber
// registers are lost, and nothing is queued or persisted.
type Bus struct {
	mu     sync.Mutex
	subs   map[Event][]*subscription
	nextID uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Event][]*subscription)}
}

// On registers fn for event and returns an idempotent unsubscribe function.
// Subscribers are invoked in registration order, though that order carries no
// contractual meaning.
func (b *Bus) On(event Event, fn Handler) (unsubscribe func()) {
	return b.subscribe(event, fn, false)
}

// Once registers fn for a single invocation; it is removed before its first
// call runs, so re-emitting inside the handler cannot re-trigger it.
func (b *Bus) Once(event Event, fn Handler) (unsubscribe func()) {
	return b.subscribe(event, fn, true)
}

func (b *Bus) subscribe(event Event, fn Handler, once bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{
		id:    b.nextID,
		fn:    fn,
		once:  once,
		fnPtr: reflect.ValueOf(fn).Pointer(),
	}
	b.subs[event] = append(b.subs[event], sub)

	id := sub.id
	return func() { b.remove(event, id) }
}

// Off removes the first subscriber registered with the given callback.
// Prefer the unsubscribe function returned by On; Off exists for callers that
// only kept the callback itself.
func (b *Bus) Off(event Event, fn Handler) {
	ptr := reflect.ValueOf(fn).Pointer()

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs[event] {
		if sub.fnPtr == ptr {
			b.subs[event] = append(b.subs[event][:i], b.subs[event][i+1:]...)
			return
		}
	}
}

func (b *Bus) remove(event Event, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs[event] {
		if sub.id == id {
			b.subs[event] = append(b.subs[event][:i], b.subs[event][i+1:]...)
			return
		}
	}
}

// Emit synchronously invokes all current subscribers for event. A panicking
// subscriber is recovered and logged; it never prevents the remaining
// subscribers from running and never reaches the emitter.
func (b *Bus) Emit(event Event, payload any) {
	b.mu.Lock()
	current := b.subs[event]
	snapshot := make([]*subscription, len(current))
	copy(snapshot, current)
	// Once-subscribers come out of the registry before their handler runs.
	remaining := current[:0]
	for _, sub := range current {
		if !sub.once {
			remaining = append(remaining, sub)
		}
	}
	b.subs[event] = remaining
	b.mu.Unlock()

	observability.BusEventsEmitted.WithLabelValues(string(event)).Inc()

	for _, sub := range snapshot {
		b.invoke(event, sub, payload)
	}
}

func (b *Bus) invoke(event Event, sub *subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event subscriber panicked",
				slog.String("event", string(event)),
				slog.Any("panic", r))
		}
	}()
	sub.fn(payload)
}
