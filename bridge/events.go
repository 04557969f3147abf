package bridge

import (
	"slices"
)

// Event names dispatched by the bridge.
const (
	EventConnection = "connection"
	EventConnect    = "connect"
	EventRead       = "read"
	EventEnd        = "end"
	EventClosed     = "closed"
)

// EventTable maps event names to host callbacks. Setting a name that is
// already present replaces the callback.
//
// The zero value is ready to use.
type EventTable[F any] struct {
	callbacks map[string]F
}

// Set registers fn under name.
func (t *EventTable[F]) Set(name string, fn F) {
	if t.callbacks == nil {
		t.callbacks = make(map[string]F)
	}
	t.callbacks[name] = fn
}

// Get returns the callback for name.
func (t *EventTable[F]) Get(name string) (F, bool) {
	fn, ok := t.callbacks[name]
	return fn, ok
}

// Delete removes the callback for name, if any.
func (t *EventTable[F]) Delete(name string) {
	delete(t.callbacks, name)
}

// Names returns the registered event names, sorted.
func (t *EventTable[F]) Names() []string {
	names := make([]string, 0, len(t.callbacks))
	for name := range t.callbacks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered callbacks.
func (t *EventTable[F]) Len() int {
	return len(t.callbacks)
}

func (t *EventTable[F]) reset() {
	t.callbacks = nil
}
