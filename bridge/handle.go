package bridge

import (
	"fmt"
)

// State is the lifecycle state of a [Handle].
type State uint8

const (
	StateConstructed State = iota
	StateListening
	StateConnected
	StateReading
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateListening:
		return "listening"
	case StateConnected:
		return "connected"
	case StateReading:
		return "reading"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Handle is a script-visible stream. Its host object is held by the
// bridge, and it is only ever referenced from engine callbacks by token.
type Handle[O, F any] struct {
	bridge *Bridge[O, F]
	stream Stream
	events EventTable[F]
	ref    Token
	state  State
}

// State returns the lifecycle state.
func (h *Handle[O, F]) State() State {
	return h.state
}

// Token returns the token of the handle's host object, the zero Token once
// closed.
func (h *Handle[O, F]) Token() Token {
	return h.ref
}

// Object returns the host object, or false once the handle is closed.
func (h *Handle[O, F]) Object() (O, bool) {
	return h.bridge.objects.Lookup(h.ref)
}

// Handler returns the callback registered for event.
func (h *Handle[O, F]) Handler(event string) (F, bool) {
	return h.events.Get(event)
}

// SetHandler registers fn for event, replacing any previous callback.
func (h *Handle[O, F]) SetHandler(event string, fn F) error {
	if err := h.checkOpen(`set_handler`); err != nil {
		return err
	}
	h.events.Set(event, fn)
	return nil
}

func (h *Handle[O, F]) onConnection(err error) {
	h.bridge.report(h.bridge.dispatchConnection(h, err))
}

func (h *Handle[O, F]) onConnect(err error) {
	h.bridge.report(h.bridge.dispatchConnect(h, err))
}

func (h *Handle[O, F]) onRead(nread int, buf []byte, err error) {
	h.bridge.report(h.bridge.dispatchRead(h, nread, buf, err))
}

func (h *Handle[O, F]) onClose() {
	h.bridge.report(h.bridge.dispatchClose(h))
}
