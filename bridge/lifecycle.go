package bridge

import (
	"net/netip"
)

// Init re-initialises the engine stream. Valid until the handle is used.
func (h *Handle[O, F]) Init() error {
	if err := h.checkOpen(`tcp_init`); err != nil {
		return err
	}
	return h.setup(`tcp_init`, h.stream.Init())
}

func (h *Handle[O, F]) Bind(host string, port int) error {
	if err := h.checkOpen(`tcp_bind`); err != nil {
		return err
	}
	return h.setup(`tcp_bind`, h.stream.Bind(host, port))
}

// Listen starts listening, dispatching a connection event with the status
// for each incoming connection. cb replaces the connection callback.
func (h *Handle[O, F]) Listen(cb F) error {
	if err := h.checkOpen(`listen`); err != nil {
		return err
	}
	h.events.Set(EventConnection, cb)
	if err := h.stream.Listen(h.bridge.backlog, h.onConnection); err != nil {
		return h.setup(`listen`, err)
	}
	h.state = StateListening
	return nil
}

// Accept accepts a pending connection onto client, which must be a fresh
// handle of the same bridge.
func (h *Handle[O, F]) Accept(client *Handle[O, F]) error {
	if err := h.checkOpen(`accept`); err != nil {
		return err
	}
	if client == nil || client.bridge != h.bridge {
		return &Error{Kind: KindSetup, Op: `accept`, Err: ErrInvalidHandle}
	}
	if err := client.checkOpen(`accept`); err != nil {
		return err
	}
	if err := h.stream.Accept(client.stream); err != nil {
		return h.setup(`accept`, err)
	}
	client.state = StateConnected
	return nil
}

// Connect starts connecting, dispatching a connect event with the status
// once complete. cb replaces the connect callback.
func (h *Handle[O, F]) Connect(host string, port int, cb F) error {
	if err := h.checkOpen(`tcp_connect`); err != nil {
		return err
	}
	h.events.Set(EventConnect, cb)
	return h.setup(`tcp_connect`, h.stream.Connect(host, port, h.onConnect))
}

// ReadStart starts dispatching read events, then a single end event at end
// of stream.
func (h *Handle[O, F]) ReadStart() error {
	if err := h.checkOpen(`read_start`); err != nil {
		return err
	}
	if err := h.stream.ReadStart(h.bridge.allocBuffer, h.onRead); err != nil {
		return h.setup(`read_start`, err)
	}
	h.state = StateReading
	return nil
}

func (h *Handle[O, F]) ReadStop() error {
	if err := h.checkOpen(`read_stop`); err != nil {
		return err
	}
	if err := h.stream.ReadStop(); err != nil {
		return h.setup(`read_stop`, err)
	}
	if h.state == StateReading {
		h.state = StateConnected
	}
	return nil
}

// Close starts closing the handle. The closed event is dispatched exactly
// once, after which the handle's object and callbacks are released.
func (h *Handle[O, F]) Close() error {
	if err := h.checkOpen(`close`); err != nil {
		return err
	}
	prev := h.state
	h.state = StateClosing
	if err := h.stream.Close(h.onClose); err != nil {
		if h.state == StateClosing {
			h.state = prev
		}
		return h.setup(`close`, err)
	}
	return nil
}

// LocalAddr returns the bound address.
func (h *Handle[O, F]) LocalAddr() (netip.AddrPort, error) {
	if err := h.checkOpen(`tcp_getsockname`); err != nil {
		return netip.AddrPort{}, err
	}
	addr, err := h.stream.LocalAddr()
	if err != nil {
		return netip.AddrPort{}, h.setup(`tcp_getsockname`, err)
	}
	return addr, nil
}

func (h *Handle[O, F]) checkOpen(op string) error {
	switch h.state {
	case StateClosing:
		return &Error{Kind: KindSetup, Op: op, Err: ErrHandleClosing}
	case StateClosed:
		return &Error{Kind: KindSetup, Op: op, Err: ErrHandleClosed}
	}
	return nil
}

func (h *Handle[O, F]) setup(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindSetup, Op: op, Err: err}
}
