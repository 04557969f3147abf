package bridge

import (
	"context"
	"net/netip"
)

// Engine is an asynchronous stream engine, e.g. a TCP implementation
// driven by an event loop.
type Engine interface {
	// NewStream allocates a stream bound to the engine.
	NewStream() (Stream, error)

	// Run drives the engine until no active streams or pending callbacks
	// remain, or ctx is done.
	Run(ctx context.Context) error

	// Close releases the engine. Streams must not be used afterwards.
	Close() error
}

// Stream is a single engine-side stream handle.
//
// Callbacks are invoked on the goroutine that runs the engine, and never
// from within the method that registered them.
type Stream interface {
	// Init prepares the stream for use. Streams from NewStream are already
	// initialised, Init re-initialises a closed stream.
	Init() error

	Bind(host string, port int) error

	// Listen starts accepting connections, calling cb once per connection
	// ready to Accept, or with the error that stopped listening.
	Listen(backlog int, cb func(err error)) error

	// Accept moves a pending connection onto client.
	Accept(client Stream) error

	Connect(host string, port int, cb func(err error)) error

	// ReadStart starts reading. Each read allocates via alloc, then calls
	// cb with nread >= 0 and the buffer, or nread < 0 with a non-nil err.
	// End of stream is reported with an err matching io.EOF. Reading stops
	// after any error.
	ReadStart(alloc func(size int) []byte, cb func(nread int, buf []byte, err error)) error

	ReadStop() error

	// Write queues buf, which must not be modified until cb has run.
	Write(buf []byte, cb func(err error)) error

	// Close closes the stream, calling cb exactly once when done. Pending
	// writes complete first, with a cancellation error.
	Close(cb func()) error

	LocalAddr() (netip.AddrPort, error)
}

// Host is the scripting runtime events are dispatched into.
type Host[O, F any] interface {
	// Call invokes fn with obj as the receiver. The returned error is an
	// exception raised by fn.
	Call(fn F, obj O, args []Arg) error
}

// HostFunc adapts a function to [Host].
type HostFunc[O, F any] func(fn F, obj O, args []Arg) error

func (f HostFunc[O, F]) Call(fn F, obj O, args []Arg) error {
	return f(fn, obj, args)
}
