package bridge

import (
	"bytes"
	"errors"
	"io"
	"runtime/debug"
)

// Result describes a single dispatch.
type Result struct {
	// Err is the read error, or the exception raised by the callback.
	Err error
	// Event is the dispatched event, empty if none.
	Event string
	// Invoked is true if a callback was found and called.
	Invoked bool
}

func (b *Bridge[O, F]) dispatchConnection(h *Handle[O, F], status error) Result {
	depth := b.stack.depth()
	b.stack.pushObject(b.objects.Resolve(h.ref))
	b.stack.pushArg(IntArg(Status(status)))
	res := b.emit(h, EventConnection, 1)
	b.stack.pop(1)
	b.stack.expect(depth, EventConnection)
	return res
}

func (b *Bridge[O, F]) dispatchConnect(h *Handle[O, F], status error) Result {
	depth := b.stack.depth()
	if status == nil && h.state == StateConstructed {
		h.state = StateConnected
	}
	b.stack.pushObject(b.objects.Resolve(h.ref))
	b.stack.pushArg(IntArg(Status(status)))
	res := b.emit(h, EventConnect, 1)
	b.stack.pop(1)
	b.stack.expect(depth, EventConnect)
	return res
}

// dispatchRead translates a read completion. The buffer is released on
// every path, the host receives a copy of the data.
func (b *Bridge[O, F]) dispatchRead(h *Handle[O, F], nread int, buf []byte, status error) (res Result) {
	depth := b.stack.depth()
	defer b.freeBuffer(buf)

	switch {
	case nread >= 0:
		b.stack.pushObject(b.objects.Resolve(h.ref))
		b.stack.pushArg(BytesArg(bytes.Clone(buf[:nread:nread])))
		b.stack.pushArg(IntArg(nread))
		res = b.emit(h, EventRead, 2)
		b.stack.pop(1)

	case errors.Is(status, io.EOF):
		h.readStopped()
		b.stack.pushObject(b.objects.Resolve(h.ref))
		res = b.emit(h, EventEnd, 0)
		b.stack.pop(1)

	default:
		h.readStopped()
		if status == nil {
			status = errors.New("negative read without error")
		}
		res = Result{Event: EventRead, Err: &Error{Kind: KindStream, Op: `read`, Err: status}}
	}

	b.stack.expect(depth, EventRead)
	return res
}

func (b *Bridge[O, F]) dispatchWrite(r *writeRecord[O, F], status error) Result {
	depth := b.stack.depth()
	obj := b.objects.Resolve(r.handle.ref)
	// the callback is released before it runs, it may issue more writes
	cb := r.release()

	b.stack.pushObject(obj)
	nargs := 0
	if status != nil {
		b.stack.pushArg(ErrorArg(&Error{Kind: KindWrite, Op: `write`, Err: status}))
		nargs = 1
	}
	args := b.stack.args(depth+1, nargs)
	b.stack.pop(nargs)
	res := Result{Event: `write`, Invoked: true, Err: b.invoke(cb, obj, `write`, args)}
	b.stack.pop(1)
	b.stack.expect(depth, `write`)
	return res
}

// dispatchClose emits the closed event, then releases the handle.
func (b *Bridge[O, F]) dispatchClose(h *Handle[O, F]) Result {
	depth := b.stack.depth()
	b.stack.pushObject(b.objects.Resolve(h.ref))
	res := b.emit(h, EventClosed, 0)
	b.stack.pop(1)

	b.objects.Release(h.ref)
	b.logger.Debug().
		Stringer(`token`, h.ref).
		Int(`handles`, b.handles-1).
		Log(`handle closed`)
	h.ref = Token{}
	h.events.reset()
	h.state = StateClosed
	b.handles--

	b.stack.expect(depth, EventClosed)
	return res
}

// emit invokes the callback registered for event, with the object below
// the top nargs values of the stack as receiver, and those values as the
// arguments. The arguments are consumed, the object is left in place.
func (b *Bridge[O, F]) emit(h *Handle[O, F], event string, nargs int) Result {
	base := b.stack.depth() - nargs
	fn, ok := h.events.Get(event)
	if !ok {
		b.stack.pop(nargs)
		return Result{Event: event}
	}
	obj := b.stack.object(base - 1)
	args := b.stack.args(base, nargs)
	b.stack.pop(nargs)
	return Result{Event: event, Invoked: true, Err: b.invoke(fn, obj, event, args)}
}

// invoke calls the host, converting exceptions and panics to errors.
func (b *Bridge[O, F]) invoke(fn F, obj O, event string, args []Arg) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			if len(stack) > maxPanicStack {
				stack = stack[:maxPanicStack]
			}
			err = &Error{Kind: KindCallback, Op: event, Err: &HostPanicError{Value: r, Stack: stack}}
		}
	}()
	if e := b.host.Call(fn, obj, args); e != nil {
		return &Error{Kind: KindCallback, Op: event, Err: e}
	}
	return nil
}

func (h *Handle[O, F]) readStopped() {
	if h.state == StateReading {
		h.state = StateConnected
	}
}
