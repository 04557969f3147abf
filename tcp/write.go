//go:build linux || darwin

package tcp

import (
	"golang.org/x/sys/unix"
)

// WriteFunc is called exactly once per successfully issued write.
type WriteFunc func(req *WriteReq, err error)

// WriteReq is an in-flight write. The buffer passed to Write must not be
// modified until the callback has run.
type WriteReq struct {
	// Data is free for use by the issuer of the write.
	Data any

	handle  *TCP
	cb      WriteFunc
	buf     []byte
	written int
}

// Handle returns the handle the request was issued on.
func (r *WriteReq) Handle() *TCP {
	return r.handle
}

// Write queues buf for writing. Writes are performed in order, and each
// callback fires from a later loop iteration once all of buf has been
// accepted by the kernel, or with the error that stopped it.
func (t *TCP) Write(req *WriteReq, buf []byte, cb WriteFunc) error {
	switch {
	case req == nil, t.flags&flagClosing != 0:
		return newError(unix.EINVAL)
	case req.handle != nil:
		return newError(unix.EBUSY)
	case t.flags&flagConnected == 0:
		return newError(unix.ENOTCONN)
	}

	req.handle = t
	req.cb = cb
	req.buf = buf
	req.written = 0
	t.writes.Add(req)

	if t.writes.Length() == 1 {
		t.flushWrites()
	}
	return t.updateIO()
}

// WriteQueueSize returns the number of bytes queued but not yet written.
func (t *TCP) WriteQueueSize() int {
	var size int
	for i := 0; i < t.writes.Length(); i++ {
		req := t.writes.Get(i).(*WriteReq)
		size += len(req.buf) - req.written
	}
	return size
}

// flushWrites writes as much of the queue as the socket accepts.
func (t *TCP) flushWrites() {
	for t.writes.Length() > 0 {
		req := t.writes.Peek().(*WriteReq)
		for req.written < len(req.buf) {
			n, err := writeSocket(t.fd, req.buf[req.written:])
			switch err {
			case nil:
				req.written += n
			case unix.EINTR:
			case unix.EAGAIN:
				return
			default:
				t.failWrites(newError(err))
				return
			}
		}
		t.writes.Remove()
		t.completeWrite(req, nil)
	}
}

// failWrites completes every pending write with err.
func (t *TCP) failWrites(err error) {
	for t.writes.Length() > 0 {
		req := t.writes.Remove().(*WriteReq)
		t.completeWrite(req, err)
	}
}

func (t *TCP) completeWrite(req *WriteReq, err error) {
	cb := req.cb
	req.cb = nil
	req.buf = nil
	t.deferCallback(func() {
		req.handle = nil
		if cb != nil {
			cb(req, err)
		}
	})
}
