package bridge

import (
	"bytes"
)

// writeRecord is an in-flight write. It owns a private copy of the data,
// and holds the completion callback by token until it fires.
type writeRecord[O, F any] struct {
	handle   *Handle[O, F]
	buf      []byte
	callback Token
}

// Write queues a copy of data, dispatching cb once the engine completes
// the write: with no arguments on success, or with the write error.
func (h *Handle[O, F]) Write(data []byte, cb F) error {
	if err := h.checkOpen(`write`); err != nil {
		return err
	}

	b := h.bridge
	r := &writeRecord[O, F]{
		handle:   h,
		buf:      bytes.Clone(data),
		callback: b.callbacks.Register(cb),
	}
	if r.buf == nil {
		r.buf = []byte{}
	}
	b.writes++

	if err := h.stream.Write(r.buf, r.complete); err != nil {
		r.release()
		return h.setup(`write`, err)
	}
	return nil
}

func (r *writeRecord[O, F]) complete(err error) {
	b := r.handle.bridge
	b.report(b.dispatchWrite(r, err))
}

// release frees the record, returning its callback.
func (r *writeRecord[O, F]) release() F {
	b := r.handle.bridge
	cb := b.callbacks.Resolve(r.callback)
	b.callbacks.Release(r.callback)
	r.callback = Token{}
	r.buf = nil
	b.writes--
	return cb
}
