package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// Bridge dispatches engine events into a [Host]. O is the host's handle
// object type, F its callback type.
type Bridge[O, F any] struct {
	engine  Engine
	host    Host[O, F]
	logger  *logiface.Logger[logiface.Event]
	onError func(error)
	limiter *catrate.Limiter

	// objects holds the host object of every open handle
	objects Registry[O]

	// callbacks holds write completion callbacks until they fire
	callbacks Registry[F]

	stack stack[O]

	buffers        sync.Pool
	readBufferSize int
	backlog        int

	handles     int
	writes      int
	liveBuffers int
}

// Stats is a snapshot of the resources held by a [Bridge].
type Stats struct {
	// Handles is the number of handles not yet closed.
	Handles int
	// PendingWrites is the number of writes awaiting completion.
	PendingWrites int
	// ReadBuffers is the number of read buffers handed to the engine and
	// not yet released.
	ReadBuffers int
	// StackDepth is the depth of the marshalling stack, 0 between dispatches.
	StackDepth int
}

// New creates a bridge between engine and host.
func New[O, F any](engine Engine, host Host[O, F], opts ...Option) (*Bridge[O, F], error) {
	if engine == nil {
		return nil, errors.New("bridge: engine must not be nil")
	}
	if host == nil {
		return nil, errors.New("bridge: host must not be nil")
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	b := &Bridge[O, F]{
		engine:         engine,
		host:           host,
		logger:         cfg.logger,
		onError:        cfg.onError,
		readBufferSize: cfg.readBufferSize,
		backlog:        cfg.backlog,
	}
	if len(cfg.errorLogRates) != 0 {
		b.limiter = catrate.NewLimiter(cfg.errorLogRates)
	}
	return b, nil
}

// Run drives the engine, dispatching events, until there is nothing left
// to do or ctx is done.
func (b *Bridge[O, F]) Run(ctx context.Context) error {
	return b.engine.Run(ctx)
}

// Close releases the engine. Handles that are still open are abandoned.
func (b *Bridge[O, F]) Close() error {
	if b.handles != 0 {
		b.logger.Warning().
			Int(`handles`, b.handles).
			Int(`pending_writes`, b.writes).
			Log(`closing bridge with open handles`)
	}
	return b.engine.Close()
}

// Stats returns a snapshot of the bridge's resources.
func (b *Bridge[O, F]) Stats() Stats {
	return Stats{
		Handles:       b.handles,
		PendingWrites: b.writes,
		ReadBuffers:   b.liveBuffers,
		StackDepth:    b.stack.depth(),
	}
}

// NewHandle creates a handle backed by a new engine stream. The host
// object is created by wrap, and remains registered until the handle's
// closed event has been dispatched.
func (b *Bridge[O, F]) NewHandle(wrap func(h *Handle[O, F]) O) (*Handle[O, F], error) {
	stream, err := b.engine.NewStream()
	if err != nil {
		return nil, &Error{Kind: KindSetup, Op: `new_tcp`, Err: err}
	}
	h := &Handle[O, F]{bridge: b, stream: stream}
	h.ref = b.objects.Register(wrap(h))
	b.handles++
	b.logger.Debug().
		Stringer(`token`, h.ref).
		Int(`handles`, b.handles).
		Log(`handle created`)
	return h, nil
}

// report logs and forwards the error of an asynchronous dispatch.
func (b *Bridge[O, F]) report(res Result) {
	if res.Err == nil {
		return
	}

	var category any = res.Event
	var e *Error
	if errors.As(res.Err, &e) {
		category = [2]any{e.Kind, e.Op}
	}
	if _, ok := b.limiter.Allow(category); ok {
		b.logger.Err().
			Str(`event`, res.Event).
			Bool(`invoked`, res.Invoked).
			Err(res.Err).
			Log(`dispatch failed`)
	}

	if b.onError != nil {
		b.onError(res.Err)
	}
}

// allocBuffer returns a pooled read buffer of the configured size. The
// engine's suggested size is ignored.
func (b *Bridge[O, F]) allocBuffer(int) []byte {
	size := b.readBufferSize
	b.liveBuffers++
	if p, _ := b.buffers.Get().(*[]byte); p != nil && cap(*p) >= size {
		return (*p)[:size]
	}
	return make([]byte, size)
}

func (b *Bridge[O, F]) freeBuffer(buf []byte) {
	if buf == nil {
		return
	}
	b.liveBuffers--
	buf = buf[:cap(buf)]
	b.buffers.Put(&buf)
}
