//go:build linux || darwin

package gojauv

import (
	"context"
	"errors"

	"github.com/dop251/goja"
	"github.com/joeycumines/goja-uv/bridge"
	"github.com/joeycumines/goja-uv/eventloop"
	"github.com/joeycumines/goja-uv/tcp"
	"github.com/joeycumines/logiface"
)

const (
	VersionMajor = 0
	VersionMinor = 1
)

// handle is the bridge handle type of the module, referenced by every
// script-visible tcp handle object.
type handle = bridge.Handle[*goja.Object, goja.Callable]

// Module provides the uv module for a [goja.Runtime]. Each Module is bound
// to a single runtime and loop.
type Module struct {
	runtime *goja.Runtime
	loop    *eventloop.Loop
	bridge  *bridge.Bridge[*goja.Object, goja.Callable]
	logger  *logiface.Logger[logiface.Event]
	ctx     context.Context
	handler func(error)

	// errs collects asynchronous errors until run() throws them
	errs []error
}

// New creates a new [Module] bound to the given [goja.Runtime].
//
// New panics if runtime is nil. It returns an error if option validation
// fails, or the loop cannot be created.
func New(runtime *goja.Runtime, opts ...Option) (*Module, error) {
	if runtime == nil {
		panic("gojauv: runtime must not be nil")
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	engine := &tcpEngine{
		loop: cfg.loop,
		opts: []tcp.Option{
			tcp.WithLogger(cfg.logger),
			tcp.WithReadSize(cfg.readBufferSize),
			tcp.WithNoDelay(cfg.noDelay),
		},
	}
	if engine.loop == nil {
		engine.loop, err = eventloop.New(eventloop.WithLogger(cfg.logger))
		if err != nil {
			return nil, err
		}
		engine.ownsLoop = true
		closeWithRuntime(runtime, engine.loop)
	}

	m := &Module{
		runtime: runtime,
		loop:    engine.loop,
		logger:  cfg.logger,
		ctx:     cfg.ctx,
		handler: cfg.errorHandler,
	}

	m.bridge, err = bridge.New[*goja.Object, goja.Callable](
		engine,
		&gojaHost{runtime: runtime},
		bridge.WithLogger(cfg.logger),
		bridge.WithErrorHandler(m.handleError),
		bridge.WithBacklog(cfg.backlog),
		bridge.WithReadBufferSize(cfg.readBufferSize),
	)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}

	return m, nil
}

// Runtime returns the [goja.Runtime] this module is bound to.
func (m *Module) Runtime() *goja.Runtime {
	return m.runtime
}

// Loop returns the event loop driving the module.
func (m *Module) Loop() *eventloop.Loop {
	return m.loop
}

// Stats returns a snapshot of the module's bridge resources.
func (m *Module) Stats() bridge.Stats {
	return m.bridge.Stats()
}

// Run runs the loop until idle, as uv.run() does, returning the loop error
// joined with any collected asynchronous errors.
func (m *Module) Run(ctx context.Context) error {
	err := m.bridge.Run(ctx)
	errs := m.errs
	m.errs = nil
	return errors.Join(append([]error{err}, errs...)...)
}

// Close releases the loop, if it is owned by the module.
func (m *Module) Close() error {
	return m.bridge.Close()
}

// SetupExports wires the module's JS API onto the given exports object.
func (m *Module) SetupExports(exports *goja.Object) {
	m.setupExports(exports)
}

func (m *Module) handleError(err error) {
	if m.handler != nil {
		m.handler(err)
		return
	}
	m.errs = append(m.errs, err)
}
