//go:build linux || darwin

package gojauv

import (
	"context"
	"errors"

	"github.com/joeycumines/goja-uv/bridge"
	"github.com/joeycumines/goja-uv/eventloop"
	"github.com/joeycumines/logiface"
)

// moduleOptions holds configuration for a [Module] instance.
type moduleOptions struct {
	ctx            context.Context
	loop           *eventloop.Loop
	logger         *logiface.Logger[logiface.Event]
	errorHandler   func(error)
	backlog        int
	readBufferSize int
	noDelay        bool
}

// Option configures a [Module] instance. Options are applied during
// module construction.
type Option interface {
	applyOption(*moduleOptions) error
}

// optionFunc implements [Option] via a closure.
type optionFunc struct {
	fn func(*moduleOptions) error
}

func (o *optionFunc) applyOption(opts *moduleOptions) error {
	return o.fn(opts)
}

// WithLoop configures the event loop. If unset, each module creates and
// owns its own loop, which is released by [Module.Close], or once the
// runtime has been garbage collected.
func WithLoop(loop *eventloop.Loop) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		if loop == nil {
			return errors.New("gojauv: loop must not be nil")
		}
		opts.loop = loop
		return nil
	}}
}

// WithLogger configures the logger shared by the module, its bridge and
// its tcp handles.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithContext configures the context run() is bounded by.
func WithContext(ctx context.Context) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		if ctx == nil {
			return errors.New("gojauv: context must not be nil")
		}
		opts.ctx = ctx
		return nil
	}}
}

// WithErrorHandler receives asynchronous errors instead of run().
func WithErrorHandler(fn func(error)) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		opts.errorHandler = fn
		return nil
	}}
}

// WithBacklog configures the listen backlog, see [bridge.DefaultBacklog].
func WithBacklog(backlog int) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		if backlog <= 0 {
			return errors.New("gojauv: backlog must be positive")
		}
		opts.backlog = backlog
		return nil
	}}
}

// WithReadBufferSize configures the size of read buffers, see
// [bridge.DefaultReadBufferSize].
func WithReadBufferSize(size int) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		if size <= 0 {
			return errors.New("gojauv: read buffer size must be positive")
		}
		opts.readBufferSize = size
		return nil
	}}
}

// WithNoDelay disables Nagle's algorithm on connected handles.
func WithNoDelay(enabled bool) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		opts.noDelay = enabled
		return nil
	}}
}

// resolveOptions applies the given options to a default [moduleOptions].
func resolveOptions(opts []Option) (*moduleOptions, error) {
	cfg := &moduleOptions{
		ctx:            context.Background(),
		backlog:        bridge.DefaultBacklog,
		readBufferSize: bridge.DefaultReadBufferSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
