package bridge

import (
	"errors"
	"time"

	"github.com/joeycumines/logiface"
)

const (
	// DefaultBacklog is the listen backlog used unless WithBacklog is set.
	DefaultBacklog = 128

	// DefaultReadBufferSize is the size of the buffers handed to the engine
	// for reads.
	DefaultReadBufferSize = 64 << 10
)

// DefaultErrorLogRates limits how often asynchronous errors of the same
// kind and operation are logged.
var DefaultErrorLogRates = map[time.Duration]int{
	time.Second: 5,
	time.Minute: 60,
}

type bridgeOptions struct {
	logger         *logiface.Logger[logiface.Event]
	onError        func(error)
	errorLogRates  map[time.Duration]int
	backlog        int
	readBufferSize int
}

// Option configures a [Bridge].
type Option interface {
	applyOption(*bridgeOptions) error
}

type optionFunc struct {
	fn func(*bridgeOptions) error
}

func (o *optionFunc) applyOption(opts *bridgeOptions) error {
	return o.fn(opts)
}

// WithLogger configures the logger. Nil disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionFunc{fn: func(opts *bridgeOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithErrorHandler receives asynchronous errors: read errors, and
// exceptions raised by host callbacks. It is called on the engine
// goroutine, after the error is logged.
func WithErrorHandler(fn func(error)) Option {
	return &optionFunc{fn: func(opts *bridgeOptions) error {
		opts.onError = fn
		return nil
	}}
}

// WithErrorLogRates overrides DefaultErrorLogRates. An empty map disables
// rate limiting.
func WithErrorLogRates(rates map[time.Duration]int) Option {
	return &optionFunc{fn: func(opts *bridgeOptions) error {
		opts.errorLogRates = rates
		return nil
	}}
}

// WithBacklog configures the listen backlog.
func WithBacklog(backlog int) Option {
	return &optionFunc{fn: func(opts *bridgeOptions) error {
		if backlog <= 0 {
			return errors.New("bridge: backlog must be positive")
		}
		opts.backlog = backlog
		return nil
	}}
}

// WithReadBufferSize configures the size of read buffers.
func WithReadBufferSize(size int) Option {
	return &optionFunc{fn: func(opts *bridgeOptions) error {
		if size <= 0 {
			return errors.New("bridge: read buffer size must be positive")
		}
		opts.readBufferSize = size
		return nil
	}}
}

func resolveOptions(opts []Option) (*bridgeOptions, error) {
	cfg := &bridgeOptions{
		errorLogRates:  DefaultErrorLogRates,
		backlog:        DefaultBacklog,
		readBufferSize: DefaultReadBufferSize,
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
