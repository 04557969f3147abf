//go:build linux || darwin

package tcp

import (
	"fmt"

	"github.com/joeycumines/logiface"
)

// DefaultReadSize is the buffer size suggested to the alloc callback.
const DefaultReadSize = 64 * 1024

type options struct {
	logger   *logiface.Logger[logiface.Event]
	readSize int
	noDelay  bool
}

// Option configures a TCP handle.
type Option interface {
	applyOption(*options) error
}

type optionFunc func(*options) error

func (f optionFunc) applyOption(opts *options) error {
	return f(opts)
}

// WithLogger sets the logger used for poller registration failures and
// handle lifecycle debug output.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return optionFunc(func(opts *options) error {
		opts.logger = logger
		return nil
	})
}

// WithReadSize sets the size suggested to the alloc callback for each read.
func WithReadSize(size int) Option {
	return optionFunc(func(opts *options) error {
		if size <= 0 {
			return fmt.Errorf(`tcp: invalid read size: %d`, size)
		}
		opts.readSize = size
		return nil
	})
}

// WithNoDelay disables Nagle's algorithm on opened streams.
func WithNoDelay(enabled bool) Option {
	return optionFunc(func(opts *options) error {
		opts.noDelay = enabled
		return nil
	})
}

func resolveOptions(opts []Option) (*options, error) {
	cfg := &options{readSize: DefaultReadSize}
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
