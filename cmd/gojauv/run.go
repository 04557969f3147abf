//go:build linux || darwin

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/goja-uv/eventloop"
	"github.com/joeycumines/goja-uv/gojauv"
	"github.com/joeycumines/logiface"
	"github.com/spf13/cobra"
)

func (a *app) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script>",
		Short: "Run a script, then the event loop until idle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args[0])
		},
	}
}

func (a *app) run(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	loop, err := eventloop.New(
		eventloop.WithLogger(a.logger),
		eventloop.WithMetrics(a.cfg.Metrics),
	)
	if err != nil {
		return err
	}
	defer loop.Close()

	runtime := goja.New()
	module, err := gojauv.New(runtime,
		gojauv.WithLoop(loop),
		gojauv.WithLogger(a.logger),
		gojauv.WithContext(ctx),
		gojauv.WithReadBufferSize(a.cfg.ReadBufferSize),
		gojauv.WithBacklog(a.cfg.ListenBacklog),
		gojauv.WithNoDelay(a.cfg.NoDelay),
	)
	if err != nil {
		return err
	}

	registry := require.NewRegistry()
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(&consolePrinter{logger: a.logger}))
	registry.RegisterNativeModule(gojauv.ModuleName, func(_ *goja.Runtime, m *goja.Object) {
		module.SetupExports(m.Get("exports").(*goja.Object))
	})
	registry.Enable(runtime)
	console.Enable(runtime)

	a.logger.Debug().Str(`script`, path).Log(`running script`)
	start := time.Now()

	if _, err = runtime.RunScript(path, string(src)); err == nil {
		// drain anything the script left running
		err = module.Run(ctx)
	}

	if a.cfg.Metrics {
		a.logMetrics(loop.Metrics(), time.Since(start))
	}

	if errors.Is(err, context.Canceled) {
		a.logger.Notice().Log(`interrupted`)
		return nil
	}
	return err
}

func (a *app) logMetrics(m *eventloop.Metrics, elapsed time.Duration) {
	if m == nil {
		return
	}
	a.logger.Info().
		Dur(`elapsed`, elapsed).
		Uint64(`ticks`, m.Ticks).
		Uint64(`callbacks`, m.Callbacks).
		Float64(`tps`, m.TPS).
		Dur(`latency_p50`, m.Latency.P50).
		Dur(`latency_p99`, m.Latency.P99).
		Dur(`latency_max`, m.Latency.Max).
		Int(`queue_max`, m.Queue.Max).
		Log(`loop metrics`)
}

// consolePrinter routes console output into the log.
type consolePrinter struct {
	logger *logiface.Logger[logiface.Event]
}

func (p *consolePrinter) Log(s string) {
	p.logger.Info().Str(`source`, `console`).Log(s)
}

func (p *consolePrinter) Warn(s string) {
	p.logger.Warning().Str(`source`, `console`).Log(s)
}

func (p *consolePrinter) Error(s string) {
	p.logger.Err().Str(`source`, `console`).Log(s)
}
