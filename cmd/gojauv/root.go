//go:build linux || darwin

package main

import (
	"io"

	"github.com/joeycumines/logiface"
	"github.com/spf13/cobra"
)

// app holds the state shared by the commands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath     string
	logLevel       string
	logFormat      string
	readBufferSize int
	backlog        int
	noDelay        bool
	metrics        bool

	cfg    Config
	logger *logiface.Logger[logiface.Event]
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "gojauv",
		Short: "Run JavaScript with a libuv style TCP module",
		Long: `gojauv runs a JavaScript file on an event loop, with require('uv')
providing TCP handles, and console output routed to the log.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file, .yaml or .toml (default: gojauv/config.{yaml,yml,toml} under the XDG config dirs)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, notice, warning, err, crit, alert, emerg or disabled")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: auto, json or console")
	flags.IntVar(&a.readBufferSize, "read-buffer-size", 0, "size of the buffers reads are made into")
	flags.IntVar(&a.backlog, "listen-backlog", 0, "listen backlog")
	flags.BoolVar(&a.noDelay, "no-delay", false, "disable Nagle's algorithm on connected handles")
	flags.BoolVar(&a.metrics, "metrics", false, "log event loop metrics on exit")

	cmd.AddCommand(a.newRunCmd(), a.newVersionCmd())
	return cmd
}

// setup loads the config, applies flag overrides, and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if flags.Changed("read-buffer-size") {
		cfg.ReadBufferSize = a.readBufferSize
	}
	if flags.Changed("listen-backlog") {
		cfg.ListenBacklog = a.backlog
	}
	if flags.Changed("no-delay") {
		cfg.NoDelay = a.noDelay
	}
	if flags.Changed("metrics") {
		cfg.Metrics = a.metrics
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	logger, err := newLogger(a.stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}
