//go:build linux || darwin

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	formatAuto    = "auto"
	formatJSON    = "json"
	formatConsole = "console"
)

var levels = map[string]logiface.Level{
	"disabled": logiface.LevelDisabled,
	"emerg":    logiface.LevelEmergency,
	"alert":    logiface.LevelAlert,
	"crit":     logiface.LevelCritical,
	"err":      logiface.LevelError,
	"error":    logiface.LevelError,
	"warning":  logiface.LevelWarning,
	"warn":     logiface.LevelWarning,
	"notice":   logiface.LevelNotice,
	"info":     logiface.LevelInformational,
	"debug":    logiface.LevelDebug,
	"trace":    logiface.LevelTrace,
}

func parseLevel(s string) (logiface.Level, error) {
	if level, ok := levels[strings.ToLower(s)]; ok {
		return level, nil
	}
	return logiface.LevelDisabled, fmt.Errorf("invalid log level %q", s)
}

// newLogger builds a stumpy logger writing JSON lines to w, or human
// readable lines for the console format. The auto format picks console
// for terminals.
func newLogger(w io.Writer, level, format string) (*logiface.Logger[logiface.Event], error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	if format == formatAuto {
		format = formatJSON
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			format = formatConsole
		}
	}
	switch format {
	case formatJSON:
	case formatConsole:
		w = newConsoleWriter(w)
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(w),
			stumpy.WithTimeField(zerolog.TimestampFieldName),
		),
		stumpy.L.WithLevel(lvl),
	).Logger(), nil
}

// consoleLevels maps stumpy level names to their zerolog equivalents.
var consoleLevels = map[string]string{
	"emerg":   zerolog.LevelPanicValue,
	"alert":   zerolog.LevelFatalValue,
	"crit":    zerolog.LevelFatalValue,
	"err":     zerolog.LevelErrorValue,
	"warning": zerolog.LevelWarnValue,
	"notice":  zerolog.LevelInfoValue,
}

var consoleFields = map[string]string{
	`msg`: zerolog.MessageFieldName,
	`err`: zerolog.ErrorFieldName,
}

// newConsoleWriter reformats stumpy's JSON lines with zerolog's console
// writer.
func newConsoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "15:04:05.000",
		FormatPrepare: func(event map[string]any) error {
			if v, ok := event[`lvl`]; ok {
				delete(event, `lvl`)
				if s, ok := v.(string); ok {
					if mapped, ok := consoleLevels[s]; ok {
						v = mapped
					}
				}
				event[zerolog.LevelFieldName] = v
			}
			for from, to := range consoleFields {
				if v, ok := event[from]; ok {
					delete(event, from)
					event[to] = v
				}
			}
			return nil
		},
	}
}
