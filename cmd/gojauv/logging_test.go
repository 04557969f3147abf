//go:build linux || darwin

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]logiface.Level{
		"disabled": logiface.LevelDisabled,
		"emerg":    logiface.LevelEmergency,
		"alert":    logiface.LevelAlert,
		"crit":     logiface.LevelCritical,
		"err":      logiface.LevelError,
		"ERROR":    logiface.LevelError,
		"warning":  logiface.LevelWarning,
		"warn":     logiface.LevelWarning,
		"notice":   logiface.LevelNotice,
		"Info":     logiface.LevelInformational,
		"debug":    logiface.LevelDebug,
		"trace":    logiface.LevelTrace,
	} {
		got, err := parseLevel(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	_, err := parseLevel("verbose")
	require.EqualError(t, err, `invalid log level "verbose"`)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "info", formatJSON)
	require.NoError(t, err)

	logger.Debug().Log(`hidden`)
	logger.Warning().Str(`op`, `read`).Log(`visible`)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	require.Equal(t, "warning", event["lvl"])
	require.Equal(t, "read", event["op"])
	require.Equal(t, "visible", event["msg"])
	require.Contains(t, event, "time")
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "debug", formatConsole)
	require.NoError(t, err)

	logger.Warning().Str(`op`, `read`).Log(`short read`)

	out := buf.String()
	require.NotContains(t, out, "{")
	require.Contains(t, out, "WRN")
	require.Contains(t, out, "short read")
	require.Contains(t, out, "op=read")
}

// A buffer is never a terminal.
func TestNewLogger_AutoFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "info", formatAuto)
	require.NoError(t, err)

	logger.Info().Log(`hello`)
	require.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())), buf.String())
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := newLogger(&bytes.Buffer{}, "info", "xml")
	require.EqualError(t, err, `invalid log format "xml"`)

	_, err = newLogger(&bytes.Buffer{}, "loud", formatJSON)
	require.Error(t, err)
}
