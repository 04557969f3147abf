//go:build linux || darwin

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args, returning stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	isolateConfigHome(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func TestRun_Echo(t *testing.T) {
	_, stderr, err := execute(t, "--log-format=json", "run", "testdata/echo.js")
	require.NoError(t, err, stderr)
	require.Contains(t, stderr, `"msg":"echoed ping"`)
	require.Contains(t, stderr, `"source":"console"`)
	require.NotContains(t, stderr, `loop metrics`)
}

func TestRun_Metrics(t *testing.T) {
	_, stderr, err := execute(t, "--log-format=json", "--metrics", "run", "testdata/echo.js")
	require.NoError(t, err, stderr)
	require.Contains(t, stderr, `"msg":"loop metrics"`)
	require.Contains(t, stderr, `"ticks":`)
}

func TestRun_ConfigFile(t *testing.T) {
	config := writeFile(t, filepath.Join(t.TempDir(), "config.yaml"), "log_level: err\nlog_format: json\n")

	_, stderr, err := execute(t, "--config", config, "run", "testdata/echo.js")
	require.NoError(t, err)
	require.NotContains(t, stderr, "echoed ping")
}

func TestRun_ScriptError(t *testing.T) {
	script := writeFile(t, filepath.Join(t.TempDir(), "bad.js"), "throw new Error('bad script');\n")

	_, _, err := execute(t, "--log-format=json", "run", script)
	var exception *goja.Exception
	require.ErrorAs(t, err, &exception)
	require.ErrorContains(t, err, "bad script")
}

// Handles left open by the script are drained after it returns.
func TestRun_DrainsAfterScript(t *testing.T) {
	script := writeFile(t, filepath.Join(t.TempDir(), "drain.js"), `
const uv = require('uv');
const server = uv.new_tcp();
uv.tcp_bind(server, '127.0.0.1', 0);
uv.listen(server, function () {
	const conn = uv.new_tcp();
	uv.accept(server, conn);
	uv.close(conn);
});
const client = uv.new_tcp();
uv.tcp_connect(client, '127.0.0.1', uv.tcp_getsockname(server).port, function (status) {
	console.warn('connected ' + status);
	uv.close(client);
	uv.close(server);
});
`)

	_, stderr, err := execute(t, "--log-format=json", "run", script)
	require.NoError(t, err, stderr)
	require.Contains(t, stderr, `"lvl":"warning"`)
	require.Contains(t, stderr, `"msg":"connected 0"`)
}

func TestRun_Errors(t *testing.T) {
	_, _, err := execute(t, "run")
	require.Error(t, err)

	_, _, err = execute(t, "run", filepath.Join(t.TempDir(), "missing.js"))
	require.Error(t, err)

	_, _, err = execute(t, "--log-level=loud", "run", "testdata/echo.js")
	require.EqualError(t, err, `invalid log level "loud"`)

	_, _, err = execute(t, "--read-buffer-size=0", "run", "testdata/echo.js")
	require.EqualError(t, err, "invalid read buffer size 0")
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	require.Regexp(t, `^gojauv \S+ \(uv 0\.1\)\n$`, stdout)
}
