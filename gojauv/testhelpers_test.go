//go:build linux || darwin

package gojauv

import (
	"context"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/goja-uv/bridge"
	"github.com/joeycumines/goja-uv/eventloop"
	"github.com/stretchr/testify/require"
)

// uvTestEnv is a runtime with the module exported as the global uv.
type uvTestEnv struct {
	loop    *eventloop.Loop
	runtime *goja.Runtime
	module  *Module
}

func newUVTestEnv(t *testing.T, opts ...Option) *uvTestEnv {
	t.Helper()

	loop, err := eventloop.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = loop.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	runtime := goja.New()
	module, err := New(runtime, append([]Option{WithLoop(loop), WithContext(ctx)}, opts...)...)
	require.NoError(t, err)

	exports := runtime.NewObject()
	module.setupExports(exports)
	require.NoError(t, runtime.Set("uv", exports))

	return &uvTestEnv{loop: loop, runtime: runtime, module: module}
}

// run evaluates src, failing the test on error.
func (env *uvTestEnv) run(t *testing.T, src string) goja.Value {
	t.Helper()
	v, err := env.runtime.RunString(src)
	require.NoError(t, err)
	return v
}

// requireIdle asserts that every handle, write and buffer was released.
func (env *uvTestEnv) requireIdle(t *testing.T) {
	t.Helper()
	require.Equal(t, bridge.Stats{}, env.module.Stats())
}

// strings evaluates src to a string slice.
func (env *uvTestEnv) strings(t *testing.T, src string) []string {
	t.Helper()
	var out []string
	require.NoError(t, env.runtime.ExportTo(env.run(t, src), &out))
	return out
}
