//go:build linux || darwin

package gojauv

import (
	"runtime"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/goja-uv/eventloop"
	"github.com/stretchr/testify/require"
)

func TestNew_OwnedLoopClosedWithRuntime(t *testing.T) {
	loop := func() *eventloop.Loop {
		m, err := New(goja.New())
		require.NoError(t, err)
		return m.Loop()
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		return loop.State() == eventloop.StateTerminated
	}, 5*time.Second, 10*time.Millisecond)
}

func TestNew_ProvidedLoopOutlivesRuntime(t *testing.T) {
	loop, err := eventloop.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = loop.Close() })

	func() {
		_, err := New(goja.New(), WithLoop(loop))
		require.NoError(t, err)
	}()

	for range 3 {
		runtime.GC()
	}
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, eventloop.StateAwake, loop.State())
}
