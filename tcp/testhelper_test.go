//go:build linux || darwin

package tcp

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/joeycumines/goja-uv/eventloop"
)

func newTestLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	loop, err := eventloop.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = loop.Close() })
	return loop
}

// runLoop runs loop until idle, failing the test on timeout.
func runLoop(t *testing.T, loop *eventloop.Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := loop.Run(ctx); err != nil {
		t.Fatalf("loop run failed: %v", err)
	}
}

func heapAlloc(size int) []byte {
	return make([]byte, size)
}

// newListener returns a handle listening on an ephemeral loopback port.
func newListener(t *testing.T, loop *eventloop.Loop, cb ConnectionFunc) (*TCP, netip.AddrPort) {
	t.Helper()
	server, err := New(loop)
	if err != nil {
		t.Fatal(err)
	}
	if err := server.Bind("127.0.0.1", 0); err != nil {
		t.Fatal(err)
	}
	if err := server.Listen(128, cb); err != nil {
		t.Fatal(err)
	}
	addr, err := server.LocalAddr()
	if err != nil {
		t.Fatal(err)
	}
	return server, addr
}
