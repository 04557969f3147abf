//go:build linux || darwin

package gojauv

import (
	"context"
	"net/netip"
	"runtime"

	"github.com/dop251/goja"
	"github.com/joeycumines/goja-uv/bridge"
	"github.com/joeycumines/goja-uv/eventloop"
	"github.com/joeycumines/goja-uv/tcp"
)

// tcpEngine implements [bridge.Engine] with [tcp] handles on a loop.
type tcpEngine struct {
	loop     *eventloop.Loop
	opts     []tcp.Option
	ownsLoop bool
}

func (e *tcpEngine) NewStream() (bridge.Stream, error) {
	t, err := tcp.New(e.loop, e.opts...)
	if err != nil {
		return nil, err
	}
	s := &tcpStream{engine: e, tcp: t}
	t.Data = s
	return s, nil
}

func (e *tcpEngine) Run(ctx context.Context) error {
	return e.loop.Run(ctx)
}

func (e *tcpEngine) Close() error {
	if !e.ownsLoop {
		return nil
	}
	return e.loop.Close()
}

// closeWithRuntime closes loop once rt is unreachable. Active handles keep
// rt reachable through the loop's fd callbacks.
func closeWithRuntime(rt *goja.Runtime, loop *eventloop.Loop) {
	runtime.AddCleanup(rt, func(loop *eventloop.Loop) { _ = loop.Close() }, loop)
}

// tcpStream implements [bridge.Stream].
type tcpStream struct {
	engine *tcpEngine
	tcp    *tcp.TCP
}

func (s *tcpStream) Init() error {
	return s.tcp.Init(s.engine.loop, s.engine.opts...)
}

func (s *tcpStream) Bind(host string, port int) error {
	return s.tcp.Bind(host, port)
}

func (s *tcpStream) Listen(backlog int, cb func(err error)) error {
	return s.tcp.Listen(backlog, tcp.ConnectionFunc(cb))
}

func (s *tcpStream) Accept(client bridge.Stream) error {
	c, ok := client.(*tcpStream)
	if !ok || c.engine != s.engine {
		return bridge.ErrInvalidHandle
	}
	return s.tcp.Accept(c.tcp)
}

func (s *tcpStream) Connect(host string, port int, cb func(err error)) error {
	return s.tcp.Connect(host, port, tcp.ConnectFunc(cb))
}

func (s *tcpStream) ReadStart(alloc func(size int) []byte, cb func(nread int, buf []byte, err error)) error {
	return s.tcp.ReadStart(tcp.AllocFunc(alloc), tcp.ReadFunc(cb))
}

func (s *tcpStream) ReadStop() error {
	return s.tcp.ReadStop()
}

func (s *tcpStream) Write(buf []byte, cb func(err error)) error {
	return s.tcp.Write(new(tcp.WriteReq), buf, func(_ *tcp.WriteReq, err error) {
		cb(err)
	})
}

func (s *tcpStream) Close(cb func()) error {
	return s.tcp.Close(tcp.CloseFunc(cb))
}

func (s *tcpStream) LocalAddr() (netip.AddrPort, error) {
	return s.tcp.LocalAddr()
}
