package bridge

import (
	"context"
	"io"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

// object is the host object type used by the tests.
type object struct {
	name string
}

// callback is the host callback type used by the tests.
type callback struct {
	fn func(obj *object, args []Arg) error
}

type call struct {
	obj  *object
	args []Arg
}

// recorder returns a callback appending its invocations to calls.
func recorder(calls *[]call) *callback {
	return &callback{fn: func(obj *object, args []Arg) error {
		*calls = append(*calls, call{obj: obj, args: args})
		return nil
	}}
}

func failing(err error) *callback {
	return &callback{fn: func(*object, []Arg) error { return err }}
}

var testHost = HostFunc[*object, *callback](func(fn *callback, obj *object, args []Arg) error {
	return fn.fn(obj, args)
})

// statusError mimics an engine error carrying a code and status.
type statusError struct {
	code   string
	msg    string
	status int
}

func (e *statusError) Error() string { return e.msg }
func (e *statusError) Code() string  { return e.code }
func (e *statusError) Status() int   { return e.status }

var (
	errReset   = &statusError{code: "ECONNRESET", msg: "connection reset by peer", status: -104}
	errRefused = &statusError{code: "ECONNREFUSED", msg: "connection refused", status: -111}
	errEOF     = &eofError{}
)

type eofError struct{}

func (*eofError) Error() string        { return "end of file" }
func (*eofError) Is(target error) bool { return target == io.EOF }

type fakeEngine struct {
	streams []*fakeStream
	newErr  error
	closed  bool
}

func (e *fakeEngine) NewStream() (Stream, error) {
	if e.newErr != nil {
		return nil, e.newErr
	}
	s := &fakeStream{engine: e, fail: make(map[string]error)}
	e.streams = append(e.streams, s)
	return s, nil
}

func (e *fakeEngine) Run(ctx context.Context) error {
	return ctx.Err()
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

type fakeWrite struct {
	buf []byte
	cb  func(error)
}

// fakeStream records what the bridge asks of it, leaving the test to fire
// the callbacks.
type fakeStream struct {
	engine    *fakeEngine
	fail      map[string]error
	listenCB  func(error)
	connectCB func(error)
	alloc     func(int) []byte
	readCB    func(int, []byte, error)
	closeCB   func()
	accepted  []Stream
	writes    []fakeWrite
	backlog   int
	bound     netip.AddrPort
	reading   bool
	closes    int
	// closeInline completes Close before returning
	closeInline bool
}

func (s *fakeStream) Init() error { return s.fail["init"] }

func (s *fakeStream) Bind(host string, port int) error {
	if err := s.fail["bind"]; err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	s.bound = netip.AddrPortFrom(addr, uint16(port))
	return nil
}

func (s *fakeStream) Listen(backlog int, cb func(error)) error {
	if err := s.fail["listen"]; err != nil {
		return err
	}
	s.backlog = backlog
	s.listenCB = cb
	return nil
}

func (s *fakeStream) Accept(client Stream) error {
	if err := s.fail["accept"]; err != nil {
		return err
	}
	s.accepted = append(s.accepted, client)
	return nil
}

func (s *fakeStream) Connect(_ string, _ int, cb func(error)) error {
	if err := s.fail["connect"]; err != nil {
		return err
	}
	s.connectCB = cb
	return nil
}

func (s *fakeStream) ReadStart(alloc func(int) []byte, cb func(int, []byte, error)) error {
	if err := s.fail["read_start"]; err != nil {
		return err
	}
	s.alloc = alloc
	s.readCB = cb
	s.reading = true
	return nil
}

func (s *fakeStream) ReadStop() error {
	s.reading = false
	return nil
}

func (s *fakeStream) Write(buf []byte, cb func(error)) error {
	if err := s.fail["write"]; err != nil {
		return err
	}
	s.writes = append(s.writes, fakeWrite{buf: buf, cb: cb})
	return nil
}

func (s *fakeStream) Close(cb func()) error {
	if err := s.fail["close"]; err != nil {
		return err
	}
	s.closes++
	s.closeCB = cb
	if s.closeInline {
		cb()
	}
	return nil
}

func (s *fakeStream) LocalAddr() (netip.AddrPort, error) {
	return s.bound, s.fail["getsockname"]
}

// read simulates a read completion of data.
func (s *fakeStream) read(data string) {
	buf := s.alloc(64)
	n := copy(buf, data)
	s.readCB(n, buf, nil)
}

// readErr simulates a failed read.
func (s *fakeStream) readErr(err error) {
	buf := s.alloc(64)
	s.readCB(Status(err), buf, err)
}

type testBridge struct {
	*Bridge[*object, *callback]
	engine *fakeEngine
	errs   []error
}

func newTestBridge(t *testing.T, opts ...Option) *testBridge {
	t.Helper()
	tb := &testBridge{engine: &fakeEngine{}}
	opts = append([]Option{WithErrorHandler(func(err error) { tb.errs = append(tb.errs, err) })}, opts...)
	b, err := New[*object, *callback](tb.engine, testHost, opts...)
	require.NoError(t, err)
	tb.Bridge = b
	t.Cleanup(func() {
		require.Zero(t, b.Stats().StackDepth, "stack not balanced")
	})
	return tb
}

func (tb *testBridge) newHandle(t *testing.T, name string) (*Handle[*object, *callback], *fakeStream) {
	t.Helper()
	h, err := tb.NewHandle(func(*Handle[*object, *callback]) *object { return &object{name: name} })
	require.NoError(t, err)
	return h, tb.engine.streams[len(tb.engine.streams)-1]
}
