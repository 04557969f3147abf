package bridge

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

func TestDispatch_ReadDeliversCopies(t *testing.T) {
	tb := newTestBridge(t)
	h, s := tb.newHandle(t, "h")

	var reads []call
	require.NoError(t, h.SetHandler(EventRead, recorder(&reads)))
	require.NoError(t, h.ReadStart())

	buf := s.alloc(16)
	require.Equal(t, 1, tb.Stats().ReadBuffers)
	copy(buf, "hello")
	s.readCB(5, buf, nil)
	require.Zero(t, tb.Stats().ReadBuffers)

	// the host's data is independent of the recycled buffer
	next := s.alloc(16)
	copy(next, "XXXXX")
	s.readCB(0, next, nil)

	if diff := cmp.Diff([][]Arg{
		{BytesArg([]byte("hello")), IntArg(5)},
		{BytesArg([]byte{}), IntArg(0)},
	}, [][]Arg{reads[0].args, reads[1].args}); diff != "" {
		t.Errorf("unexpected read args (-want +got):\n%s", diff)
	}
	require.Equal(t, StateReading, h.State())
	require.Zero(t, tb.Stats().ReadBuffers)
}

func TestDispatch_EndStopsReading(t *testing.T) {
	tb := newTestBridge(t)
	h, s := tb.newHandle(t, "h")

	var ends []call
	require.NoError(t, h.SetHandler(EventEnd, recorder(&ends)))
	require.NoError(t, h.ReadStart())
	s.readErr(errEOF)

	require.Len(t, ends, 1)
	require.Empty(t, ends[0].args)
	require.Equal(t, StateConnected, h.State())
	require.Zero(t, tb.Stats().ReadBuffers)
	require.Empty(t, tb.errs)
}

func TestDispatch_ReadErrorIsReported(t *testing.T) {
	tb := newTestBridge(t)
	h, s := tb.newHandle(t, "h")

	var reads, ends []call
	require.NoError(t, h.SetHandler(EventRead, recorder(&reads)))
	require.NoError(t, h.SetHandler(EventEnd, recorder(&ends)))
	require.NoError(t, h.ReadStart())
	s.readErr(errReset)

	require.Empty(t, reads)
	require.Empty(t, ends)
	require.Len(t, tb.errs, 1)
	require.EqualError(t, tb.errs[0], "read: connection reset by peer")
	var e *Error
	require.ErrorAs(t, tb.errs[0], &e)
	require.Equal(t, KindStream, e.Kind)
	require.Equal(t, StateConnected, h.State())
	require.Zero(t, tb.Stats().ReadBuffers)
}

func TestDispatch_CallbackErrorNamesEvent(t *testing.T) {
	tb := newTestBridge(t)
	h, s := tb.newHandle(t, "h")

	boom := errors.New("boom")
	require.NoError(t, h.SetHandler(EventRead, failing(boom)))
	require.NoError(t, h.ReadStart())
	s.read("x")

	require.Len(t, tb.errs, 1)
	require.EqualError(t, tb.errs[0], "error running function 'on_read': boom")
	require.ErrorIs(t, tb.errs[0], boom)
	require.Zero(t, tb.Stats().ReadBuffers)

	// the handle keeps working after an exception
	var reads []call
	require.NoError(t, h.SetHandler(EventRead, recorder(&reads)))
	s.read("y")
	require.Len(t, reads, 1)
	require.Len(t, tb.errs, 1)
}

func TestDispatch_HostPanicIsContained(t *testing.T) {
	tb := newTestBridge(t)
	h, s := tb.newHandle(t, "h")

	require.NoError(t, h.Listen(&callback{fn: func(*object, []Arg) error {
		panic("kaboom")
	}}))
	s.listenCB(nil)

	require.Len(t, tb.errs, 1)
	require.EqualError(t, tb.errs[0], "error running function 'on_connection': panic: kaboom")
	var p *HostPanicError
	require.ErrorAs(t, tb.errs[0], &p)
	require.Equal(t, "kaboom", p.Value)
	require.NotEmpty(t, p.Stack)
	require.LessOrEqual(t, len(p.Stack), maxPanicStack)
	require.Zero(t, tb.Stats().StackDepth)
}

func TestDispatch_StackBalancedOnEveryPath(t *testing.T) {
	tb := newTestBridge(t)
	h, s := tb.newHandle(t, "h")
	boom := failing(errors.New("boom"))

	for _, event := range []string{EventConnection, EventConnect, EventRead, EventEnd, EventClosed} {
		require.NoError(t, h.SetHandler(event, boom))
	}
	require.NoError(t, h.Listen(boom))
	require.NoError(t, h.Connect("127.0.0.1", 1, boom))
	require.NoError(t, h.ReadStart())
	require.NoError(t, h.Write([]byte("x"), boom))

	for _, fire := range []func(){
		func() { s.listenCB(nil) },
		func() { s.connectCB(errRefused) },
		func() { s.read("x") },
		func() { s.readErr(errReset) },
		func() { s.readErr(errEOF) },
		func() { s.writes[0].cb(errReset) },
	} {
		fire()
		require.Zero(t, tb.Stats().StackDepth)
	}

	require.NoError(t, h.Close())
	s.closeCB()
	require.Equal(t, Stats{}, tb.Stats())
	// six callbacks raised, plus the read error
	require.Len(t, tb.errs, 7)
}

func TestDispatch_UnbalancedStackPanics(t *testing.T) {
	var s stack[int]
	s.pushObject(1)
	require.PanicsWithError(t, "bridge: unbalanced stack after read dispatch: depth 1, want 0", func() {
		s.expect(0, EventRead)
	})
	func() {
		defer func() {
			require.Implements(t, (*interface{ FatalPanic() })(nil), recover())
		}()
		s.expect(0, EventClosed)
	}()
	require.Panics(t, func() { s.pop(2) })
	s.pushArg(IntArg(1))
	require.Panics(t, func() { s.object(1) })
}

func TestBridge_ErrorLogIsRateLimited(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelDebug),
	).Logger()
	tb := newTestBridge(t,
		WithLogger(logger),
		WithErrorLogRates(map[time.Duration]int{time.Hour: 2}),
	)
	h, s := tb.newHandle(t, "h")
	require.NoError(t, h.SetHandler(EventRead, failing(errors.New("boom"))))
	require.NoError(t, h.ReadStart())

	for i := 0; i < 5; i++ {
		s.read("x")
	}

	// every error reaches the handler, only the first two are logged
	require.Len(t, tb.errs, 5)
	require.Equal(t, 2, bytes.Count(buf.Bytes(), []byte(`dispatch failed`)))
	require.Contains(t, buf.String(), `"event":"read"`)
	require.Contains(t, buf.String(), `on_read`)
}
