package bridge

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandle_WriteCopiesData(t *testing.T) {
	for _, size := range []int{0, 1, 70000} {
		t.Run("", func(t *testing.T) {
			tb := newTestBridge(t)
			h, s := tb.newHandle(t, "h")

			data := bytes.Repeat([]byte{'x'}, size)
			want := bytes.Clone(data)

			var done []call
			require.NoError(t, h.Write(data, recorder(&done)))
			require.Equal(t, 1, tb.Stats().PendingWrites)
			require.Equal(t, 1, tb.callbacks.Len())

			// the caller's buffer may be reused immediately
			for i := range data {
				data[i] = 'y'
			}

			require.Len(t, s.writes, 1)
			require.NotNil(t, s.writes[0].buf)
			require.Equal(t, want, s.writes[0].buf)

			s.writes[0].cb(nil)
			require.Len(t, done, 1)
			require.Equal(t, "h", done[0].obj.name)
			require.Empty(t, done[0].args)
			require.Equal(t, Stats{Handles: 1}, tb.Stats())
			require.Zero(t, tb.callbacks.Len())
			require.Empty(t, tb.errs)
		})
	}
}

func TestHandle_WriteFailureReachesCallback(t *testing.T) {
	tb := newTestBridge(t)
	h, s := tb.newHandle(t, "h")

	var done []call
	require.NoError(t, h.Write([]byte("data"), recorder(&done)))
	s.writes[0].cb(errReset)

	require.Len(t, done, 1)
	require.Len(t, done[0].args, 1)
	arg := done[0].args[0]
	require.Equal(t, ArgError, arg.Kind)
	require.EqualError(t, arg.Err, "write: connection reset by peer")
	require.ErrorIs(t, arg.Err, errReset)
	require.Equal(t, "ECONNRESET", Code(arg.Err))
	require.Zero(t, tb.Stats().PendingWrites)
}

func TestHandle_WriteRejectedSynchronously(t *testing.T) {
	tb := newTestBridge(t)
	h, s := tb.newHandle(t, "h")
	s.fail["write"] = errors.New("socket is not connected")

	err := h.Write([]byte("data"), recorder(nil))
	require.EqualError(t, err, "write: socket is not connected")
	require.Zero(t, tb.Stats().PendingWrites)
	require.Zero(t, tb.callbacks.Len())

	require.NoError(t, h.Close())
	require.ErrorIs(t, h.Write(nil, recorder(nil)), ErrHandleClosing)
}

func TestHandle_WriteCallbackMayWriteAgain(t *testing.T) {
	tb := newTestBridge(t)
	h, s := tb.newHandle(t, "h")

	var second []call
	first := &callback{fn: func(*object, []Arg) error {
		return h.Write([]byte("second"), recorder(&second))
	}}
	require.NoError(t, h.Write([]byte("first"), first))
	s.writes[0].cb(nil)
	require.Len(t, s.writes, 2)
	require.Equal(t, 1, tb.Stats().PendingWrites)

	s.writes[1].cb(nil)
	require.Len(t, second, 1)
	require.Zero(t, tb.Stats().PendingWrites)
	require.Empty(t, tb.errs)
}

func TestHandle_WriteCallbackError(t *testing.T) {
	tb := newTestBridge(t)
	h, s := tb.newHandle(t, "h")

	require.NoError(t, h.Write([]byte("x"), failing(errors.New("boom"))))
	s.writes[0].cb(nil)

	require.Len(t, tb.errs, 1)
	require.EqualError(t, tb.errs[0], "error running function 'on_write': boom")
	require.Zero(t, tb.Stats().PendingWrites)
}
