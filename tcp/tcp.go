//go:build linux || darwin

package tcp

import (
	"net/netip"

	"github.com/eapache/queue"
	"github.com/joeycumines/goja-uv/eventloop"
	"github.com/joeycumines/logiface"
	"golang.org/x/sys/unix"
)

type (
	// AllocFunc returns the buffer the next read fills. It is called before
	// every read, with the configured read size as a hint.
	AllocFunc func(suggestedSize int) []byte

	// ReadFunc receives every buffer returned by AllocFunc exactly once.
	// nread > 0 is the number of bytes read, 0 means nothing was read,
	// EOF (with ErrEOF) means the peer closed its end, and any other
	// negative value is a negated errno, with err set.
	ReadFunc func(nread int, buf []byte, err error)

	// ConnectionFunc is called for each incoming connection on a listener,
	// which should be accepted with Accept before the callback returns.
	ConnectionFunc func(err error)

	// ConnectFunc is called once an outbound connection completes or fails.
	ConnectFunc func(err error)

	// CloseFunc is called once the handle has been closed.
	CloseFunc func()
)

type handleFlags uint16

const (
	flagBound handleFlags = 1 << iota
	flagListening
	flagConnecting
	flagConnected
	flagReading
	flagReadEOF
	flagClosing
	flagClosed
)

// TCP is a TCP socket handle.
type TCP struct {
	// Data is free for use by the owner of the handle.
	Data any

	loop   *eventloop.Loop
	logger *logiface.Logger[logiface.Event]

	onConnection ConnectionFunc
	alloc        AllocFunc
	onRead       ReadFunc
	onConnect    ConnectFunc

	// writes holds the pending *WriteReq values, in submission order
	writes *queue.Queue

	fd         int
	acceptedFD int
	family     int
	readSize   int

	watching eventloop.IOEvents
	flags    handleFlags
	noDelay  bool
	active   bool
}

// New allocates and initializes a handle on loop.
func New(loop *eventloop.Loop, opts ...Option) (*TCP, error) {
	t := &TCP{fd: -1, acceptedFD: -1}
	if err := t.Init(loop, opts...); err != nil {
		return nil, err
	}
	return t, nil
}

// Init (re-)initializes the handle. The handle must not have an open
// socket: it is either new, or its close callback has already run.
func (t *TCP) Init(loop *eventloop.Loop, opts ...Option) error {
	if loop == nil {
		return newError(unix.EINVAL)
	}
	if t.flags != 0 && t.flags&flagClosed == 0 {
		return newError(unix.EBUSY)
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return err
	}
	*t = TCP{
		Data:       t.Data,
		loop:       loop,
		logger:     cfg.logger,
		writes:     queue.New(),
		fd:         -1,
		acceptedFD: -1,
		readSize:   cfg.readSize,
		noDelay:    cfg.noDelay,
	}
	return nil
}

// Loop returns the loop the handle was initialized on.
func (t *TCP) Loop() *eventloop.Loop {
	return t.loop
}

// Bind binds the handle to a numeric IPv4 or IPv6 host and port.
// SO_REUSEADDR is always set.
func (t *TCP) Bind(host string, port int) error {
	if t.flags&flagClosing != 0 {
		return newError(unix.EINVAL)
	}
	sa, family, err := sockaddr(host, port)
	if err != nil {
		return err
	}
	if err := t.ensureSocket(family); err != nil {
		return err
	}
	if err := unix.SetsockoptInt(t.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return newError(err)
	}
	if err := unix.Bind(t.fd, sa); err != nil {
		return newError(err)
	}
	t.flags |= flagBound
	return nil
}

// Listen starts listening for incoming connections. An unbound handle is
// bound to an ephemeral IPv4 port.
func (t *TCP) Listen(backlog int, cb ConnectionFunc) error {
	switch {
	case cb == nil, t.flags&flagClosing != 0:
		return newError(unix.EINVAL)
	case t.flags&(flagConnected|flagConnecting) != 0:
		return newError(unix.EISCONN)
	}
	if err := t.ensureSocket(unix.AF_INET); err != nil {
		return err
	}
	if err := unix.Listen(t.fd, backlog); err != nil {
		return newError(err)
	}
	t.flags |= flagListening
	t.onConnection = cb
	return t.updateIO()
}

// Accept hands the connection announced by the current ConnectionFunc
// call over to client, which must be an unopened handle.
func (t *TCP) Accept(client *TCP) error {
	switch {
	case t.flags&flagListening == 0:
		return newError(unix.EINVAL)
	case t.acceptedFD < 0:
		return newError(unix.EAGAIN)
	case client == nil, client.loop == nil, client.flags&flagClosing != 0:
		return newError(unix.EINVAL)
	case client.fd >= 0:
		return newError(unix.EBUSY)
	}
	fd := t.acceptedFD
	t.acceptedFD = -1
	client.open(fd, t.family)
	return t.updateIO()
}

// Connect starts an outbound connection. Network failures, such as
// ECONNREFUSED, are delivered to cb rather than returned.
func (t *TCP) Connect(host string, port int, cb ConnectFunc) error {
	switch {
	case cb == nil, t.flags&(flagClosing|flagListening) != 0:
		return newError(unix.EINVAL)
	case t.flags&flagConnecting != 0:
		return newError(unix.EALREADY)
	case t.flags&flagConnected != 0:
		return newError(unix.EISCONN)
	}
	sa, family, err := sockaddr(host, port)
	if err != nil {
		return err
	}
	if err := t.ensureSocket(family); err != nil {
		return err
	}

	t.onConnect = cb
	t.flags |= flagConnecting
	err = unix.Connect(t.fd, sa)
	for err == unix.EINTR {
		err = unix.Connect(t.fd, sa)
	}
	switch err {
	case unix.EINPROGRESS:
		return t.updateIO()
	case nil:
		t.markConnected()
		t.finishConnect(nil)
	default:
		t.finishConnect(newError(err))
	}
	return nil
}

// ReadStart starts delivering reads from a connected handle.
func (t *TCP) ReadStart(alloc AllocFunc, cb ReadFunc) error {
	switch {
	case alloc == nil, cb == nil, t.flags&flagClosing != 0:
		return newError(unix.EINVAL)
	case t.flags&flagConnected == 0:
		return newError(unix.ENOTCONN)
	case t.flags&flagReading != 0:
		return newError(unix.EALREADY)
	}
	t.alloc = alloc
	t.onRead = cb
	t.flags |= flagReading
	return t.updateIO()
}

// ReadStop stops delivering reads. It is a no-op if not reading.
func (t *TCP) ReadStop() error {
	if t.flags&flagReading == 0 {
		return nil
	}
	t.flags &^= flagReading
	t.alloc = nil
	t.onRead = nil
	return t.updateIO()
}

// IsReading reports whether ReadStart is in effect.
func (t *TCP) IsReading() bool {
	return t.flags&flagReading != 0
}

// IsClosing reports whether Close has been called.
func (t *TCP) IsClosing() bool {
	return t.flags&flagClosing != 0
}

// Close closes the handle. Pending connect and write callbacks fire with
// ECANCELED, followed by cb, all from a later loop iteration. Closing
// twice is an error. On a terminated loop the socket is still released,
// but no callbacks fire and [eventloop.ErrLoopTerminated] is returned.
func (t *TCP) Close(cb CloseFunc) error {
	if t.loop == nil || t.flags&flagClosing != 0 {
		return newError(unix.EINVAL)
	}
	t.flags |= flagClosing
	t.flags &^= flagReading | flagListening

	if t.watching != 0 {
		_ = t.loop.UnregisterFD(t.fd)
		t.watching = 0
	}
	if t.acceptedFD >= 0 {
		_ = unix.Close(t.acceptedFD)
		t.acceptedFD = -1
	}
	if t.fd >= 0 {
		_ = unix.Close(t.fd)
		t.fd = -1
	}

	if t.flags&flagConnecting != 0 {
		t.finishConnect(newError(unix.ECANCELED))
	}
	t.failWrites(newError(unix.ECANCELED))
	t.updateActive()

	if t.loop.State() == eventloop.StateTerminated {
		// nothing will run the callback, the handle is released as is
		t.flags |= flagClosed
		return eventloop.ErrLoopTerminated
	}

	t.logger.Debug().Str(`op`, `close`).Log(`tcp handle closing`)

	t.deferCallback(func() {
		t.flags |= flagClosed
		if cb != nil {
			cb()
		}
	})
	return nil
}

// LocalAddr returns the address the socket is bound to.
func (t *TCP) LocalAddr() (netip.AddrPort, error) {
	if t.fd < 0 {
		return netip.AddrPort{}, newError(unix.EBADF)
	}
	sa, err := unix.Getsockname(t.fd)
	if err != nil {
		return netip.AddrPort{}, newError(err)
	}
	return addrPort(sa), nil
}

// RemoteAddr returns the address of the connected peer.
func (t *TCP) RemoteAddr() (netip.AddrPort, error) {
	if t.fd < 0 {
		return netip.AddrPort{}, newError(unix.EBADF)
	}
	sa, err := unix.Getpeername(t.fd)
	if err != nil {
		return netip.AddrPort{}, newError(err)
	}
	return addrPort(sa), nil
}

func (t *TCP) ensureSocket(family int) error {
	if t.fd >= 0 {
		if t.family != family {
			return newError(unix.EINVAL)
		}
		return nil
	}
	fd, err := newSocket(family)
	if err != nil {
		return newError(err)
	}
	t.fd = fd
	t.family = family
	return nil
}

// open adopts an accepted, already non-blocking socket.
func (t *TCP) open(fd, family int) {
	t.fd = fd
	t.family = family
	t.markConnected()
}

func (t *TCP) markConnected() {
	t.flags |= flagConnected
	if t.noDelay {
		_ = unix.SetsockoptInt(t.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	}
}

// onIO is the poller callback, run on the loop goroutine.
func (t *TCP) onIO(events eventloop.IOEvents) {
	if t.flags&flagClosing != 0 {
		return
	}

	if t.flags&flagListening != 0 {
		t.acceptReady()
	} else {
		writable := events&(eventloop.EventWrite|eventloop.EventError|eventloop.EventHangup) != 0
		if t.flags&flagConnecting != 0 && writable {
			t.connectReady()
		}
		if t.flags&flagReading != 0 && events&(eventloop.EventRead|eventloop.EventError|eventloop.EventHangup) != 0 {
			t.readReady()
		}
		if t.flags&flagClosing == 0 && t.flags&flagConnected != 0 && t.writes.Length() > 0 && writable {
			t.flushWrites()
		}
	}

	if t.flags&flagClosing == 0 {
		if err := t.updateIO(); err != nil {
			t.logger.Err().Err(err).Int(`fd`, t.fd).Log(`tcp poller update failed`)
		}
	}
}

// acceptReadyBudget caps the accepts per readiness event.
const acceptReadyBudget = 32

func (t *TCP) acceptReady() {
	for i := 0; i < acceptReadyBudget && t.acceptedFD < 0 && t.flags&flagListening != 0; i++ {
		fd, err := acceptSocket(t.fd)
		switch err {
		case nil:
		case unix.EAGAIN, unix.EINTR, unix.ECONNABORTED:
			return
		default:
			t.onConnection(newError(err))
			return
		}
		t.acceptedFD = fd
		t.onConnection(nil)
	}
}

func (t *TCP) connectReady() {
	errno, err := unix.GetsockoptInt(t.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	switch {
	case err != nil:
		t.finishConnect(newError(err))
	case errno == int(unix.EINPROGRESS):
		return
	case errno != 0:
		t.finishConnect(newError(unix.Errno(errno)))
	default:
		t.markConnected()
		t.finishConnect(nil)
	}
}

// finishConnect delivers the connect callback from a later iteration.
func (t *TCP) finishConnect(err error) {
	cb := t.onConnect
	t.onConnect = nil
	t.flags &^= flagConnecting
	if cb != nil {
		t.deferCallback(func() { cb(err) })
	}
	if err := t.updateIO(); err != nil {
		t.logger.Err().Err(err).Log(`tcp poller update failed`)
	}
}

func (t *TCP) readReady() {
	buf := t.alloc(t.readSize)
	cb := t.onRead
	if len(buf) == 0 {
		t.flags &^= flagReading
		err := newError(unix.ENOBUFS)
		cb(err.(*Error).Status(), buf, err)
		return
	}

	n, err := unix.Read(t.fd, buf)
	switch {
	case err == unix.EAGAIN, err == unix.EINTR:
		cb(0, buf, nil)
	case err != nil:
		t.flags &^= flagReading
		e := newError(err)
		status := -1
		if e, ok := e.(*Error); ok {
			status = e.Status()
		}
		cb(status, buf, e)
	case n == 0:
		t.flags &^= flagReading
		t.flags |= flagReadEOF
		cb(EOF, buf, ErrEOF)
	default:
		cb(n, buf, nil)
	}
}

// updateIO reconciles the poller registration and the loop reference
// with the current handle flags.
func (t *TCP) updateIO() error {
	var want eventloop.IOEvents
	if t.fd >= 0 && t.flags&flagClosing == 0 {
		if t.flags&flagListening != 0 && t.acceptedFD < 0 {
			want |= eventloop.EventRead
		}
		if t.flags&flagReading != 0 {
			want |= eventloop.EventRead
		}
		if t.flags&flagConnecting != 0 || (t.flags&flagConnected != 0 && t.writes.Length() > 0) {
			want |= eventloop.EventWrite
		}
	}

	var err error
	switch {
	case want == t.watching:
	case want == 0:
		err = t.loop.UnregisterFD(t.fd)
	case t.watching == 0:
		err = t.loop.RegisterFD(t.fd, want, t.onIO)
	default:
		err = t.loop.ModifyFD(t.fd, want)
	}
	if err != nil {
		err = newError(err)
	} else {
		t.watching = want
	}

	t.updateActive()
	return err
}

// updateActive holds a loop reference while the handle has work pending.
func (t *TCP) updateActive() {
	active := t.flags&flagClosing == 0 &&
		(t.flags&(flagListening|flagReading|flagConnecting) != 0 || t.writes.Length() > 0)
	if active == t.active {
		return
	}
	t.active = active
	if active {
		t.loop.Ref()
	} else {
		t.loop.Unref()
	}
}

// deferCallback runs fn on a later loop iteration. Callbacks deferred once
// the loop has terminated are dropped.
func (t *TCP) deferCallback(fn func()) {
	if err := t.loop.Submit(fn); err != nil {
		t.logger.Debug().Err(err).Log(`tcp callback dropped`)
	}
}
