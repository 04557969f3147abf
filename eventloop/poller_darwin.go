//go:build darwin

package eventloop

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// FastPoller manages I/O event registration using kqueue.
type FastPoller struct {
	eventBuf [256]unix.Kevent_t
	table    fdTable
	kq       int
	closed   atomic.Bool
}

// Init initializes the kqueue instance.
func (p *FastPoller) Init() error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = kq
	return nil
}

// Close closes the kqueue instance. It is idempotent.
func (p *FastPoller) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return unix.Close(p.kq)
}

// RegisterFD registers a file descriptor for I/O event monitoring.
func (p *FastPoller) RegisterFD(fd int, events IOEvents, cb IOCallback) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	if err := p.table.add(fd, events, cb); err != nil {
		return err
	}
	if changes := eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE); len(changes) > 0 {
		if _, err := unix.Kevent(p.kq, changes, nil, nil); err != nil {
			p.table.rollback(fd)
			return err
		}
	}
	return nil
}

// UnregisterFD removes a file descriptor from monitoring. It must be called
// before the fd is closed.
func (p *FastPoller) UnregisterFD(fd int) error {
	info, err := p.table.remove(fd)
	if err != nil {
		return err
	}
	if changes := eventsToKevents(fd, info.events, unix.EV_DELETE); len(changes) > 0 {
		_, _ = unix.Kevent(p.kq, changes, nil, nil)
	}
	return nil
}

// ModifyFD updates the events being monitored for a file descriptor.
func (p *FastPoller) ModifyFD(fd int, events IOEvents) error {
	old, err := p.table.modify(fd, events)
	if err != nil {
		return err
	}
	if removed := eventsToKevents(fd, old&^events, unix.EV_DELETE); len(removed) > 0 {
		_, _ = unix.Kevent(p.kq, removed, nil, nil)
	}
	if added := eventsToKevents(fd, events&^old, unix.EV_ADD|unix.EV_ENABLE); len(added) > 0 {
		if _, err := unix.Kevent(p.kq, added, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// PollIO waits up to timeoutMs (-1 blocks indefinitely) and dispatches
// ready callbacks inline. Returns the number of events received.
func (p *FastPoller) PollIO(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrPollerClosed
	}
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}
	n, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		info := p.table.get(int(p.eventBuf[i].Ident))
		if info.active && info.callback != nil {
			info.callback(keventToEvents(&p.eventBuf[i]))
		}
	}
	return n, nil
}

func eventsToKevents(fd int, events IOEvents, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&EventRead != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&EventWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return kevents
}

func keventToEvents(kev *unix.Kevent_t) IOEvents {
	var events IOEvents
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= EventRead
	case unix.EVFILT_WRITE:
		events |= EventWrite
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= EventError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		events |= EventHangup
	}
	return events
}
