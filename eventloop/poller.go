//go:build linux || darwin

package eventloop

import (
	"errors"
	"sync"
)

// IOEvents represents the type of I/O events to monitor.
type IOEvents uint32

const (
	// EventRead indicates the file descriptor is ready for reading.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates the file descriptor is ready for writing.
	EventWrite
	// EventError indicates an error condition on the file descriptor.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)

// initialFDs is the initial size of the direct-indexed fd table.
const initialFDs = 1024

// maxFDLimit is the maximum FD value supported by the fd table.
const maxFDLimit = 100000000

var (
	ErrFDOutOfRange        = errors.New("eventloop: fd out of range (max 100000000)")
	ErrFDAlreadyRegistered = errors.New("eventloop: fd already registered")
	ErrFDNotRegistered     = errors.New("eventloop: fd not registered")
	ErrPollerClosed        = errors.New("eventloop: poller closed")
)

// IOCallback is the callback type for I/O events.
type IOCallback func(IOEvents)

type fdInfo struct {
	callback IOCallback
	events   IOEvents
	active   bool
}

// fdTable is a direct-indexed, growable table of per-fd registrations.
//
// UnregisterFD does not cancel an event already copied out for dispatch in
// the current poll batch, callbacks must tolerate spurious readiness.
type fdTable struct {
	mu  sync.RWMutex
	fds []fdInfo
}

func (t *fdTable) add(fd int, events IOEvents, cb IOCallback) error {
	if fd < 0 || fd >= maxFDLimit {
		return ErrFDOutOfRange
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd >= len(t.fds) {
		size := max(fd*2+1, initialFDs)
		if size > maxFDLimit {
			size = maxFDLimit
		}
		grown := make([]fdInfo, size)
		copy(grown, t.fds)
		t.fds = grown
	}
	if t.fds[fd].active {
		return ErrFDAlreadyRegistered
	}
	t.fds[fd] = fdInfo{callback: cb, events: events, active: true}
	return nil
}

// modify returns the previously registered events.
func (t *fdTable) modify(fd int, events IOEvents) (IOEvents, error) {
	if fd < 0 {
		return 0, ErrFDOutOfRange
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd >= len(t.fds) || !t.fds[fd].active {
		return 0, ErrFDNotRegistered
	}
	old := t.fds[fd].events
	t.fds[fd].events = events
	return old, nil
}

// remove returns the removed registration.
func (t *fdTable) remove(fd int) (fdInfo, error) {
	if fd < 0 {
		return fdInfo{}, ErrFDOutOfRange
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd >= len(t.fds) || !t.fds[fd].active {
		return fdInfo{}, ErrFDNotRegistered
	}
	info := t.fds[fd]
	t.fds[fd] = fdInfo{}
	return info, nil
}

func (t *fdTable) get(fd int) fdInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if fd < 0 || fd >= len(t.fds) {
		return fdInfo{}
	}
	return t.fds[fd]
}

func (t *fdTable) rollback(fd int) {
	t.mu.Lock()
	t.fds[fd] = fdInfo{}
	t.mu.Unlock()
}
