//go:build linux || darwin

package eventloop

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// Loop is a single-threaded event loop driving I/O readiness callbacks and
// submitted tasks.
//
// Run returns once no referenced handles and no queued tasks remain, which
// leaves the loop in StateAwake, ready to run again. Shutdown and Close
// terminate it permanently.
type Loop struct {
	// Prevent copying
	_ [0]func()

	logger  *logiface.Logger[logiface.Event]
	metrics *metricsRecorder

	state *FastState

	// tasks is guarded by mu
	tasks *ChunkedIngress
	mu    sync.Mutex

	// runDone is closed when the active Run call returns, guarded by mu
	runDone chan struct{}

	poller FastPoller

	wakeFD      int
	wakeWriteFD int
	wakeBuf     [8]byte
	wakePending atomic.Uint32

	// refs counts referenced handles, see Ref
	refs atomic.Int64

	loopGoroutineID atomic.Uint64
	tickCount       atomic.Uint64

	id uint64

	closeOnce sync.Once
}

var loopIDCounter atomic.Uint64

// New creates a new event loop.
func New(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	wakeFD, wakeWriteFD, err := newWakeFD()
	if err != nil {
		return nil, err
	}

	loop := &Loop{
		id:          loopIDCounter.Add(1),
		logger:      cfg.logger,
		state:       NewFastState(),
		tasks:       NewChunkedIngress(),
		wakeFD:      wakeFD,
		wakeWriteFD: wakeWriteFD,
	}
	if cfg.metricsEnabled {
		loop.metrics = newMetricsRecorder()
	}

	if err := loop.poller.Init(); err != nil {
		closeWakeFDs(wakeFD, wakeWriteFD)
		return nil, err
	}

	// the wake fd is never referenced, it must not keep Run alive
	if err := loop.poller.RegisterFD(wakeFD, EventRead, func(IOEvents) {
		drainWake(loop.wakeFD, loop.wakeBuf[:])
		loop.wakePending.Store(0)
	}); err != nil {
		_ = loop.poller.Close()
		closeWakeFDs(wakeFD, wakeWriteFD)
		return nil, err
	}

	return loop, nil
}

// ID returns the process-unique identifier of the loop.
func (l *Loop) ID() uint64 {
	return l.id
}

// Run runs the event loop on the calling goroutine, and blocks until there
// is nothing left to do, ctx is cancelled, or the loop is terminated.
//
// Returns nil once idle, ctx.Err() on cancellation, or nil after Shutdown.
// A [FatalPanic] terminates the loop and is re-raised by Run.
func (l *Loop) Run(ctx context.Context) error {
	if l.isLoopThread() {
		return ErrReentrantRun
	}

	done := make(chan struct{})
	l.mu.Lock()
	if !l.state.TryTransition(StateAwake, StateRunning) {
		l.mu.Unlock()
		if l.state.IsClosing() {
			return ErrLoopTerminated
		}
		return ErrLoopAlreadyRunning
	}
	l.runDone = done
	l.mu.Unlock()
	defer close(done)

	defer func() {
		if r := recover(); r != nil {
			l.state.Store(StateTerminated)
			l.closeFDs()
			panic(r)
		}
	}()

	return l.run(ctx)
}

func (l *Loop) run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.loopGoroutineID.Store(getGoroutineID())
	defer l.loopGoroutineID.Store(0)

	// wake the poll on cancellation
	ctxDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			l.wake()
		case <-ctxDone:
		}
	}()
	defer close(ctxDone)

	l.logDebug(`loop running`)

	for {
		if l.state.IsClosing() {
			l.shutdown()
			return nil
		}

		if err := ctx.Err(); err != nil {
			if l.state.TryTransition(StateRunning, StateAwake) {
				return err
			}
			continue
		}

		if !l.Alive() {
			if l.state.TryTransition(StateRunning, StateAwake) {
				l.logDebug(`loop idle`)
				return nil
			}
			continue
		}

		l.tick()
	}
}

// tick is a single iteration of the event loop: queued tasks, then I/O.
func (l *Loop) tick() {
	l.tickCount.Add(1)
	l.runTasks()
	l.poll()
}

// runTasks runs the tasks queued at the start of the tick. Tasks submitted
// by those tasks run on the next tick, after a non-blocking poll.
func (l *Loop) runTasks() {
	l.mu.Lock()
	n := l.tasks.Length()
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.recordQueue(n)
	}

	for i := 0; i < n; i++ {
		l.mu.Lock()
		task, ok := l.tasks.Pop()
		l.mu.Unlock()
		if !ok {
			return
		}
		l.safeExecute(task)
	}
}

// poll blocks for I/O while there are referenced handles and no tasks.
func (l *Loop) poll() {
	timeout := -1
	if l.pendingTasks() > 0 {
		timeout = 0
	} else if l.refs.Load() <= 0 {
		return
	}

	if timeout != 0 {
		if !l.state.TryTransition(StateRunning, StateSleeping) {
			return
		}
		// re-check after publishing StateSleeping, Submit wakes us otherwise
		if l.pendingTasks() > 0 || l.state.Load() != StateSleeping {
			timeout = 0
		}
	}

	_, err := l.poller.PollIO(timeout)
	l.state.TryTransition(StateSleeping, StateRunning)
	if err != nil {
		l.logCritical(`poll failed, terminating loop`, err)
		l.state.TryTransition(StateRunning, StateTerminating)
	}
}

func (l *Loop) pendingTasks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tasks.Length()
}

// shutdown drains the remaining tasks, then releases the loop's fds.
func (l *Loop) shutdown() {
	for {
		l.mu.Lock()
		task, ok := l.tasks.Pop()
		if !ok {
			l.state.Store(StateTerminated)
			l.mu.Unlock()
			break
		}
		l.mu.Unlock()
		l.safeExecute(task)
	}
	l.closeFDs()
	l.logDebug(`loop terminated`)
}

// Shutdown terminates the loop gracefully: queued tasks still run, then
// any active Run returns. Blocks until termination completes or ctx expires.
func (l *Loop) Shutdown(ctx context.Context) error {
	done, err := l.terminate()
	if err != nil || done == nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close terminates the loop without waiting. Tasks queued at the time are
// still run by an active Run before it returns.
func (l *Loop) Close() error {
	_, err := l.terminate()
	return err
}

// terminate requests termination, returning the done channel of the active
// Run, or nil if the loop was not running (and has been closed directly).
func (l *Loop) terminate() (<-chan struct{}, error) {
	for {
		current := l.state.Load()
		switch current {
		case StateTerminating, StateTerminated:
			return nil, ErrLoopTerminated
		}
		if !l.state.TryTransition(current, StateTerminating) {
			continue
		}
		if current == StateAwake {
			l.shutdown()
			return nil, nil
		}
		l.mu.Lock()
		done := l.runDone
		l.mu.Unlock()
		l.wake()
		return done, nil
	}
}

// Submit queues a task to run on the loop goroutine. Queued tasks keep Run
// alive until they have executed.
func (l *Loop) Submit(task func()) error {
	if task == nil {
		return nil
	}

	l.mu.Lock()
	if l.state.Load() == StateTerminated {
		l.mu.Unlock()
		return ErrLoopTerminated
	}
	l.tasks.Push(task)
	l.mu.Unlock()

	if l.state.Load() == StateSleeping {
		l.wake()
	}
	return nil
}

// wake interrupts a blocking poll. Wake-ups are deduplicated until drained.
func (l *Loop) wake() {
	if l.state.Load() == StateTerminated || !l.wakePending.CompareAndSwap(0, 1) {
		return
	}
	if err := signalWake(l.wakeWriteFD); err != nil {
		// EBADF/EPIPE are expected once the loop has closed its fds
		l.wakePending.Store(0)
	}
}

// Ref marks one more handle as active. Run does not return while any
// handle is referenced.
func (l *Loop) Ref() {
	l.refs.Add(1)
}

// Unref reverses a prior Ref.
func (l *Loop) Unref() {
	if l.refs.Add(-1) < 0 {
		panic(`eventloop: unbalanced Unref`)
	}
}

// Alive reports whether there are referenced handles or queued tasks.
func (l *Loop) Alive() bool {
	return l.refs.Load() > 0 || l.pendingTasks() > 0
}

// RegisterFD registers a file descriptor for I/O monitoring. The callback
// runs on the loop goroutine.
func (l *Loop) RegisterFD(fd int, events IOEvents, callback IOCallback) error {
	return l.poller.RegisterFD(fd, events, func(events IOEvents) {
		l.safeExecute(func() { callback(events) })
	})
}

// UnregisterFD removes a file descriptor from monitoring.
func (l *Loop) UnregisterFD(fd int) error {
	return l.poller.UnregisterFD(fd)
}

// ModifyFD updates the events being monitored for a file descriptor.
func (l *Loop) ModifyFD(fd int, events IOEvents) error {
	return l.poller.ModifyFD(fd, events)
}

// State returns the current loop state.
func (l *Loop) State() LoopState {
	return l.state.Load()
}

// Metrics returns a snapshot of the loop statistics, or nil if the loop was
// not created with WithMetrics(true).
func (l *Loop) Metrics() *Metrics {
	if l.metrics == nil {
		return nil
	}
	return l.metrics.snapshot(l.tickCount.Load())
}

// safeExecute runs fn, logging and swallowing any panic except a
// [FatalPanic].
func (l *Loop) safeExecute(fn func()) {
	if l.metrics != nil {
		start := time.Now()
		defer func() {
			l.metrics.recordLatency(time.Since(start))
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(FatalPanic); ok {
				l.logCritical(`fatal panic, terminating loop`, &PanicError{Value: r})
				panic(r)
			}
			l.logError(`task panicked`, r)
		}
	}()

	fn()
}

func (l *Loop) closeFDs() {
	l.closeOnce.Do(func() {
		_ = l.poller.Close()
		closeWakeFDs(l.wakeFD, l.wakeWriteFD)
	})
}

// isLoopThread checks if we're on the loop goroutine.
func (l *Loop) isLoopThread() bool {
	loopID := l.loopGoroutineID.Load()
	if loopID == 0 {
		return false
	}
	return getGoroutineID() == loopID
}

// IsLoopThread reports whether the caller is running on the loop goroutine,
// i.e. inside a task or I/O callback of an active Run.
func (l *Loop) IsLoopThread() bool {
	return l.isLoopThread()
}

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
