// Package eventloop provides a single-threaded, readiness based event loop
// in the style of libuv's default loop.
//
// # Architecture
//
// A [Loop] multiplexes file descriptor readiness (epoll on Linux, kqueue on
// Darwin) with a FIFO queue of submitted tasks. Everything the loop runs,
// I/O callbacks and tasks alike, runs on the goroutine that called
// [Loop.Run], one callback at a time.
//
// # Liveness
//
// Handles built on top of the loop (see package tcp) call [Loop.Ref] while
// they have work outstanding, and [Loop.Unref] once they are idle. [Loop.Run]
// returns nil as soon as there are no referenced handles and no queued
// tasks. The loop may then be run again.
//
// # Thread Safety
//
//   - [Loop.Submit], [Loop.Ref], [Loop.Unref], [Loop.Shutdown] and
//     [Loop.Close] are safe to call from any goroutine.
//   - File descriptor registration is safe from any goroutine, but the
//     callbacks always run on the loop goroutine.
//
// # Usage
//
//	loop, err := eventloop.New(eventloop.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer loop.Close()
//
//	loop.Ref()
//	_ = loop.Submit(func() {
//	    defer loop.Unref()
//	    fmt.Println("hello from the loop")
//	})
//
//	if err := loop.Run(ctx); err != nil {
//	    return err
//	}
package eventloop
