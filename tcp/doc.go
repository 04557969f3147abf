// Package tcp implements non-blocking TCP stream handles on top of an
// [eventloop.Loop], with libuv-like semantics.
//
// A [TCP] handle is created unopened, becomes a listener via Bind and
// Listen, or a connected stream via Connect or a server's Accept. Every
// completion (connection, read, write, connect, close) is delivered as a
// callback on the loop goroutine. Close and write completions are always
// deferred to a later loop iteration, never invoked from within the call
// that requested them. Once the loop has terminated, completions are
// dropped rather than invoked.
//
// Handles are not safe for concurrent use. All methods must be called
// from the loop goroutine, or before the loop is run.
package tcp
