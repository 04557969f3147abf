// Package gojauv provides a libuv style TCP module for the goja runtime,
// backed by the [eventloop] and [tcp] packages, with events dispatched
// through a [bridge.Bridge].
//
// # Overview
//
// The module is exposed through the [goja_nodejs/require] module system:
//
//	registry := require.NewRegistry()
//	registry.RegisterNativeModule("uv", gojauv.Require(gojauv.WithLoop(loop)))
//	registry.Enable(runtime)
//
// after which scripts load it with:
//
//	const uv = require('uv');
//
// # JavaScript API
//
//	uv.new_tcp()                       creates a tcp handle
//	uv.tcp_init(h)                     re-initialises a closed handle
//	uv.tcp_bind(h, host, port)         binds to a numeric address
//	uv.tcp_connect(h, host, port, cb)  connects, cb(status)
//	uv.tcp_getsockname(h)              {address, port, family}
//	uv.listen(h, cb)                   listens, cb(status) per connection
//	uv.accept(server, client)          accepts a pending connection
//	uv.read_start(h, cb?)              starts read events, cb(data, nread)
//	uv.read_stop(h)                    stops read events
//	uv.write(h, data, cb?)             writes a string, ArrayBuffer or Uint8Array
//	uv.close(h, cb?)                   closes, dispatching closed once
//	uv.set_handler(h, event, cb)       registers a named event callback
//	uv.run()                           runs the loop until idle
//	uv.VERSION_MAJOR, uv.VERSION_MINOR
//
// Callbacks are invoked with the handle as this. Events are connection
// (status), connect (status), read (ArrayBuffer, nread), end () and
// closed (). Write callbacks are called with no arguments on success, or
// with an Error carrying a code property, e.g. ECANCELED.
//
// # Errors
//
// Synchronous failures throw a GoError with message "<op>: <reason>", and
// a code property where the engine provides one. Invalid arguments throw
// a TypeError. Asynchronous errors, i.e. read errors and exceptions thrown
// by callbacks, are passed to the handler configured by [WithErrorHandler].
// By default they are collected, and thrown from run() once the loop is
// idle.
//
// # Thread Safety
//
// A [Module] belongs to a single runtime, and must only be used on the
// goroutine that runs the loop.
package gojauv
