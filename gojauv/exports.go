//go:build linux || darwin

package gojauv

import (
	"github.com/dop251/goja"
	"github.com/joeycumines/goja-uv/bridge"
)

// handleKey is the hidden property linking a handle object to its handle.
const handleKey = "_handle"

// handleRef hides the handle's methods from scripts.
type handleRef struct {
	h *handle
}

// setupExports wires the module's JS API onto the given exports object.
func (m *Module) setupExports(exports *goja.Object) {
	_ = exports.Set("new_tcp", m.runtime.ToValue(m.jsNewTCP))
	_ = exports.Set("tcp_init", m.runtime.ToValue(m.jsTCPInit))
	_ = exports.Set("tcp_bind", m.runtime.ToValue(m.jsTCPBind))
	_ = exports.Set("tcp_connect", m.runtime.ToValue(m.jsTCPConnect))
	_ = exports.Set("tcp_getsockname", m.runtime.ToValue(m.jsTCPGetsockname))
	_ = exports.Set("listen", m.runtime.ToValue(m.jsListen))
	_ = exports.Set("accept", m.runtime.ToValue(m.jsAccept))
	_ = exports.Set("read_start", m.runtime.ToValue(m.jsReadStart))
	_ = exports.Set("read_stop", m.runtime.ToValue(m.jsReadStop))
	_ = exports.Set("write", m.runtime.ToValue(m.jsWrite))
	_ = exports.Set("close", m.runtime.ToValue(m.jsClose))
	_ = exports.Set("set_handler", m.runtime.ToValue(m.jsSetHandler))
	_ = exports.Set("run", m.runtime.ToValue(m.jsRun))
	_ = exports.Set("VERSION_MAJOR", VersionMajor)
	_ = exports.Set("VERSION_MINOR", VersionMinor)
}

func (m *Module) jsNewTCP(goja.FunctionCall) goja.Value {
	h, err := m.bridge.NewHandle(func(h *handle) *goja.Object {
		obj := m.runtime.NewObject()
		_ = obj.DefineDataProperty(handleKey, m.runtime.ToValue(&handleRef{h: h}), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
		return obj
	})
	if err != nil {
		m.throw(err)
	}
	obj, _ := h.Object()
	return obj
}

func (m *Module) jsTCPInit(call goja.FunctionCall) goja.Value {
	m.check(m.handleArg(call, 0, "tcp_init").Init())
	return goja.Undefined()
}

func (m *Module) jsTCPBind(call goja.FunctionCall) goja.Value {
	h := m.handleArg(call, 0, "tcp_bind")
	host := m.stringArg(call, 1, "tcp_bind")
	port := m.portArg(call, 2, "tcp_bind")
	m.check(h.Bind(host, port))
	return goja.Undefined()
}

func (m *Module) jsTCPConnect(call goja.FunctionCall) goja.Value {
	h := m.handleArg(call, 0, "tcp_connect")
	host := m.stringArg(call, 1, "tcp_connect")
	port := m.portArg(call, 2, "tcp_connect")
	cb := m.callbackArg(call, 3, "tcp_connect")
	m.check(h.Connect(host, port, cb))
	return goja.Undefined()
}

func (m *Module) jsTCPGetsockname(call goja.FunctionCall) goja.Value {
	addr, err := m.handleArg(call, 0, "tcp_getsockname").LocalAddr()
	m.check(err)

	ip := addr.Addr().Unmap()
	family := "inet"
	if ip.Is6() {
		family = "inet6"
	}
	obj := m.runtime.NewObject()
	_ = obj.Set("address", ip.String())
	_ = obj.Set("port", int(addr.Port()))
	_ = obj.Set("family", family)
	return obj
}

func (m *Module) jsListen(call goja.FunctionCall) goja.Value {
	h := m.handleArg(call, 0, "listen")
	cb := m.callbackArg(call, 1, "listen")
	m.check(h.Listen(cb))
	return goja.Undefined()
}

func (m *Module) jsAccept(call goja.FunctionCall) goja.Value {
	server := m.handleArg(call, 0, "accept")
	client := m.handleArg(call, 1, "accept")
	m.check(server.Accept(client))
	return goja.Undefined()
}

func (m *Module) jsReadStart(call goja.FunctionCall) goja.Value {
	h := m.handleArg(call, 0, "read_start")
	if cb, ok := m.optionalCallbackArg(call, 1, "read_start"); ok {
		m.check(h.SetHandler(bridge.EventRead, cb))
	}
	m.check(h.ReadStart())
	return goja.Undefined()
}

func (m *Module) jsReadStop(call goja.FunctionCall) goja.Value {
	m.check(m.handleArg(call, 0, "read_stop").ReadStop())
	return goja.Undefined()
}

func (m *Module) jsWrite(call goja.FunctionCall) goja.Value {
	h := m.handleArg(call, 0, "write")
	data := m.bytesArg(call, 1, "write")
	cb, ok := m.optionalCallbackArg(call, 2, "write")
	if !ok {
		cb = noopCallback
	}
	m.check(h.Write(data, cb))
	return goja.Undefined()
}

func (m *Module) jsClose(call goja.FunctionCall) goja.Value {
	h := m.handleArg(call, 0, "close")
	if cb, ok := m.optionalCallbackArg(call, 1, "close"); ok {
		m.check(h.SetHandler(bridge.EventClosed, cb))
	}
	m.check(h.Close())
	return goja.Undefined()
}

func (m *Module) jsSetHandler(call goja.FunctionCall) goja.Value {
	h := m.handleArg(call, 0, "set_handler")
	name := m.stringArg(call, 1, "set_handler")
	cb := m.callbackArg(call, 2, "set_handler")
	m.check(h.SetHandler(name, cb))
	return goja.Undefined()
}

func (m *Module) jsRun(goja.FunctionCall) goja.Value {
	m.check(m.Run(m.ctx))
	return goja.Undefined()
}

// throw panics with err as a JS exception.
func (m *Module) throw(err error) {
	panic(errorObject(m.runtime, err))
}

func (m *Module) check(err error) {
	if err != nil {
		m.throw(err)
	}
}

func (m *Module) handleArg(call goja.FunctionCall, i int, fn string) *handle {
	if obj, ok := call.Argument(i).(*goja.Object); ok {
		if v := obj.Get(handleKey); v != nil {
			if ref, ok := v.Export().(*handleRef); ok {
				return ref.h
			}
		}
	}
	panic(m.runtime.NewTypeError("%s: argument %d must be a tcp handle", fn, i+1))
}

func (m *Module) stringArg(call goja.FunctionCall, i int, fn string) string {
	v := call.Argument(i)
	if s, ok := v.Export().(string); ok {
		return s
	}
	panic(m.runtime.NewTypeError("%s: argument %d must be a string", fn, i+1))
}

func (m *Module) portArg(call goja.FunctionCall, i int, fn string) int {
	switch v := call.Argument(i).Export().(type) {
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	panic(m.runtime.NewTypeError("%s: argument %d must be an integer port", fn, i+1))
}

func (m *Module) callbackArg(call goja.FunctionCall, i int, fn string) goja.Callable {
	cb, ok := m.optionalCallbackArg(call, i, fn)
	if !ok {
		panic(m.runtime.NewTypeError("%s: argument %d must be a function", fn, i+1))
	}
	return cb
}

// optionalCallbackArg returns false if the argument is undefined or null.
func (m *Module) optionalCallbackArg(call goja.FunctionCall, i int, fn string) (goja.Callable, bool) {
	v := call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, false
	}
	cb, ok := goja.AssertFunction(v)
	if !ok {
		panic(m.runtime.NewTypeError("%s: argument %d must be a function", fn, i+1))
	}
	return cb, true
}

// bytesArg accepts a string, ArrayBuffer or Uint8Array. The bridge copies
// the data, so views over script memory are passed through as is.
func (m *Module) bytesArg(call goja.FunctionCall, i int, fn string) []byte {
	switch v := call.Argument(i).Export().(type) {
	case string:
		return []byte(v)
	case goja.ArrayBuffer:
		return v.Bytes()
	case []byte:
		return v
	}
	panic(m.runtime.NewTypeError("%s: argument %d must be a string, ArrayBuffer or Uint8Array", fn, i+1))
}
