//go:build linux || darwin

package gojauv

import (
	"github.com/dop251/goja"
	"github.com/joeycumines/goja-uv/bridge"
)

// gojaHost implements [bridge.Host] for a goja runtime.
type gojaHost struct {
	runtime *goja.Runtime
}

func (h *gojaHost) Call(fn goja.Callable, obj *goja.Object, args []bridge.Arg) error {
	values := make([]goja.Value, len(args))
	for i, arg := range args {
		values[i] = h.toValue(arg)
	}
	_, err := fn(obj, values...)
	return err
}

func (h *gojaHost) toValue(arg bridge.Arg) goja.Value {
	switch arg.Kind {
	case bridge.ArgInt:
		return h.runtime.ToValue(arg.Int)
	case bridge.ArgBytes:
		// the bridge hands over a private copy
		return h.runtime.ToValue(h.runtime.NewArrayBuffer(arg.Bytes))
	case bridge.ArgError:
		return errorObject(h.runtime, arg.Err)
	default:
		return goja.Undefined()
	}
}

// errorObject converts err to a JS Error, with a code property where the
// engine provides one.
func errorObject(runtime *goja.Runtime, err error) *goja.Object {
	obj := runtime.NewGoError(err)
	if code := bridge.Code(err); code != "" {
		_ = obj.Set("code", code)
	}
	return obj
}

// noopCallback stands in for omitted write callbacks.
func noopCallback(goja.Value, ...goja.Value) (goja.Value, error) {
	return goja.Undefined(), nil
}
