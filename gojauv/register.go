//go:build linux || darwin

package gojauv

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
)

// ModuleName is the conventional name to register the module under.
const ModuleName = "uv"

// Require returns a [require.ModuleLoader] that initialises the uv module
// when loaded by a [goja.Runtime]:
//
//	registry := require.NewRegistry()
//	registry.RegisterNativeModule(gojauv.ModuleName, gojauv.Require(gojauv.WithLoop(loop)))
//	registry.Enable(runtime)
//
// The provided options are captured and applied each time a new runtime
// calls require for this module. Without [WithLoop], each runtime gets its
// own loop, closed once the runtime has been garbage collected.
func Require(opts ...Option) require.ModuleLoader {
	return func(runtime *goja.Runtime, module *goja.Object) {
		m, err := New(runtime, opts...)
		if err != nil {
			panic(runtime.NewGoError(err))
		}
		exports := module.Get("exports").(*goja.Object)
		m.setupExports(exports)
	}
}
