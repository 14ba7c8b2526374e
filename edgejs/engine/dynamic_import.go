package engine

import (
	"fmt"

	"github.com/dop251/goja"
)

// installDynamicImport binds the native function backing §4.A's resolve_cb
// contract onto __fly, and a JS-level require() wrapper over it, giving
// dynamic import an actual caller. Without this, cfg.Resolve is reachable
// only from the LoadModule dev-tools op (edgejs/ops/modules.go), which
// resolves a specifier for inspection but never compiles or runs it — a
// distinct operation from a real dynamic import.
func (b *Bridge) installDynamicImport() {
	flyObj, ok := b.vm.Get("__fly").(*goja.Object)
	if !ok {
		return
	}
	_ = flyObj.Set("importModule", b.importModule)

	const requireShim = `
function require(specifier) {
  return __fly.importModule(specifier);
}
`
	_, _ = b.vm.RunString(requireShim)
}

// importModule is the native function JS's require()/dynamic-import surface
// calls through to. It resolves specifier against the currently executing
// module (or no referrer, at top level), compiles the result, runs it on
// this isolate, and returns the module program's completion value as the
// "exports" this simplified module model offers — goja has no built-in ES
// module linker, so a module here is a flat script rather than a graph of
// named bindings, and this is the value require()'s caller receives.
func (b *Bridge) importModule(call goja.FunctionCall) goja.Value {
	if b.cfg.Resolve == nil {
		panic(b.vm.NewGoError(fmt.Errorf("engine: dynamic import unavailable: no resolver configured")))
	}
	specifier := call.Argument(0).String()

	compiled, err := b.cfg.Resolve(specifier, b.currentReferrerHash())
	if err != nil {
		panic(b.vm.NewGoError(fmt.Errorf("engine: resolve %s: %w", specifier, err)))
	}

	val, err := b.runProgramWithIdentity(compiled.Program, compiled.IdentityHash)
	if err != nil {
		panic(b.vm.NewGoError(fmt.Errorf("engine: run module %s: %w", specifier, err)))
	}
	return val
}
