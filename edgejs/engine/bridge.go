// Package engine is the thin native wrapper over the embedded JS engine:
// create/destroy an isolate, evaluate source, compile modules, invoke JS
// callbacks, and report heap stats. It plays the role the teacher's
// system/tee/script_engine.go gives goja — a pure-Go stand-in for V8 — but
// here one Bridge is owned by exactly one long-lived Runtime isolate instead
// of being recreated per script call.
package engine

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"sync"

	"github.com/dop251/goja"
)

// HeapStats mirrors the subset of V8's heap statistics the Selector's idle
// monitor reads. goja does not expose native heap introspection, so the
// bridge approximates it from the Go runtime's memory stats — adequate for
// telemetry and eviction heuristics, not for exact isolate accounting.
type HeapStats struct {
	UsedHeapSize  uint64
	TotalHeapSize uint64
	HeapSizeLimit uint64
}

// RecvFunc fires when JS sends a message to the host.
type RecvFunc func(buf []byte, raw []byte) []byte

// PrintFunc fires for console/runtime logs, multiplexed by level.
type PrintFunc func(level, message string)

// ResolveFunc fires when the engine resolves a dynamic import; it is handed
// the specifier and the referrer's engine-assigned identity hash and must
// return a compiled module synchronously.
type ResolveFunc func(specifier string, refererIdentityHash uint64) (*CompiledModule, error)

// CompiledModule is the result of compiling module source for the engine.
type CompiledModule struct {
	OriginURL    string
	IsWasm       bool
	Program      *goja.Program
	IdentityHash uint64
}

// IdentityHash derives the stable per-origin-URL identity hash the bridge
// hands to ResolveFunc as a referrer. A real V8 embedding gets this from
// the engine itself; goja has no equivalent concept, so origin URLs are
// hashed deterministically instead — two loads of the same URL always land
// on the same identity. Exported so callers that record loaded modules
// against this same identity (the Runtime's module-metadata cache) hash
// origin URLs the same way the bridge does.
func IdentityHash(originURL string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(originURL))
	return h.Sum64()
}

// Config parameters bridge construction, playing the role of V8's
// new(snapshot, data_ptr, recv_cb, print_cb, resolve_cb, soft_limit,
// hard_limit). data_ptr has no Go analog: callbacks close directly over
// their owning Runtime instead of recovering it from an opaque pointer.
type Config struct {
	// Snapshot is bootstrap JS source compiled and run before user code,
	// standing in for a V8 startup snapshot.
	Snapshot string
	Recv     RecvFunc
	Print    PrintFunc
	Resolve  ResolveFunc

	SoftHeapLimitBytes uint64
	HardHeapLimitBytes uint64
}

// ErrHardLimitExceeded is returned (and the isolate marked disposed) once a
// script execution trips the hard heap limit.
var ErrHardLimitExceeded = fmt.Errorf("engine: hard heap limit exceeded")

// Bridge owns one goja.Runtime for the lifetime of its Runtime. Only the
// goroutine running the owning Runtime's event loop may call into it.
type Bridge struct {
	mu       sync.Mutex
	vm       *goja.Runtime
	cfg      Config
	disposed bool

	// moduleStack is the identity-hash stack of modules currently executing
	// on this isolate, innermost last. A dynamic import resolved while
	// running module X must report X as its referrer; since only one
	// goroutine ever runs JS on this isolate (the owning Runtime's event
	// loop), no separate lock is needed to push/pop it.
	moduleStack []uint64
}

// New constructs an isolate and runs its snapshot, if any.
func New(cfg Config) (*Bridge, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	b := &Bridge{vm: vm, cfg: cfg}
	b.installConsole()
	if err := b.installBuiltins(); err != nil {
		return nil, fmt.Errorf("engine: install builtins: %w", err)
	}
	b.installDynamicImport()

	if cfg.Snapshot != "" {
		if _, err := vm.RunString(cfg.Snapshot); err != nil {
			return nil, fmt.Errorf("engine: run snapshot: %w", err)
		}
	}
	return b, nil
}

// installConsole wires console.log/warn/error to the configured PrintFunc,
// multiplexing levels exactly as print_cb does in the original contract.
func (b *Bridge) installConsole() {
	console := b.vm.NewObject()
	logAt := func(level string) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			if b.cfg.Print == nil {
				return goja.Undefined()
			}
			msg := ""
			for i, arg := range call.Arguments {
				if i > 0 {
					msg += " "
				}
				msg += arg.String()
			}
			b.cfg.Print(level, msg)
			return goja.Undefined()
		}
	}
	console.Set("log", logAt("app"))
	console.Set("info", logAt("app"))
	console.Set("warn", logAt("app"))
	console.Set("error", logAt("app"))
	b.vm.Set("console", console)
}

// Eval performs synchronous top-level evaluation of filename/source.
func (b *Bridge) Eval(filename, source string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return fmt.Errorf("engine: eval on disposed isolate")
	}
	prog, err := goja.Compile(filename, source, false)
	if err != nil {
		return fmt.Errorf("engine: compile %s: %w", filename, err)
	}
	if _, err := b.vm.RunProgram(prog); err != nil {
		return fmt.Errorf("engine: eval %s: %w", filename, err)
	}
	return nil
}

// CompileModule compiles module source without running it, returning a
// reusable program the caller inserts into the module metadata cache.
func (b *Bridge) CompileModule(originURL string, source string, isWasm bool) (*CompiledModule, error) {
	if isWasm {
		return nil, fmt.Errorf("engine: wasm modules are not supported by this bridge")
	}
	prog, err := goja.Compile(originURL, source, false)
	if err != nil {
		return nil, fmt.Errorf("engine: compile module %s: %w", originURL, err)
	}
	return &CompiledModule{OriginURL: originURL, IsWasm: false, Program: prog, IdentityHash: IdentityHash(originURL)}, nil
}

// RunModule executes a previously compiled module's program on this
// isolate, pushing its identity onto moduleStack for the duration so a
// dynamic import triggered from within it reports the right referrer.
func (b *Bridge) RunModule(m *CompiledModule) (goja.Value, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return nil, fmt.Errorf("engine: run module on disposed isolate")
	}
	return b.runProgramWithIdentity(m.Program, m.IdentityHash)
}

// runProgramWithIdentity runs prog with identityHash as the current
// referrer, for the duration of the call. Must only be called while b.mu is
// already held (directly, or because the caller is itself running on this
// isolate inside a native callback invoked from goja).
func (b *Bridge) runProgramWithIdentity(prog *goja.Program, identityHash uint64) (goja.Value, error) {
	b.moduleStack = append(b.moduleStack, identityHash)
	defer func() { b.moduleStack = b.moduleStack[:len(b.moduleStack)-1] }()
	return b.vm.RunProgram(prog)
}

// currentReferrerHash is the identity of the module presently executing on
// this isolate, or 0 at top level (outside of any RunModule call).
func (b *Bridge) currentReferrerHash() uint64 {
	if n := len(b.moduleStack); n > 0 {
		return b.moduleStack[n-1]
	}
	return 0
}

// Invoke calls a global function by name with the given arguments, the Go
// analog of invoking a JS callback registered during eval.
func (b *Bridge) Invoke(name string, args ...any) (goja.Value, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return nil, fmt.Errorf("engine: invoke on disposed isolate")
	}
	fn, ok := goja.AssertFunction(b.vm.Get(name))
	if !ok {
		return nil, fmt.Errorf("engine: %s is not a function", name)
	}
	gargs := make([]goja.Value, len(args))
	for i, a := range args {
		gargs[i] = b.vm.ToValue(a)
	}
	return fn(goja.Undefined(), gargs...)
}

// VM exposes the underlying goja runtime for op handlers that need to
// construct JS values directly (e.g. building a Response object).
func (b *Bridge) VM() *goja.Runtime {
	return b.vm
}

// HeapStatistics reads through to the process's memory stats. Never
// suspends.
func (b *Bridge) HeapStatistics() HeapStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return HeapStats{
		UsedHeapSize:  ms.HeapAlloc,
		TotalHeapSize: ms.HeapSys,
		HeapSizeLimit: b.cfg.HardHeapLimitBytes,
	}
}

// Dispose invalidates the isolate. After this call the Bridge must not be
// used again.
func (b *Bridge) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disposed = true
	b.vm = nil
}

// Disposed reports whether Dispose has been called.
func (b *Bridge) Disposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

// Send delivers a host-originated message to JS (recv_cb) and returns
// whatever set_response captured during that call, the synchronous half of
// the send/set_response pair in the bridge contract.
func (b *Bridge) Send(buf []byte, raw []byte) []byte {
	if b.cfg.Recv == nil {
		return nil
	}
	return b.cfg.Recv(buf, raw)
}
