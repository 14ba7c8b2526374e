package engine

// bootstrapBuiltins is JS source compiled into every isolate before user
// code runs — the Go bridge's analog of the teacher's builtinFunctions
// constant in system/tee/script_engine.go, adapted from a per-call stateless
// helper set into the always-present global surface a long-lived Runtime
// isolate exposes to an app. The actual fetch/timer/cache/data surface is
// implemented by native ops dispatched through the message bus (see
// edgejs/ops); these globals are the thin JS-side veneer over them.
const bootstrapBuiltins = `
var __fly = __fly || {};

__fly.nextCmdId = (function() {
  var n = 0;
  return function() { n = (n + 1) >>> 0; if (n === 0) { n = 1; } return n; };
})();

__fly.pending = {};

function Response(body, init) {
  this.body = body;
  init = init || {};
  this.status = init.status || 200;
  this.headers = init.headers || {};
}
`

// installBuiltins compiles bootstrapBuiltins into the isolate. Called from
// New before the caller-supplied Snapshot, so app-provided snapshots may
// reference these globals.
func (b *Bridge) installBuiltins() error {
	_, err := b.vm.RunString(bootstrapBuiltins)
	return err
}
