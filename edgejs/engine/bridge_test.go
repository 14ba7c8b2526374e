package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalAndInvoke(t *testing.T) {
	b, err := New(Config{})
	require.NoError(t, err)

	require.NoError(t, b.Eval("app.js", `function greet(name) { return "hi " + name; }`))

	v, err := b.Invoke("greet", "world")
	require.NoError(t, err)
	assert.Equal(t, "hi world", v.String())
}

func TestConsoleRoutesToPrintFunc(t *testing.T) {
	var gotLevel, gotMsg string
	b, err := New(Config{
		Print: func(level, msg string) { gotLevel, gotMsg = level, msg },
	})
	require.NoError(t, err)

	require.NoError(t, b.Eval("app.js", `console.log("hello", "world");`))
	assert.Equal(t, "app", gotLevel)
	assert.Equal(t, "hello world", gotMsg)
}

func TestDisposeInvalidatesIsolate(t *testing.T) {
	b, err := New(Config{})
	require.NoError(t, err)
	b.Dispose()
	assert.True(t, b.Disposed())

	err = b.Eval("app.js", `1+1;`)
	assert.Error(t, err)
}

func TestCompileModuleRejectsWasm(t *testing.T) {
	b, err := New(Config{})
	require.NoError(t, err)
	_, err = b.CompileModule("file:///x.wasm", "", true)
	assert.Error(t, err)
}

func TestRequireCallsResolveAndRunsModule(t *testing.T) {
	var gotSpecifier string
	var gotRefererHash uint64
	var b *Bridge
	b, err := New(Config{
		Resolve: func(specifier string, refererHash uint64) (*CompiledModule, error) {
			gotSpecifier = specifier
			gotRefererHash = refererHash
			return b.CompileModule("file:///util.js", `41 + 1;`, false)
		},
	})
	require.NoError(t, err)

	v, err := b.Invoke("require", "./util.js")
	require.NoError(t, err)
	assert.Equal(t, "./util.js", gotSpecifier)
	assert.Equal(t, uint64(0), gotRefererHash)
	assert.Equal(t, int64(42), v.ToInteger())
}

func TestRequireWithNoResolverConfiguredErrors(t *testing.T) {
	b, err := New(Config{})
	require.NoError(t, err)
	_, err = b.Invoke("require", "./util.js")
	assert.Error(t, err)
}
