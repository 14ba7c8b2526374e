package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDiskResolverResolvesExactPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.ts"), []byte("export const x = 1;"), 0o644))

	r := &LocalDiskResolver{DefaultWorkingURL: "file://" + dir + "/"}
	data, err := r.Resolve("./util.ts", nil)
	require.NoError(t, err)
	assert.Contains(t, data.OriginURL, "util.ts")

	loaded, err := data.Loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "export const x = 1;", loaded.Source)
}

func TestLocalDiskResolverNotFound(t *testing.T) {
	dir := t.TempDir()
	r := &LocalDiskResolver{DefaultWorkingURL: "file://" + dir + "/"}
	_, err := r.Resolve("./missing.ts", nil)
	assert.Error(t, err)
}

func TestJSONSecretsResolverWalksPath(t *testing.T) {
	r := &JSONSecretsResolver{Value: map[string]any{
		"db": map[string]any{"password": "hunter2"},
	}}
	data, err := r.Resolve("secrets:///db/password", nil)
	require.NoError(t, err)

	loaded, err := data.Loader.Load()
	require.NoError(t, err)
	assert.Contains(t, loaded.Source, "hunter2")
	assert.Contains(t, loaded.Source, "export default JSON.parse")
}

func TestJSONSecretsResolverRejectsTraversalSegment(t *testing.T) {
	r := &JSONSecretsResolver{Value: map[string]any{
		"db": map[string]any{"password": "hunter2"},
	}}
	_, err := r.Resolve("secrets:///../db/password", nil)
	assert.Error(t, err)

	_, err = r.Resolve("secrets:///db/../password", nil)
	assert.Error(t, err)
}

func TestModuleCacheWriteOnce(t *testing.T) {
	c := NewModuleCache()
	first := c.InsertIfAbsent(1, LoadedModule{OriginURL: "file:///a.ts"})
	assert.True(t, first)

	second := c.InsertIfAbsent(1, LoadedModule{OriginURL: "file:///b.ts"})
	assert.False(t, second)

	m, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "file:///a.ts", m.OriginURL)
	assert.Equal(t, 1, c.Len())
}

func TestStandardManagerTriesNextResolverOnError(t *testing.T) {
	failing := &FunctionResolver{Fn: func(specifier string, referer *RefererInfo) (ModuleSourceData, error) {
		return ModuleSourceData{}, assertErr
	}}
	succeeding := &FunctionResolver{Fn: func(specifier string, referer *RefererInfo) (ModuleSourceData, error) {
		return ModuleSourceData{OriginURL: specifier, Loader: &JSONSecretsLoader{Value: 1}}, nil
	}}

	mgr := NewStandardManager([]Resolver{failing, succeeding}, "function:///")
	// Both resolvers register under protocol "function", so both land in the
	// same bucket and the manager must fall through to the second.
	loaded, err := mgr.Resolve("function:///thing", nil)
	require.NoError(t, err)
	assert.Equal(t, "function:///thing", loaded.OriginURL)
}

var assertErr = &simpleErr{"resolve failed"}

type simpleErr struct{ s string }

func (e *simpleErr) Error() string { return e.s }
