package ops

import (
	"testing"

	"github.com/edgenode/jsruntime/edgejs/runtime"
	"github.com/edgenode/jsruntime/edgejs/store"
	"github.com/edgenode/jsruntime/edgejs/logger"
)

// newTestRuntime builds a Runtime with in-memory stores and no snapshot,
// enough to exercise op handlers without an external backend.
func newTestRuntime(t *testing.T) *runtime.Runtime {
	t.Helper()
	rt, err := runtime.New(runtime.ID{Name: "test-app", Version: "v1"}, runtime.Config{
		Permissions: runtime.Permissions{AllowOS: true, DevTools: true},
		Stores: runtime.Stores{
			Cache: store.NewMemoryCache(),
			Data:  store.NewMemoryData(),
			Acme:  store.NewMemoryAcme(),
		},
		Logger: logger.NewDefault("ops-test"),
	})
	if err != nil {
		t.Fatalf("runtime.New: %v", err)
	}
	t.Cleanup(rt.Dispose)
	return rt
}
