package selector

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgenode/jsruntime/edgejs/runtime"
	"github.com/edgenode/jsruntime/edgejs/logger"
)

type fixedResolver struct {
	id runtime.ID
}

func (f fixedResolver) Resolve(ctx context.Context, hostname string) (runtime.ID, bool, error) {
	return f.id, true, nil
}

func newTestRuntime(t *testing.T) *runtime.Runtime {
	t.Helper()
	rt, err := runtime.New(runtime.ID{Name: "app", Version: "v1"}, runtime.Config{
		Logger: logger.NewDefault("selector-test"),
	})
	require.NoError(t, err)
	t.Cleanup(rt.Dispose)
	return rt
}

// TestGetTreatsEvictingEntryAsMiss exercises spec.md §4.G's rule that a
// lookup landing on an entry already marked Evicting (or Gone) must treat it
// as absent and build a fresh Runtime, rather than handing back the
// soon-to-be-disposed one. Without this check, Get would return the stale
// entry's Runtime straight from its already-closed ready channel.
func TestGetTreatsEvictingEntryAsMiss(t *testing.T) {
	id := runtime.ID{Name: "app", Version: "v1"}
	var buildCount int32

	build := func(ctx context.Context, id runtime.ID) (*runtime.Runtime, error) {
		atomic.AddInt32(&buildCount, 1)
		return newTestRuntime(t), nil
	}

	d := NewDistributed(fixedResolver{id}, build, time.Hour, time.Hour)
	defer d.Stop()

	rt1, err := d.Get(context.Background(), "host")
	require.NoError(t, err)
	require.NotNil(t, rt1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&buildCount))

	key := id.String()
	d.mu.Lock()
	d.entries[key].state = StateEvicting
	d.mu.Unlock()

	rt2, err := d.Get(context.Background(), "host")
	require.NoError(t, err)
	assert.NotSame(t, rt1, rt2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&buildCount))
}

func TestGetCachesReadyEntry(t *testing.T) {
	id := runtime.ID{Name: "app", Version: "v1"}
	var buildCount int32
	build := func(ctx context.Context, id runtime.ID) (*runtime.Runtime, error) {
		atomic.AddInt32(&buildCount, 1)
		return newTestRuntime(t), nil
	}

	d := NewDistributed(fixedResolver{id}, build, time.Hour, time.Hour)
	defer d.Stop()

	rt1, err := d.Get(context.Background(), "host")
	require.NoError(t, err)
	rt2, err := d.Get(context.Background(), "host")
	require.NoError(t, err)

	assert.Same(t, rt1, rt2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&buildCount))
}
