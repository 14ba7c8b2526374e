package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgenode/jsruntime/edgejs/logger"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New(ID{Name: "app", Version: "v1"}, Config{
		Logger: logger.NewDefault("runtime-test"),
	})
	require.NoError(t, err)
	return rt
}

// TestDisposeClosesEventChannelAndUnblocksPump exercises the fix for the pump
// goroutine leak: a goroutine ranging over FetchEvents() (the same pattern
// pumpFetchEvents in edgejs/ops/events.go uses) must observe the channel
// close and return, rather than blocking forever on a channel whose backing
// field was merely nil-ed out from under it.
func TestDisposeClosesEventChannelAndUnblocksPump(t *testing.T) {
	rt := newTestRuntime(t)
	rt.RegisterListener("fetch")

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		for range rt.FetchEvents() {
		}
	}()

	rt.Dispose()

	select {
	case <-pumpDone:
	case <-time.After(time.Second):
		t.Fatal("pump goroutine did not exit after Dispose closed its channel")
	}
}

// TestDispatchEventAfterDisposeReturnsErrNoListener guards against the
// channel-close-vs-send race a naive fix could introduce: once Dispose has
// run, DispatchEvent must see the channel gone and fail cleanly rather than
// attempting to send on a closed channel.
func TestDispatchEventAfterDisposeReturnsErrNoListener(t *testing.T) {
	rt := newTestRuntime(t)
	rt.RegisterListener("fetch")
	rt.Dispose()

	_, err := rt.DispatchEvent(context.Background(), &FetchEvent{ID: 1})
	assert.ErrorIs(t, err, ErrNoListener)
}
