package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/ops"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

const kindPanicky msg.Kind = "test.panicky"

func newTestDispatcher(table map[msg.Kind]ops.Handler) *Dispatcher {
	return &Dispatcher{table: table, workers: make(chan func())}
}

func panickyHandler(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	panic("boom")
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	d := newTestDispatcher(map[msg.Kind]ops.Handler{kindPanicky: panickyHandler})

	env := &msg.Envelope{CmdID: 1, Sync: true, Kind: kindPanicky}
	reply := d.Dispatch(context.Background(), nil, env, nil)

	require.NotNil(t, reply)
	assert.True(t, reply.IsError())
	assert.Equal(t, msg.ErrInternal, reply.ErrorKind)
	assert.Contains(t, reply.ErrorString, "boom")
}

func TestDispatchAsyncRecoversHandlerPanicAndWorkerSurvives(t *testing.T) {
	d := New(1)
	d.table[kindPanicky] = panickyHandler

	replyCh := make(chan *msg.Envelope, 1)
	env := &msg.Envelope{CmdID: 1, Sync: false, Kind: kindPanicky}
	d.DispatchAsync(context.Background(), nil, env, nil, func(r *msg.Envelope) { replyCh <- r })

	select {
	case reply := <-replyCh:
		assert.True(t, reply.IsError())
		assert.Equal(t, msg.ErrInternal, reply.ErrorKind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for async reply")
	}

	// The worker goroutine that absorbed the panic must still be alive and
	// able to take another unit of work.
	delete(d.table, kindPanicky)
	d.table[msg.KindTimerClear] = func(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
		return nil, nil
	}
	env2 := &msg.Envelope{CmdID: 2, Sync: false, Kind: msg.KindTimerClear}
	d.DispatchAsync(context.Background(), nil, env2, nil, func(r *msg.Envelope) { replyCh <- r })

	select {
	case reply := <-replyCh:
		assert.False(t, reply.IsError())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second async reply; worker pool did not survive the panic")
	}
}
