package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgenode/jsruntime/edgejs/msg"
)

func TestPendingTableCompleteDeliversAndRemoves(t *testing.T) {
	pt := NewPendingTable()
	ch := pt.Reserve(1)
	env := &msg.Envelope{CmdID: 1}

	assert.True(t, pt.Complete(1, env))
	assert.Equal(t, env, <-ch)
	assert.Equal(t, 0, pt.Len())
}

func TestPendingTableCompleteUnknownIDFails(t *testing.T) {
	pt := NewPendingTable()
	assert.False(t, pt.Complete(99, &msg.Envelope{}))
}

func TestPendingTableDropDiscardsWaiter(t *testing.T) {
	pt := NewPendingTable()
	ch := pt.Reserve(2)
	pt.Drop(2)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, pt.Len())
}

func TestStreamTablePushThenDoneCloses(t *testing.T) {
	st := NewStreamTable()
	ch := st.Open(5)

	assert.True(t, st.Push(5, []byte("hello"), false))
	assert.Equal(t, []byte("hello"), <-ch)

	assert.True(t, st.Push(5, nil, true))
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, st.Len())
}

func TestStreamTablePushUnknownIDFails(t *testing.T) {
	st := NewStreamTable()
	assert.False(t, st.Push(404, nil, true))
}

func TestTimerTableClearCancelsAndRemoves(t *testing.T) {
	tt := NewTimerTable()
	canceled := false
	tt.Start(1, func() { canceled = true })

	assert.True(t, tt.Clear(1))
	assert.True(t, canceled)
	assert.Equal(t, 0, tt.Len())
}

func TestTimerTableClearUnknownIDIsNotAnError(t *testing.T) {
	tt := NewTimerTable()
	assert.False(t, tt.Clear(1))
}

func TestTimerTableFireSuppressedAfterClear(t *testing.T) {
	tt := NewTimerTable()
	tt.Start(7, func() {})

	assert.True(t, tt.Clear(7))
	assert.False(t, tt.Fire(7), "a cleared timer must not report as fired")
}

func TestTimerTableFireRemovesRow(t *testing.T) {
	tt := NewTimerTable()
	tt.Start(9, func() {})

	assert.True(t, tt.Fire(9))
	assert.Equal(t, 0, tt.Len())
	assert.False(t, tt.Fire(9), "firing twice must not double-report")
}
