package runtime

import (
	"sync"

	"github.com/edgenode/jsruntime/edgejs/msg"
)

// PendingTable maps a request-id to a one-shot reply channel. One instance
// backs HTTP responses, another backs DNS responses, per spec: a
// request-id never appears in more than one table at once, and each table
// guards its map with one short-critical-section mutex.
type PendingTable struct {
	mu   sync.Mutex
	rows map[uint32]chan *msg.Envelope
}

func NewPendingTable() *PendingTable {
	return &PendingTable{rows: make(map[uint32]chan *msg.Envelope)}
}

// Reserve inserts a fresh row for id and returns its receive side. Reserving
// an id that is already pending is a caller bug; it overwrites the row and
// the original waiter is abandoned (the id space must not be reused while
// pending, enforced by Runtime.NextRequestID's monotonic allocator).
func (t *PendingTable) Reserve(id uint32) <-chan *msg.Envelope {
	ch := make(chan *msg.Envelope, 1)
	t.mu.Lock()
	t.rows[id] = ch
	t.mu.Unlock()
	return ch
}

// Complete delivers env to id's waiter and removes the row. Returns false if
// no row was pending (a late or duplicate reply).
func (t *PendingTable) Complete(id uint32, env *msg.Envelope) bool {
	t.mu.Lock()
	ch, ok := t.rows[id]
	if ok {
		delete(t.rows, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	ch <- env
	close(ch)
	return true
}

// Drop removes id's row without delivering anything — used when the outer
// request is canceled or times out so a late JS reply is discarded.
func (t *PendingTable) Drop(id uint32) {
	t.mu.Lock()
	ch, ok := t.rows[id]
	if ok {
		delete(t.rows, id)
	}
	t.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Len reports the number of rows currently pending (ambient telemetry).
func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// StreamTable maps a stream-id to the host side of a JS-consumable byte
// stream: a channel of chunks buffered to 16 entries, closed when a
// done=true chunk arrives. The channel is bounded: Push blocks while the
// buffer is full.
type StreamTable struct {
	mu      sync.Mutex
	senders map[uint32]chan []byte
}

func NewStreamTable() *StreamTable {
	return &StreamTable{senders: make(map[uint32]chan []byte)}
}

// Open registers a new stream-id and returns its receive side.
func (t *StreamTable) Open(id uint32) <-chan []byte {
	ch := make(chan []byte, 16)
	t.mu.Lock()
	t.senders[id] = ch
	t.mu.Unlock()
	return ch
}

// Push appends a chunk; an empty chunk is not delivered. If done, the row
// is removed and the channel closed after delivering the final chunk.
func (t *StreamTable) Push(id uint32, chunk []byte, done bool) bool {
	t.mu.Lock()
	ch, ok := t.senders[id]
	if ok && done {
		delete(t.senders, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	if len(chunk) > 0 {
		ch <- chunk
	}
	if done {
		close(ch)
	}
	return true
}

// Len reports the number of currently open streams.
func (t *StreamTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.senders)
}

// TimerTable maps a timer-id to its cancel function.
type TimerTable struct {
	mu     sync.Mutex
	cancel map[uint32]func()
}

func NewTimerTable() *TimerTable {
	return &TimerTable{cancel: make(map[uint32]func())}
}

// Start records cancel under id, replacing nothing (ids are assumed unique
// while pending, per spec invariant).
func (t *TimerTable) Start(id uint32, cancel func()) {
	t.mu.Lock()
	t.cancel[id] = cancel
	t.mu.Unlock()
}

// Clear cancels and removes id's timer, if present. Returns false if the
// timer already fired or was never started.
func (t *TimerTable) Clear(id uint32) bool {
	t.mu.Lock()
	cancel, ok := t.cancel[id]
	if ok {
		delete(t.cancel, id)
	}
	t.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Remove drops id's row without invoking cancel — used when the timer fires
// naturally.
func (t *TimerTable) Remove(id uint32) {
	t.mu.Lock()
	delete(t.cancel, id)
	t.mu.Unlock()
}

// Fire removes id's row the way a natural fire does, reporting whether the
// row was still present. Callers use the return value to decide whether a
// TimerReady(canceled=false) push raced a concurrent Clear and must be
// suppressed — a timer cleared before firing leaves no row for Fire to
// find.
func (t *TimerTable) Fire(id uint32) bool {
	t.mu.Lock()
	_, ok := t.cancel[id]
	if ok {
		delete(t.cancel, id)
	}
	t.mu.Unlock()
	return ok
}

// Len reports the number of timers currently scheduled.
func (t *TimerTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cancel)
}
