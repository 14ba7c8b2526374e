// Package selector implements the Selector (spec.md §4.G): resolving a
// hostname to a serving Runtime, either a single pre-built instance
// (Fixed) or a lazily-constructed, idle-evicted map keyed by app:version
// (Distributed). Grounded on original_source/src/fixed_runtime_selector.rs
// (FixedRuntimeSelector) and distributed-fly/src/runtime_selector.rs
// (DistributedRuntimeSelector's double-checked construct-then-insert), with
// the Go idiom (map + RWMutex + background ticker) following the teacher's
// system/runtime/loader.go singleton/registration pattern.
package selector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edgenode/jsruntime/edgejs/metrics"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// State is a Runtime's lifecycle stage inside a Distributed selector.
type State int

const (
	StateBuilding State = iota
	StateReady
	StateEvicting
	StateGone
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	case StateEvicting:
		return "evicting"
	default:
		return "gone"
	}
}

// ErrUnresolved is returned by Get when hostname maps to no known app.
var ErrUnresolved = fmt.Errorf("selector: hostname does not resolve to an app")

// Selector resolves a hostname to a Runtime.
type Selector interface {
	Get(ctx context.Context, hostname string) (*runtime.Runtime, error)
}

// Fixed always answers with the same pre-built Runtime, regardless of
// hostname — the Go translation of FixedRuntimeSelector, used for
// single-tenant or local-development hosting.
type Fixed struct {
	rt *runtime.Runtime
}

// NewFixed wraps an already-constructed Runtime.
func NewFixed(rt *runtime.Runtime) *Fixed {
	return &Fixed{rt: rt}
}

func (f *Fixed) Get(ctx context.Context, hostname string) (*runtime.Runtime, error) {
	return f.rt, nil
}

// Resolver maps a hostname to the app identity serving it, the Go analog of
// distributed-fly's Release::get(hostname) lookup.
type Resolver interface {
	Resolve(ctx context.Context, hostname string) (runtime.ID, bool, error)
}

// Builder constructs a fresh Runtime for id, run once per distinct id for
// the lifetime of the process (or until evicted), mirroring
// DistributedRuntimeSelector's Runtime::new + rt.eval(app.js) sequence.
type Builder func(ctx context.Context, id runtime.ID) (*runtime.Runtime, error)

type entry struct {
	state State
	rt    *runtime.Runtime
	ready chan struct{}
	err   error
}

// Distributed lazily constructs and caches one Runtime per app:version,
// evicting idle entries on a background ticker. Grounded on
// DistributedRuntimeSelector's RwLock<HashMap<String, Box<Runtime>>>: a
// read-locked fast path for the common cache hit, and a write-locked
// double-checked construct-then-insert for the miss path so two concurrent
// requests for the same never-yet-built app don't race to build it twice.
type Distributed struct {
	resolver Resolver
	build    Builder

	idleThreshold time.Duration

	mu      sync.RWMutex
	entries map[string]*entry

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewDistributed constructs a Distributed selector and starts its idle
// monitor at tickInterval, evicting Runtimes whose LastEventAt exceeds
// idleThreshold. Both values are used as given; edgejs/config.Default()
// supplies the reference 15s/5m.
func NewDistributed(resolver Resolver, build Builder, tickInterval, idleThreshold time.Duration) *Distributed {
	d := &Distributed{
		resolver:      resolver,
		build:         build,
		idleThreshold: idleThreshold,
		entries:       make(map[string]*entry),
		stopCh:        make(chan struct{}),
	}
	go d.idleMonitor(tickInterval)
	return d
}

// Get resolves hostname to an app identity, then returns its Runtime,
// building it on first use. Concurrent callers for the same never-built id
// block on the same build rather than racing to build it twice. A lookup
// that lands on an entry mid-eviction — Ready when found but Evicting or
// Gone by the time its build/ready-wait completes — is treated as a miss
// and retried, per spec.md §4.G's "a lookup that finds Evicting must treat
// the entry as absent" rule.
func (d *Distributed) Get(ctx context.Context, hostname string) (*runtime.Runtime, error) {
	id, ok, err := d.resolver.Resolve(ctx, hostname)
	if err != nil {
		return nil, fmt.Errorf("selector: resolve %s: %w", hostname, err)
	}
	if !ok {
		return nil, ErrUnresolved
	}

	key := id.String()

	for {
		e := d.lookupOrBuild(key, id)

		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		d.mu.RLock()
		state, rt, buildErr := e.state, e.rt, e.err
		d.mu.RUnlock()

		if buildErr != nil {
			return nil, fmt.Errorf("selector: build %s: %w", key, buildErr)
		}
		if state == StateEvicting || state == StateGone {
			continue
		}
		return rt, nil
	}
}

// lookupOrBuild returns key's cached entry, or starts a fresh build and
// registers it if none (or none live) exists yet.
func (d *Distributed) lookupOrBuild(key string, id runtime.ID) *entry {
	d.mu.RLock()
	e, found := d.entries[key]
	if found {
		stale := e.state == StateEvicting || e.state == StateGone
		d.mu.RUnlock()
		if !stale {
			return e
		}
	} else {
		d.mu.RUnlock()
	}

	d.mu.Lock()
	if e, found := d.entries[key]; found && e.state != StateEvicting && e.state != StateGone {
		d.mu.Unlock()
		return e
	}
	e = &entry{state: StateBuilding, ready: make(chan struct{})}
	d.entries[key] = e
	d.mu.Unlock()

	go func() {
		rt, buildErr := d.build(context.Background(), id)
		d.mu.Lock()
		e.rt, e.err = rt, buildErr
		if buildErr != nil {
			delete(d.entries, key)
			e.state = StateGone
		} else {
			e.state = StateReady
			metrics.SetRuntimesActive(len(d.entries))
		}
		d.mu.Unlock()
		close(e.ready)
	}()
	return e
}

func (d *Distributed) idleMonitor(tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			d.evictIdle()
		case <-d.stopCh:
			return
		}
	}
}

func (d *Distributed) evictIdle() {
	now := time.Now()

	d.mu.Lock()
	var toEvict []string
	for key, e := range d.entries {
		if e.state != StateReady {
			continue
		}
		id, hs := e.rt.ID(), e.rt.HeapStatistics()
		metrics.ObserveHeap(id.Name, id.Version, hs.UsedHeapSize, hs.TotalHeapSize)
		if now.Sub(e.rt.LastEventAt()) >= d.idleThreshold {
			e.state = StateEvicting
			toEvict = append(toEvict, key)
		}
	}
	d.mu.Unlock()

	for _, key := range toEvict {
		d.mu.Lock()
		e := d.entries[key]
		delete(d.entries, key)
		d.mu.Unlock()

		e.rt.Dispose()

		d.mu.Lock()
		e.state = StateGone
		d.mu.Unlock()

		metrics.IncRuntimesEvicted()
	}

	d.mu.Lock()
	metrics.SetRuntimesActive(len(d.entries))
	d.mu.Unlock()
}

// Stop halts the idle monitor. Does not dispose any Runtime.
func (d *Distributed) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}
