// Package runtime implements the per-app Runtime: it owns one engine
// isolate, its single-threaded event loop, the pending-response/stream/
// timer tables, the optional fetch/resolve event channels, and the store
// handles op handlers forward to. Grounded structurally on
// original_source/src/runtime.rs and stylistically on the teacher's
// system/runtime/runtime.go (accessor-method wrapper around engine+config+
// stores).
package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edgenode/jsruntime/edgejs/engine"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/resolver"
	"github.com/edgenode/jsruntime/edgejs/store"
	"github.com/edgenode/jsruntime/edgejs/logger"
)

// ID identifies an app: (name, version) per the glossary.
type ID struct {
	Name    string
	Version string
}

func (id ID) String() string { return fmt.Sprintf("%s:%s", id.Name, id.Version) }

// Permissions is the Runtime's permission record. AllowOS gates the OSExit
// op; DevTools gates the synchronous LoadModule op handlers use for
// dynamic-import debugging (original_source's rt.dev_tools flag, kept as a
// second field alongside spec.md §3's allow_os rather than folded into it,
// since the two ops they gate are unrelated).
type Permissions struct {
	AllowOS  bool
	DevTools bool
}

// Stores bundles the backend handles op handlers forward to.
type Stores struct {
	Cache store.Cache
	Data  store.Data
	FS    store.FS
	Acme  store.Acme
}

// Event is the tagged variant a host event arrives as.
type Event interface{ isEvent() }

// FetchEvent carries an inbound HTTP request awaiting a JS response.
type FetchEvent struct {
	ID      uint32
	Request msg.HTTPRequest
}

func (*FetchEvent) isEvent() {}

// ResolvEvent carries an inbound DNS query awaiting a JS response.
type ResolvEvent struct {
	ID    uint32
	Query msg.DNSQuery
}

func (*ResolvEvent) isEvent() {}

// Dispatcher is the Op Dispatcher contract a Runtime drives its inbound
// messages through. Defined here (rather than imported from the dispatch
// package) so dispatch can depend on runtime without a cycle.
type Dispatcher interface {
	// Dispatch runs a sync=true message to completion on the calling
	// goroutine and returns its reply envelope (or an error envelope).
	Dispatch(ctx context.Context, rt *Runtime, env *msg.Envelope, raw []byte) *msg.Envelope
	// DispatchAsync runs a sync=false message off the calling goroutine
	// and invokes reply once the handler completes.
	DispatchAsync(ctx context.Context, rt *Runtime, env *msg.Envelope, raw []byte, reply func(*msg.Envelope))
}

// ErrNoListener is returned by DispatchEvent when the app never registered
// a listener for the event's type.
var ErrNoListener = fmt.Errorf("runtime: unavailable: no listener registered")

// Config parameters Runtime construction.
type Config struct {
	Permissions       Permissions
	Stores            Stores
	DefaultWorkingURL string
	Logger            *logger.Logger
	Resolver          resolver.Manager
	Dispatcher        Dispatcher
	Snapshot          string
	SoftHeapLimit     uint64
	HardHeapLimit     uint64
}

// Runtime is the per-app aggregate described in spec.md §3.
type Runtime struct {
	id ID

	lastEventAtNano atomic.Int64
	nextReqID       atomic.Uint32
	nextStreamID    atomic.Uint32

	bridge *engine.Bridge

	loopCh chan func()
	quitCh chan struct{}
	doneCh chan struct{}

	httpPending *PendingTable
	dnsPending  *PendingTable
	streams     *StreamTable
	timers      *TimerTable

	fetchMu sync.Mutex
	fetchCh chan *FetchEvent

	resolvMu sync.Mutex
	resolvCh chan *ResolvEvent

	stores      Stores
	perms       Permissions
	dispatcher  Dispatcher
	resolverMgr resolver.Manager
	moduleCache *resolver.ModuleCache
	logger      *logger.Logger

	disposed atomic.Bool
}

// New constructs a Runtime: spawns its event-loop goroutine, then the
// engine isolate with that Runtime's callbacks wired in as recv_cb/
// print_cb/resolve_cb.
func New(id ID, cfg Config) (*Runtime, error) {
	rt := &Runtime{
		id:          id,
		loopCh:      make(chan func(), 256),
		quitCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		httpPending: NewPendingTable(),
		dnsPending:  NewPendingTable(),
		streams:     NewStreamTable(),
		timers:      NewTimerTable(),
		stores:      cfg.Stores,
		perms:       cfg.Permissions,
		dispatcher:  cfg.Dispatcher,
		resolverMgr: cfg.Resolver,
		moduleCache: resolver.NewModuleCache(),
		logger:      cfg.Logger,
	}
	rt.lastEventAtNano.Store(time.Now().UnixNano())

	go rt.loop()

	bridge, err := engine.New(engine.Config{
		Snapshot:           cfg.Snapshot,
		Recv:               rt.handleRecv,
		Print:              rt.handlePrint,
		Resolve:            rt.handleResolve,
		SoftHeapLimitBytes: cfg.SoftHeapLimit,
		HardHeapLimitBytes: cfg.HardHeapLimit,
	})
	if err != nil {
		close(rt.quitCh)
		<-rt.doneCh
		return nil, fmt.Errorf("runtime: construct isolate for %s: %w", id, err)
	}
	rt.bridge = bridge

	return rt, nil
}

func (rt *Runtime) loop() {
	for {
		select {
		case fn := <-rt.loopCh:
			fn()
		case <-rt.quitCh:
			close(rt.doneCh)
			return
		}
	}
}

// Spawn schedules fn on this Runtime's event loop.
func (rt *Runtime) Spawn(fn func()) {
	select {
	case rt.loopCh <- fn:
	case <-rt.quitCh:
	}
}

// Eval synchronously evaluates top-level source.
func (rt *Runtime) Eval(filename, source string) error {
	return rt.bridge.Eval(filename, source)
}

// Run returns a receiver that fires once the event loop has exited.
func (rt *Runtime) Run() <-chan struct{} {
	return rt.doneCh
}

// HeapStatistics reads through to the bridge; never suspends.
func (rt *Runtime) HeapStatistics() engine.HeapStats {
	return rt.bridge.HeapStatistics()
}

// LastEventAt reports the monotonic timestamp of the most recent dispatched
// event, used by the Selector's idle monitor.
func (rt *Runtime) LastEventAt() time.Time {
	return time.Unix(0, rt.lastEventAtNano.Load())
}

func (rt *Runtime) touchLastEvent() {
	rt.lastEventAtNano.Store(time.Now().UnixNano())
}

// NextRequestID allocates a fresh request-id, unique while pending (ids are
// never reused before their row is cleared, since the allocator is
// monotonic for the Runtime's lifetime).
func (rt *Runtime) NextRequestID() uint32 {
	return rt.nextReqID.Add(1)
}

// NextStreamID allocates a fresh stream-id from a counter independent of
// the request-id allocator, matching original_source's separate
// NEXT_EVENT_ID atomic for stream ids.
func (rt *Runtime) NextStreamID() uint32 {
	return rt.nextStreamID.Add(1)
}

// Push delivers a host-initiated message (cmd_id 0) to JS by encoding env
// and sending it over the bridge. Used by op handlers that must notify JS
// outside of any request/reply correlation: TimerReady, HttpRequest/
// DnsRequest event pushes, and StreamChunk.
func (rt *Runtime) Push(env *msg.Envelope, raw []byte) error {
	buf, err := msg.Encode(env)
	if err != nil {
		return fmt.Errorf("runtime: encode push %s: %w", env.Kind, err)
	}
	rt.bridge.Send(buf, raw)
	return nil
}

// ID returns the app identity this Runtime serves.
func (rt *Runtime) ID() ID { return rt.id }

// Bridge exposes the engine bridge for op handlers that must call back into
// JS (e.g. constructing Response objects).
func (rt *Runtime) Bridge() *engine.Bridge { return rt.bridge }

// Logger returns this Runtime's logger.
func (rt *Runtime) Logger() *logger.Logger { return rt.logger }

// Stores returns the backing stores configured for this Runtime.
func (rt *Runtime) Stores() Stores { return rt.stores }

// Permissions returns this Runtime's permission record.
func (rt *Runtime) Permissions() Permissions { return rt.perms }

// ModuleCache returns the write-once per-identity-hash metadata cache.
func (rt *Runtime) ModuleCache() *resolver.ModuleCache { return rt.moduleCache }

// ResolverMgr exposes the module resolver pipeline for the LoadModule op,
// which resolves a specifier's source for dev-tools inspection without
// compiling or installing it into the isolate the way a dynamic import does.
func (rt *Runtime) ResolverMgr() resolver.Manager { return rt.resolverMgr }

// HTTPPending returns the pending-response table for HTTP ingress.
func (rt *Runtime) HTTPPending() *PendingTable { return rt.httpPending }

// DNSPending returns the pending-response table for DNS ingress.
func (rt *Runtime) DNSPending() *PendingTable { return rt.dnsPending }

// Streams returns the stream table.
func (rt *Runtime) Streams() *StreamTable { return rt.streams }

// Timers returns the timer table.
func (rt *Runtime) Timers() *TimerTable { return rt.timers }

// RegisterListener marks eventType ("fetch" | "resolv") as having a JS-side
// listener, lazily creating its event channel. Called by the
// AddEventListener op handler.
func (rt *Runtime) RegisterListener(eventType string) {
	switch eventType {
	case "fetch":
		rt.fetchMu.Lock()
		if rt.fetchCh == nil {
			rt.fetchCh = make(chan *FetchEvent, 64)
		}
		rt.fetchMu.Unlock()
	case "resolv":
		rt.resolvMu.Lock()
		if rt.resolvCh == nil {
			rt.resolvCh = make(chan *ResolvEvent, 64)
		}
		rt.resolvMu.Unlock()
	}
}

// FetchEvents exposes the fetch channel for the Op Dispatcher's
// AddEventListener-driven JS-side pump, nil until a listener is registered.
func (rt *Runtime) FetchEvents() <-chan *FetchEvent {
	rt.fetchMu.Lock()
	defer rt.fetchMu.Unlock()
	return rt.fetchCh
}

// ResolvEvents is the DNS analog of FetchEvents.
func (rt *Runtime) ResolvEvents() <-chan *ResolvEvent {
	rt.resolvMu.Lock()
	defer rt.resolvMu.Unlock()
	return rt.resolvCh
}

// DispatchEvent delivers ev to the matching listener channel, reserving a
// pending-response row keyed on the event's id, and returns a one-shot
// receiver for the JS reply. Returns ErrNoListener if no listener of that
// event's type is registered. Updates LastEventAt on success.
func (rt *Runtime) DispatchEvent(ctx context.Context, ev Event) (<-chan *msg.Envelope, error) {
	switch e := ev.(type) {
	case *FetchEvent:
		rt.fetchMu.Lock()
		if rt.fetchCh == nil {
			rt.fetchMu.Unlock()
			return nil, ErrNoListener
		}
		replyCh := rt.httpPending.Reserve(e.ID)
		select {
		case rt.fetchCh <- e:
			rt.fetchMu.Unlock()
		case <-ctx.Done():
			rt.fetchMu.Unlock()
			rt.httpPending.Drop(e.ID)
			return nil, ctx.Err()
		}
		rt.touchLastEvent()
		return replyCh, nil

	case *ResolvEvent:
		rt.resolvMu.Lock()
		if rt.resolvCh == nil {
			rt.resolvMu.Unlock()
			return nil, ErrNoListener
		}
		replyCh := rt.dnsPending.Reserve(e.ID)
		select {
		case rt.resolvCh <- e:
			rt.resolvMu.Unlock()
		case <-ctx.Done():
			rt.resolvMu.Unlock()
			rt.dnsPending.Drop(e.ID)
			return nil, ctx.Err()
		}
		rt.touchLastEvent()
		return replyCh, nil

	default:
		return nil, fmt.Errorf("runtime: unknown event type %T", ev)
	}
}

// Dispose closes both event channels so no further listener invocations can
// occur and any pumpFetchEvents/pumpResolvEvents goroutine ranging over them
// exits, clears the timer table (canceling every scheduled timer), stops the
// event loop, and disposes the bridge. Idempotent; only the first call does
// anything. The channels are closed under the same mutex DispatchEvent sends
// under, so a send can never race a close: DispatchEvent either completes
// its send before Dispose acquires the lock, or sees a nil channel after.
func (rt *Runtime) Dispose() {
	if !rt.disposed.CompareAndSwap(false, true) {
		return
	}

	rt.fetchMu.Lock()
	if rt.fetchCh != nil {
		close(rt.fetchCh)
		rt.fetchCh = nil
	}
	rt.fetchMu.Unlock()

	rt.resolvMu.Lock()
	if rt.resolvCh != nil {
		close(rt.resolvCh)
		rt.resolvCh = nil
	}
	rt.resolvMu.Unlock()

	for id := range snapshotTimerIDs(rt.timers) {
		rt.timers.Clear(id)
	}

	close(rt.quitCh)
	<-rt.doneCh

	rt.bridge.Dispose()
}

// Disposed reports whether Dispose has run.
func (rt *Runtime) Disposed() bool { return rt.disposed.Load() }

func snapshotTimerIDs(t *TimerTable) map[uint32]struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make(map[uint32]struct{}, len(t.cancel))
	for id := range t.cancel {
		ids[id] = struct{}{}
	}
	return ids
}

// handleRecv is the bridge's recv_cb: JS sent a message. Sync messages run
// to completion and answer inline; async messages go to the dispatcher's
// DispatchAsync and answer later via bridge.Send.
func (rt *Runtime) handleRecv(buf []byte, raw []byte) []byte {
	env, err := msg.Decode(buf)
	if err != nil {
		rt.logger.WithField("runtime", rt.id.String()).WithField("error", err).Error("runtime: decode inbound message")
		return nil
	}
	env.Raw = raw

	if rt.dispatcher == nil {
		return nil
	}

	if env.Sync {
		reply := rt.dispatcher.Dispatch(context.Background(), rt, env, raw)
		if reply == nil {
			return nil
		}
		out, err := msg.Encode(reply)
		if err != nil {
			return nil
		}
		return out
	}

	rt.dispatcher.DispatchAsync(context.Background(), rt, env, raw, func(reply *msg.Envelope) {
		if reply == nil {
			return
		}
		out, err := msg.Encode(reply)
		if err != nil {
			rt.logger.WithField("runtime", rt.id.String()).WithField("error", err).Error("runtime: encode async reply")
			return
		}
		rt.bridge.Send(out, reply.Raw)
	})
	return nil
}

// handlePrint is the bridge's print_cb, routing console/runtime logs to the
// configured logger's app/runtime sinks.
func (rt *Runtime) handlePrint(level, message string) {
	entry := rt.logger.WithField("runtime", rt.id.String()).WithField("sink", level)
	entry.Info(message)
}

// handleResolve is the bridge's resolve_cb: looks up the referrer's loaded
// module, asks the resolver manager to resolve specifier against it,
// compiles the result, inserts it into the write-once module cache under a
// deterministic identity hash, and returns the compiled module.
func (rt *Runtime) handleResolve(specifier string, refererHash uint64) (*engine.CompiledModule, error) {
	var refInfo *resolver.RefererInfo
	if mod, ok := rt.moduleCache.Get(refererHash); ok {
		refInfo = &resolver.RefererInfo{OriginURL: mod.OriginURL, IsWasm: mod.Loaded.IsWasm}
	}

	loaded, err := rt.resolverMgr.Resolve(specifier, refInfo)
	if err != nil {
		return nil, fmt.Errorf("runtime: resolve %s: %w", specifier, err)
	}

	compiled, err := rt.bridge.CompileModule(loaded.OriginURL, loaded.Loaded.Source, loaded.Loaded.IsWasm)
	if err != nil {
		return nil, fmt.Errorf("runtime: compile %s: %w", loaded.OriginURL, err)
	}

	if !rt.moduleCache.InsertIfAbsent(compiled.IdentityHash, loaded) {
		rt.logger.WithField("origin_url", loaded.OriginURL).Error("runtime: module identity hash already recorded")
	}

	return compiled, nil
}
