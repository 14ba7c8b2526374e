// Package ops implements the concrete host-side operations exposed to JS
// over the message bus (spec.md §4.H): timers, streams, outbound/inbound
// HTTP, cache, data, DNS, crypto, source maps, dynamic module loads, ACME
// challenges, image transforms, and event-listener registration. Each
// handler is grounded on its original_source/src/ops/*.rs counterpart,
// translated from a future-returning Rust fn into a Go function the Op
// Dispatcher (edgejs/dispatch) drives synchronously or on a worker
// goroutine depending on the inbound envelope's sync flag.
package ops

import (
	"context"

	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// Handler is the shape every op function implements: decode the envelope's
// payload, perform the operation (possibly suspending on I/O), and return
// either a reply envelope (built via msg.NewReply) or an error. A nil,nil
// return means "no reply payload" — the dispatcher still signals completion
// for async calls with a bare envelope, per spec.md §4.C.
type Handler func(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error)

// Table returns the static msg.Kind -> Handler map the Op Dispatcher drives
// inbound messages through, the Go translation of
// original_source/src/msg_handler.rs's DefaultMessageHandler match table.
func Table() map[msg.Kind]Handler {
	return map[msg.Kind]Handler{
		msg.KindTimerStart: TimerStart,
		msg.KindTimerClear: TimerClear,

		msg.KindHTTPRequest:  Fetch,
		msg.KindHTTPResponse: HTTPResponse,
		msg.KindStreamChunk:  StreamChunk,

		msg.KindCacheGet:            CacheGet,
		msg.KindCacheSet:            CacheSet,
		msg.KindCacheDel:            CacheDel,
		msg.KindCacheExpire:         CacheExpire,
		msg.KindCacheSetMeta:        CacheSetMeta,
		msg.KindCachePurgeTag:       CachePurgeTag,
		msg.KindCacheNotifyDel:      CacheNotifyDel,
		msg.KindCacheNotifyPurgeTag: CacheNotifyPurgeTag,

		msg.KindDataPut:            DataPut,
		msg.KindDataGet:            DataGet,
		msg.KindDataDel:            DataDel,
		msg.KindDataIncr:           DataIncr,
		msg.KindDataDropCollection: DataDropCollection,

		msg.KindDNSQuery:    DNSQuery,
		msg.KindDNSResponse: DNSResponse,

		msg.KindCryptoDigest:       CryptoDigest,
		msg.KindCryptoRandomValues: CryptoRandomValues,

		msg.KindSourceMapLookup: SourceMapLookup,

		msg.KindLoadModuleRequest: LoadModule,

		msg.KindAddEventListener: AddEventListener,

		msg.KindAcmeGetChallenge:      AcmeGetChallenge,
		msg.KindAcmeValidateChallenge: AcmeValidateChallenge,

		msg.KindImageApplyTransforms: ImageApplyTransforms,

		msg.KindOSExit: OSExit,
	}
}
