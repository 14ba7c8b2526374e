// Package msg defines the binary-ish message schema exchanged between the
// engine bridge and host-side op handlers: one envelope type carrying a
// tagged union of payload kinds, correlated by cmd_id.
package msg

// Kind tags the concrete payload carried by an Envelope. Grouped to match
// the dispatch table the op handlers register against.
type Kind string

const (
	KindTimerStart Kind = "timer_start"
	KindTimerClear Kind = "timer_clear"
	KindTimerReady Kind = "timer_ready"

	KindHTTPRequest       Kind = "http_request"
	KindHTTPResponse      Kind = "http_response"
	KindFetchHTTPResponse Kind = "fetch_http_response"
	KindStreamChunk       Kind = "stream_chunk"

	KindCacheGet            Kind = "cache_get"
	KindCacheSet            Kind = "cache_set"
	KindCacheDel            Kind = "cache_del"
	KindCacheExpire         Kind = "cache_expire"
	KindCacheSetMeta        Kind = "cache_set_meta"
	KindCachePurgeTag       Kind = "cache_purge_tag"
	KindCacheNotifyDel      Kind = "cache_notify_del"
	KindCacheNotifyPurgeTag Kind = "cache_notify_purge_tag"
	KindCacheReady          Kind = "cache_ready"

	KindDataPut            Kind = "data_put"
	KindDataGet            Kind = "data_get"
	KindDataDel            Kind = "data_del"
	KindDataIncr           Kind = "data_incr"
	KindDataDropCollection Kind = "data_drop_collection"

	KindDNSQuery    Kind = "dns_query"
	KindDNSResponse Kind = "dns_response"
	KindDNSRequest  Kind = "dns_request"

	KindImageApplyTransforms Kind = "image_apply_transforms"
	KindImageReady           Kind = "image_ready"

	KindSourceMapLookup Kind = "source_map_lookup"
	KindSourceMapReady  Kind = "source_map_ready"

	KindLoadModuleRequest  Kind = "load_module_request"
	KindLoadModuleResponse Kind = "load_module_response"

	KindCryptoDigest        Kind = "crypto_digest"
	KindCryptoRandomValues  Kind = "crypto_random_values"

	KindAddEventListener Kind = "add_event_listener"

	KindAcmeGetChallenge      Kind = "acme_get_challenge"
	KindAcmeValidateChallenge Kind = "acme_validate_challenge"
	KindAcmeChallengeReady    Kind = "acme_challenge_ready"

	KindOSExit Kind = "os_exit"
)

// ErrorKind is the closed taxonomy every op handler maps its failures into.
type ErrorKind string

const (
	ErrNotFound         ErrorKind = "not_found"
	ErrPermissionDenied ErrorKind = "permission_denied"
	ErrIO               ErrorKind = "io"
	ErrParse            ErrorKind = "parse"
	ErrUnavailable      ErrorKind = "unavailable"
	ErrCanceled         ErrorKind = "canceled"
	ErrInvalidArgument  ErrorKind = "invalid_argument"
	ErrInternal         ErrorKind = "internal"
)
