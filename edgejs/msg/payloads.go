package msg

// Payload structs are the JSON shape behind Envelope.Payload for each Kind.
// Handlers decode into the matching struct via DecodePayload.

type TimerStart struct {
	ID    uint32 `json:"id"`
	Delay uint32 `json:"delay_ms"`
}

type TimerClear struct {
	ID uint32 `json:"id"`
}

type TimerReady struct {
	ID       uint32 `json:"id"`
	Canceled bool   `json:"canceled"`
}

type HTTPRequest struct {
	ID         uint32              `json:"id"`
	Method     string              `json:"method"`
	RemoteAddr string              `json:"remote_addr"`
	URL        string              `json:"url"`
	Headers    map[string][]string `json:"headers"`
	HasBody    bool                `json:"has_body"`
}

type HTTPResponse struct {
	ID      uint32              `json:"id"`
	Status  int                 `json:"status"`
	Headers map[string][]string `json:"headers"`
	HasBody bool                `json:"has_body"`
}

type StreamChunk struct {
	ID   uint32 `json:"id"`
	Done bool   `json:"done"`
}

type CacheGet struct {
	Key string `json:"key"`
}

type CacheSet struct {
	Key  string            `json:"key"`
	TTL  int64             `json:"ttl_seconds,omitempty"`
	Tags []string          `json:"tags,omitempty"`
	Meta map[string]string `json:"meta,omitempty"`
}

type CacheDel struct {
	Key string `json:"key"`
}

type CacheExpire struct {
	Key string `json:"key"`
	TTL int64  `json:"ttl_seconds"`
}

type CacheSetMeta struct {
	Key  string            `json:"key"`
	Meta map[string]string `json:"meta"`
}

type CachePurgeTag struct {
	Tag string `json:"tag"`
}

type CacheReady struct {
	Found bool              `json:"found"`
	TTL   int64             `json:"ttl_seconds,omitempty"`
	Meta  map[string]string `json:"meta,omitempty"`
}

type DataPut struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	JSON       string `json:"json,omitempty"`
}

type DataGet struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	JSON       string `json:"json,omitempty"`
}

type DataDel struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
}

type DataIncr struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	Field      string `json:"field"`
	Amount     int64  `json:"amount"`
}

type DataDropCollection struct {
	Collection string `json:"collection"`
}

type DNSQuery struct {
	ID    uint32 `json:"id"`
	Name  string `json:"name"`
	QType uint16 `json:"qtype"`
}

type DNSRecord struct {
	Name  string `json:"name"`
	Class uint16 `json:"class"`
	TTL   uint32 `json:"ttl"`
	Type  string `json:"type"`
	Data  string `json:"data"`
}

type DNSResponse struct {
	ID      uint32      `json:"id"`
	Records []DNSRecord `json:"records"`
}

type CryptoDigest struct {
	Algorithm string `json:"algorithm"` // "sha1" | "sha256"
	Data      []byte `json:"data"`
}

type CryptoDigestReady struct {
	Digest []byte `json:"digest"`
}

type CryptoRandomValues struct {
	Length int `json:"length"`
}

type CryptoRandomReady struct {
	Values []byte `json:"values"`
}

type SourceMapLookup struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type SourceMapReady struct {
	Source string `json:"source"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Name   string `json:"name,omitempty"`
}

type LoadModuleRequest struct {
	Specifier       string `json:"specifier"`
	RefererOriginURL string `json:"referer_origin_url,omitempty"`
}

type LoadModuleResponse struct {
	OriginURL string `json:"origin_url"`
	IsWasm    bool   `json:"is_wasm"`
	Source    string `json:"source_code"`
}

type AddEventListener struct {
	EventType string `json:"event_type"` // "fetch" | "resolv"
}

type AcmeGetChallenge struct {
	Host string `json:"host"`
}

type AcmeValidateChallenge struct {
	Host  string `json:"host"`
	Token string `json:"token"`
}

type AcmeChallengeReady struct {
	Found   bool   `json:"found"`
	Content string `json:"content,omitempty"`
}

type ImageTransform struct {
	Op              string  `json:"op"` // currently "webp_encode"
	Lossless        bool    `json:"lossless,omitempty"`
	NearLossless    bool    `json:"near_lossless,omitempty"`
	Quality         float32 `json:"quality,omitempty"`
	AlphaQuality    float32 `json:"alpha_quality,omitempty"`
}

type ImageApplyTransforms struct {
	Transforms []ImageTransform `json:"transforms"`
}

type ImageReady struct {
	InID  uint32 `json:"in_id"`
	OutID uint32 `json:"out_id"`
}

type OSExit struct {
	Code int `json:"code"`
}
