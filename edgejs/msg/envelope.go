package msg

import (
	"encoding/json"
	"fmt"
)

// Envelope is the one wire record every host<->JS crossing uses. CmdID==0
// marks a host-initiated push; a nonzero CmdID identifies the reply to a
// JS-originated request with the same id.
type Envelope struct {
	CmdID       uint32          `json:"cmd_id"`
	Sync        bool            `json:"sync"`
	Kind        Kind            `json:"msg_type"`
	ErrorKind   ErrorKind       `json:"error_kind,omitempty"`
	ErrorString string          `json:"error_string,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`

	// Raw is the out-of-band buffer for bodies too large to inline (body
	// chunks, image bytes). It never round-trips through Encode/Decode —
	// callers carry it alongside the envelope the way the bridge's `send`
	// takes an optional raw_buf next to the schema-encoded buffer.
	Raw []byte `json:"-"`
}

// IsError reports whether the envelope carries a handler failure rather
// than a payload.
func (e *Envelope) IsError() bool {
	return e.ErrorKind != ""
}

// Encode renders the envelope (without Raw) to its wire form.
func Encode(e *Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a wire-form envelope. Raw is left empty; the caller attaches
// it from the side channel it arrived on.
func Decode(buf []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(buf, &e); err != nil {
		return nil, fmt.Errorf("msg: decode envelope: %w", err)
	}
	return &e, nil
}

// NewRequest builds a fresh envelope carrying payload, marshaled to JSON.
func NewRequest(cmdID uint32, sync bool, kind Kind, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("msg: marshal %s payload: %w", kind, err)
	}
	return &Envelope{CmdID: cmdID, Sync: sync, Kind: kind, Payload: raw}, nil
}

// NewReply answers req with a payload, echoing its CmdID.
func NewReply(req *Envelope, kind Kind, payload any) (*Envelope, error) {
	return NewRequest(req.CmdID, req.Sync, kind, payload)
}

// NewError answers req with an error envelope, echoing its CmdID.
func NewError(req *Envelope, kind ErrorKind, err error) *Envelope {
	return &Envelope{
		CmdID:       req.CmdID,
		Sync:        req.Sync,
		Kind:        req.Kind,
		ErrorKind:   kind,
		ErrorString: err.Error(),
	}
}

// DecodePayload unmarshals the envelope's payload into v.
func DecodePayload(e *Envelope, v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("msg: %s: empty payload", e.Kind)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("msg: %s: decode payload: %w", e.Kind, err)
	}
	return nil
}
