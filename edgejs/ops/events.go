package ops

import (
	"context"

	"github.com/edgenode/jsruntime/edgejs/apperr"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// AddEventListener registers the app's JS-side listener for "fetch" or
// "resolv" events and spawns the goroutine that pumps Runtime.FetchEvents/
// ResolvEvents into host-initiated KindHTTPRequest/KindDNSRequest pushes.
// Grounded on original_source/src/ops/events.rs's op_add_event_ln, which
// spawns one future per event type that drains an mpsc channel and pushes
// each item to JS with cmd_id 0; the Go translation drains a buffered
// channel instead and exits once the Runtime disposes and closes it.
func AddEventListener(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.AddEventListener
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}

	switch p.EventType {
	case "fetch":
		rt.RegisterListener("fetch")
		go pumpFetchEvents(rt)
	case "resolv":
		rt.RegisterListener("resolv")
		go pumpResolvEvents(rt)
	default:
		return nil, apperr.Newf(msg.ErrInvalidArgument, "unknown event type %q", p.EventType)
	}

	return nil, nil
}

func pumpFetchEvents(rt *runtime.Runtime) {
	for ev := range rt.FetchEvents() {
		pushReq, err := msg.NewRequest(0, false, msg.KindHTTPRequest, ev.Request)
		if err != nil {
			rt.Logger().WithField("error", err).Error("ops: build http_request push")
			continue
		}
		if err := rt.Push(pushReq, nil); err != nil {
			rt.Logger().WithField("error", err).Error("ops: push http_request")
		}
	}
}

func pumpResolvEvents(rt *runtime.Runtime) {
	for ev := range rt.ResolvEvents() {
		dnsReq, err := msg.NewRequest(0, false, msg.KindDNSRequest, ev.Query)
		if err != nil {
			rt.Logger().WithField("error", err).Error("ops: build dns_request push")
			continue
		}
		if err := rt.Push(dnsReq, nil); err != nil {
			rt.Logger().WithField("error", err).Error("ops: push dns_request")
		}
	}
}
