// Package ingress implements Event Ingress (spec.md §4.F): the host-facing
// entry points that hand an inbound HTTP request or DNS query to a
// Runtime's registered listener and await the JS-side reply, bridging the
// outside world's blocking request/response shape onto the Runtime's
// cmd_id-correlated pending tables. Grounded on original_source/src/
// runtime.rs's dispatch_event plus the listener/registration half of
// ops/events.rs; the per-modality response shapes follow ops/fetch.rs and
// ops/dns.rs.
package ingress

import (
	"context"
	"fmt"

	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// JsHTTPResponse is what DispatchFetch returns once the fetch listener
// answers: status/headers plus, when HasBody, a channel of body chunks
// terminated by channel close (mirroring StreamTable.Open's contract).
type JsHTTPResponse struct {
	Status     int
	Headers    map[string][]string
	HasBody    bool
	BodyStream <-chan []byte
}

// DispatchFetch allocates a request-id, registers a pending row via
// Runtime.DispatchEvent, and awaits either the JS reply or ctx
// cancellation. Returns an error classifiable as unavailable (via
// runtime.ErrNoListener) if the app never registered a fetch listener —
// spec.md §4.F's explicit "no listener" rejection.
func DispatchFetch(ctx context.Context, rt *runtime.Runtime, req msg.HTTPRequest) (*JsHTTPResponse, error) {
	req.ID = rt.NextRequestID()

	replyCh, err := rt.DispatchEvent(ctx, &runtime.FetchEvent{ID: req.ID, Request: req})
	if err != nil {
		return nil, fmt.Errorf("ingress: dispatch fetch: %w", err)
	}

	select {
	case env := <-replyCh:
		if env == nil {
			return nil, fmt.Errorf("ingress: fetch %d: runtime disposed before reply", req.ID)
		}
		var p msg.HTTPResponse
		if err := msg.DecodePayload(env, &p); err != nil {
			return nil, fmt.Errorf("ingress: decode http_response: %w", err)
		}
		resp := &JsHTTPResponse{Status: p.Status, Headers: p.Headers, HasBody: p.HasBody}
		if p.HasBody {
			if len(env.Raw) > 0 {
				ch := make(chan []byte, 1)
				ch <- env.Raw
				close(ch)
				resp.BodyStream = ch
			} else {
				resp.BodyStream = rt.Streams().Open(p.ID)
			}
		}
		return resp, nil
	case <-ctx.Done():
		rt.HTTPPending().Drop(req.ID)
		return nil, ctx.Err()
	}
}

// JsDNSResponse is what DispatchResolv returns: the typed record set the
// listener answered with.
type JsDNSResponse struct {
	Records []msg.DNSRecord
}

// DispatchResolv is the DNS analog of DispatchFetch: allocates a
// request-id, registers a pending row, and awaits the resolv listener's
// DnsResponse reply.
func DispatchResolv(ctx context.Context, rt *runtime.Runtime, query msg.DNSQuery) (*JsDNSResponse, error) {
	query.ID = rt.NextRequestID()

	replyCh, err := rt.DispatchEvent(ctx, &runtime.ResolvEvent{ID: query.ID, Query: query})
	if err != nil {
		return nil, fmt.Errorf("ingress: dispatch resolv: %w", err)
	}

	select {
	case env := <-replyCh:
		if env == nil {
			return nil, fmt.Errorf("ingress: resolv %d: runtime disposed before reply", query.ID)
		}
		var p msg.DNSResponse
		if err := msg.DecodePayload(env, &p); err != nil {
			return nil, fmt.Errorf("ingress: decode dns_response: %w", err)
		}
		return &JsDNSResponse{Records: p.Records}, nil
	case <-ctx.Done():
		rt.DNSPending().Drop(query.ID)
		return nil, ctx.Err()
	}
}
