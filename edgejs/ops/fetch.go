package ops

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/edgenode/jsruntime/edgejs/apperr"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// httpClient is the process-wide outbound HTTP client pool spec.md §5
// calls out as living on its own executor, shared by every Runtime's
// op_fetch calls rather than built per isolate. Grounded on
// original_source/src/ops/fetch.rs's lazy_static HTTP_CLIENT.
var httpClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Fetch performs an outbound client request on JS's behalf (op_fetch): it
// builds the request, sends a static or streaming body, and on headers
// received replies with a FetchHttpResponse referencing a fresh stream-id,
// then pumps the response body over StreamChunk pushes. Grounded on
// original_source/src/ops/fetch.rs's op_fetch.
func Fetch(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.HTTPRequest
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}

	var body io.Reader
	if p.HasBody {
		if len(env.Raw) > 0 {
			body = bytes.NewReader(env.Raw)
		} else {
			ch := rt.Streams().Open(p.ID)
			body = &chanReader{ch: ch}
		}
	}

	req, err := http.NewRequestWithContext(ctx, p.Method, p.URL, body)
	if err != nil {
		return nil, apperr.New(msg.ErrInvalidArgument, err)
	}
	for k, vs := range p.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("X-Request-Id") == "" {
		req.Header.Set("X-Request-Id", uuid.NewString())
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, apperr.New(msg.ErrIO, err)
	}

	hasBody := resp.Body != nil && resp.ContentLength != 0
	streamID := rt.NextStreamID()
	if hasBody {
		go func() {
			defer resp.Body.Close()
			pumpStream(rt, streamID, resp.Body.Read)
		}()
	} else {
		resp.Body.Close()
	}

	reply, err := msg.NewReply(env, msg.KindFetchHTTPResponse, msg.HTTPResponse{
		ID:      streamID,
		Status:  resp.StatusCode,
		Headers: resp.Header,
		HasBody: hasBody,
	})
	if err != nil {
		return nil, apperr.New(msg.ErrInternal, err)
	}
	return reply, nil
}

// HTTPResponse handles JS's reply to an inbound fetch ingress event: it
// completes the pending-response row keyed by the envelope's request id,
// carrying the static raw buffer (if any) on the completed envelope;
// DispatchFetch turns that buffer into the body, or opens a stream for a
// chunked body when there is none. Grounded on op_http_response.
func HTTPResponse(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.HTTPResponse
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}

	reply := &msg.Envelope{CmdID: env.CmdID, Sync: env.Sync, Kind: msg.KindHTTPResponse, Payload: env.Payload, Raw: env.Raw}
	if !rt.HTTPPending().Complete(p.ID, reply) {
		return nil, apperr.Newf(msg.ErrNotFound, "no pending http response for id %d", p.ID)
	}
	return nil, nil
}

// chanReader adapts a byte-chunk channel (the host side of a streamed
// request body) into an io.Reader for net/http's request body.
type chanReader struct {
	ch   <-chan []byte
	rest []byte
}

func (r *chanReader) Read(p []byte) (int, error) {
	for len(r.rest) == 0 {
		chunk, ok := <-r.ch
		if !ok {
			return 0, io.EOF
		}
		r.rest = chunk
	}
	n := copy(p, r.rest)
	r.rest = r.rest[n:]
	return n, nil
}
