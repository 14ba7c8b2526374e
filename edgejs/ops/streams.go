package ops

import (
	"context"

	"github.com/edgenode/jsruntime/edgejs/apperr"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// StreamChunk appends one chunk to the named stream, closing the row on
// done=true. Grounded on original_source/src/ops/streams.rs's
// op_stream_chunk. The chunk's bytes travel in env.Raw (the out-of-band
// raw buffer), matching the "bodies larger than a small inline threshold"
// rule in spec.md §4.B.
func StreamChunk(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.StreamChunk
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	if ok := rt.Streams().Push(p.ID, env.Raw, p.Done); !ok {
		return nil, apperr.Newf(msg.ErrNotFound, "stream %d not open", p.ID)
	}
	return nil, nil
}

// sendStreamChunk pushes one chunk of an open stream to JS, closing with
// done=true on the final call.
func sendStreamChunk(rt *runtime.Runtime, streamID uint32, chunk []byte, done bool) error {
	env, err := msg.NewRequest(0, false, msg.KindStreamChunk, msg.StreamChunk{ID: streamID, Done: done})
	if err != nil {
		return err
	}
	return rt.Push(env, chunk)
}

// pumpStream drains src over a sequence of StreamChunk pushes, one stream-
// id per call, closing with a final done=true chunk once src is exhausted
// or errors. Run on a worker goroutine by callers (outbound fetch, cache
// get) so it never blocks the isolate thread.
func pumpStream(rt *runtime.Runtime, streamID uint32, read func(buf []byte) (int, error)) {
	buf := make([]byte, 32*1024)
	for {
		n, err := read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if sendErr := sendStreamChunk(rt, streamID, chunk, false); sendErr != nil {
				rt.Logger().WithField("stream_id", streamID).WithField("error", sendErr).Error("ops: push stream chunk")
				return
			}
		}
		if err != nil {
			_ = sendStreamChunk(rt, streamID, nil, true)
			return
		}
	}
}
