package ops

import (
	"context"
	"sync"

	smlib "github.com/go-sourcemap/sourcemap"

	"github.com/edgenode/jsruntime/edgejs/apperr"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// sourceMapQuery is one (line, column) lookup posted to the background
// source-mapper goroutine, answered on reply.
type sourceMapQuery struct {
	line, column int
	reply        chan msg.SourceMapReady
}

var (
	smMu    sync.Mutex
	smQuery chan sourceMapQuery
)

// SetV8EnvSourceMap parses the runtime's bundled bootstrap source map and
// starts the single background goroutine that owns it, the Go analog of
// original_source/src/ops/source_map.rs's lazy_static SM_CHAN: rather than
// touching a shared sourcemap.Consumer from every Runtime goroutine that
// handles a SourceMapLookup op, all lookups funnel through one worker.
// Safe to call once at process startup; a second call replaces the worker.
func SetV8EnvSourceMap(raw []byte) error {
	consumer, err := smlib.Parse("v8env.js.map", raw)
	if err != nil {
		return err
	}

	q := make(chan sourceMapQuery, 64)
	go func() {
		for req := range q {
			file, _, line, col, ok := consumer.Source(req.line, req.column)
			if !ok {
				req.reply <- msg.SourceMapReady{Line: req.line, Column: req.column}
				continue
			}
			req.reply <- msg.SourceMapReady{Source: file, Line: line, Column: col}
		}
	}()

	smMu.Lock()
	smQuery = q
	smMu.Unlock()
	return nil
}

// SourceMapLookup translates a (line, column) position in the runtime's
// bundled bootstrap back to its original source location. Grounded on
// original_source/src/ops/source_map.rs's op_source_map; if no source map
// has been installed (SetV8EnvSourceMap never called), the position is
// echoed back unchanged rather than erroring, matching the original's
// fallback of returning the untranslated position when the filename isn't
// the bundled v8env.
func SourceMapLookup(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.SourceMapLookup
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}

	smMu.Lock()
	q := smQuery
	smMu.Unlock()

	var resp msg.SourceMapReady
	if q == nil {
		resp = msg.SourceMapReady{Line: p.Line, Column: p.Column}
	} else {
		replyCh := make(chan msg.SourceMapReady, 1)
		select {
		case q <- sourceMapQuery{line: p.Line, column: p.Column, reply: replyCh}:
		case <-ctx.Done():
			return nil, apperr.New(msg.ErrCanceled, ctx.Err())
		}
		select {
		case resp = <-replyCh:
		case <-ctx.Done():
			return nil, apperr.New(msg.ErrCanceled, ctx.Err())
		}
	}

	reply, err := msg.NewReply(env, msg.KindSourceMapReady, resp)
	if err != nil {
		return nil, apperr.New(msg.ErrInternal, err)
	}
	return reply, nil
}
