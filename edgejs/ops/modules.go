package ops

import (
	"context"

	"github.com/edgenode/jsruntime/edgejs/apperr"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/resolver"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// LoadModule resolves a specifier's source for dev-tools inspection (the
// editor "jump to definition"/debugger use case), without compiling or
// installing the result into the isolate. Gated on Permissions.DevTools.
// Grounded on original_source/src/ops/modules.rs's op_load_module, which
// rejects with permission_denied when rt.dev_tools is false and otherwise
// replies with the resolved module's origin URL and raw source text.
func LoadModule(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	if !rt.Permissions().DevTools {
		return nil, apperr.ErrPermissionDenied
	}

	var p msg.LoadModuleRequest
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}

	var referer *resolver.RefererInfo
	if p.RefererOriginURL != "" {
		referer = &resolver.RefererInfo{OriginURL: p.RefererOriginURL}
	}

	loaded, err := rt.ResolverMgr().Resolve(p.Specifier, referer)
	if err != nil {
		return nil, apperr.New(msg.ErrNotFound, err)
	}

	reply, err := msg.NewReply(env, msg.KindLoadModuleResponse, msg.LoadModuleResponse{
		OriginURL: loaded.OriginURL,
		IsWasm:    loaded.Loaded.IsWasm,
		Source:    loaded.Loaded.Source,
	})
	if err != nil {
		return nil, apperr.New(msg.ErrInternal, err)
	}
	return reply, nil
}
