package ops

import (
	"context"
	"os"

	"github.com/edgenode/jsruntime/edgejs/apperr"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// OSExit terminates the host process with the requested code, gated on
// Permissions.AllowOS. Grounded verbatim on original_source/src/ops/os.rs's
// op_exit, which calls std::process::exit directly once rt.permissions
// passes check_os — this op's blast radius (the whole process, not just
// the calling app's Runtime) is inherited from the original, not invented
// here; only apps explicitly granted AllowOS can reach it.
func OSExit(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	if !rt.Permissions().AllowOS {
		return nil, apperr.ErrPermissionDenied
	}

	var p msg.OSExit
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}

	os.Exit(p.Code)
	return nil, nil
}
