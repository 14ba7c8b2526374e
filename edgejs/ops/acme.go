package ops

import (
	"context"

	"github.com/edgenode/jsruntime/edgejs/apperr"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// AcmeGetChallenge looks up the http-01 challenge content published for
// host, with no token to check against — the ".well-known/acme-challenge"
// serving path, as opposed to AcmeValidateChallenge's token-checking path.
// Grounded on original_source/src/ops/acme.rs's op_validate_challenge,
// adapted here to the read-only lookup half of the ACME flow: both ops
// ultimately read through the same Acme store, for the same reason the
// original leaves "no acme store configured" as a request-time error
// instead of a construction-time one (a single Runtime may serve apps that
// never touch ACME at all).
func AcmeGetChallenge(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.AcmeGetChallenge
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	return acmeReply(ctx, rt, env, p.Host, "")
}

// AcmeValidateChallenge checks host's published challenge content against
// token, grounded directly on op_validate_challenge.
func AcmeValidateChallenge(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.AcmeValidateChallenge
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	return acmeReply(ctx, rt, env, p.Host, p.Token)
}

func acmeReply(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope, host, token string) (*msg.Envelope, error) {
	if rt.Stores().Acme == nil {
		return nil, apperr.New(msg.ErrUnavailable, apperr.ErrUnavailable)
	}

	content, found, err := rt.Stores().Acme.ValidateChallenge(ctx, host, token)
	if err != nil {
		return nil, apperr.New(msg.ErrIO, err)
	}

	resp := msg.AcmeChallengeReady{Found: found}
	if found {
		resp.Content = string(content)
	}
	reply, err := msg.NewReply(env, msg.KindAcmeChallengeReady, resp)
	if err != nil {
		return nil, apperr.New(msg.ErrInternal, err)
	}
	return reply, nil
}
