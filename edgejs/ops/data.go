package ops

import (
	"context"

	"github.com/edgenode/jsruntime/edgejs/apperr"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
	"github.com/edgenode/jsruntime/edgejs/store"
)

// DataGet forwards to the data store, replying with a DataGet-shaped
// CacheReady-style JSON payload (found/json) — grounded on
// original_source/src/ops/data.rs's op_data_get.
func DataGet(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.DataGet
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	j, found, err := rt.Stores().Data.Get(ctx, p.Collection, p.Key)
	if err != nil {
		return nil, apperr.New(msg.ErrIO, err)
	}
	reply, err := msg.NewReply(env, msg.KindDataGet, msg.DataGet{Collection: p.Collection, Key: p.Key, JSON: j})
	if err != nil {
		return nil, apperr.New(msg.ErrInternal, err)
	}
	if !found {
		return nil, apperr.New(msg.ErrNotFound, store.ErrNotFound)
	}
	return reply, nil
}

func DataPut(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.DataPut
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	if err := rt.Stores().Data.Put(ctx, p.Collection, p.Key, p.JSON); err != nil {
		return nil, apperr.New(msg.ErrIO, err)
	}
	return nil, nil
}

func DataDel(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.DataDel
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	if err := rt.Stores().Data.Del(ctx, p.Collection, p.Key); err != nil {
		return nil, apperr.New(msg.ErrIO, err)
	}
	return nil, nil
}

func DataIncr(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.DataIncr
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	newVal, err := rt.Stores().Data.Incr(ctx, p.Collection, p.Key, p.Field, p.Amount)
	if err != nil {
		return nil, apperr.New(msg.ErrIO, err)
	}
	reply, err := msg.NewReply(env, msg.KindDataIncr, msg.DataIncr{
		Collection: p.Collection, Key: p.Key, Field: p.Field, Amount: newVal,
	})
	if err != nil {
		return nil, apperr.New(msg.ErrInternal, err)
	}
	return reply, nil
}

func DataDropCollection(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.DataDropCollection
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	if err := rt.Stores().Data.DropCollection(ctx, p.Collection); err != nil {
		return nil, apperr.New(msg.ErrIO, err)
	}
	return nil, nil
}
