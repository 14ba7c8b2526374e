package ops

import (
	"bytes"
	"context"
	"time"

	"github.com/edgenode/jsruntime/edgejs/apperr"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
	"github.com/edgenode/jsruntime/edgejs/store"
)

// CacheGet looks up key and replies with a CacheReady control message
// (found/ttl/meta), then pumps the entry's body over StreamChunk pushes.
// Grounded on original_source/src/ops/cache.rs's op_cache_get.
func CacheGet(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.CacheGet
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}

	entry, err := rt.Stores().Cache.Get(ctx, p.Key)
	if err == store.ErrNotFound {
		reply, buildErr := msg.NewReply(env, msg.KindCacheReady, msg.CacheReady{Found: false})
		if buildErr != nil {
			return nil, apperr.New(msg.ErrInternal, buildErr)
		}
		return reply, nil
	}
	if err != nil {
		return nil, apperr.New(msg.ErrIO, err)
	}

	ttl, _ := rt.Stores().Cache.TTL(ctx, p.Key)
	var ttlSeconds int64
	if ttl > 0 {
		ttlSeconds = int64(ttl / time.Second)
	}

	streamID := rt.NextStreamID()
	go func() {
		defer entry.Stream.Close()
		pumpStream(rt, streamID, entry.Stream.Read)
	}()

	reply, err := msg.NewReply(env, msg.KindCacheReady, msg.CacheReady{
		Found: true,
		TTL:   ttlSeconds,
		Meta:  entry.Meta,
	})
	if err != nil {
		return nil, apperr.New(msg.ErrInternal, err)
	}
	return reply, nil
}

// CacheSet stores the request's raw buffer as key's body (spec.md's
// op_cache_set streams the body over a fresh stream-id in the original;
// here the small-body common case is handled by reading env.Raw directly,
// matching the "inline unless large" rule of spec.md §4.B).
func CacheSet(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.CacheSet
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}

	var ttl time.Duration
	if p.TTL > 0 {
		ttl = time.Duration(p.TTL) * time.Second
	}

	if err := rt.Stores().Cache.Set(ctx, p.Key, bytes.NewReader(env.Raw), ttl, p.Tags, p.Meta); err != nil {
		return nil, apperr.New(msg.ErrIO, err)
	}
	return nil, nil
}

func CacheDel(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.CacheDel
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	if err := rt.Stores().Cache.Del(ctx, p.Key); err != nil {
		return nil, apperr.New(msg.ErrIO, err)
	}
	return nil, nil
}

func CacheExpire(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.CacheExpire
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	if err := rt.Stores().Cache.Expire(ctx, p.Key, time.Duration(p.TTL)*time.Second); err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.New(msg.ErrNotFound, err)
		}
		return nil, apperr.New(msg.ErrIO, err)
	}
	return nil, nil
}

func CacheSetMeta(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.CacheSetMeta
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	if err := rt.Stores().Cache.SetMeta(ctx, p.Key, p.Meta); err != nil {
		return nil, apperr.New(msg.ErrIO, err)
	}
	return nil, nil
}

func CachePurgeTag(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.CachePurgeTag
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	if err := rt.Stores().Cache.PurgeTag(ctx, p.Tag); err != nil {
		return nil, apperr.New(msg.ErrIO, err)
	}
	return nil, nil
}

// CacheNotifyDel and CacheNotifyPurgeTag handle the local side of a
// cache_store_notifier fan-out: an external Redis pub/sub message telling
// this Runtime another node already invalidated key/tag. The core treats
// them identically to the direct ops — only their origin differs, not
// their effect — matching original_source's redis_cache_notifier.rs, whose
// subscriber simply re-invokes the same del/purge_tag path.
func CacheNotifyDel(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	return CacheDel(ctx, rt, env)
}

func CacheNotifyPurgeTag(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	return CachePurgeTag(ctx, rt, env)
}
