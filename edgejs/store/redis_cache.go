package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache backs cache_store = Redis{url, namespace?} (spec.md §6),
// namespacing keys the way
// original_source/distributed-fly/src/runtime_selector.rs namespaces its
// per-app Redis stores.
type RedisCache struct {
	client    *redis.Client
	namespace string
}

// NewRedisCache constructs a RedisCache over client, prefixing every key
// with namespace (empty means no prefix).
func NewRedisCache(client *redis.Client, namespace string) *RedisCache {
	return &RedisCache{client: client, namespace: namespace}
}

func (c *RedisCache) ns(key string) string {
	if c.namespace == "" {
		return key
	}
	return c.namespace + ":" + key
}

type redisCacheRecord struct {
	Body []byte            `json:"body"`
	Tags []string          `json:"tags,omitempty"`
	Meta map[string]string `json:"meta,omitempty"`
}

func (c *RedisCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	raw, err := c.client.Get(ctx, c.ns(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis get %s: %w", key, err)
	}
	var rec redisCacheRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("store: redis decode %s: %w", key, err)
	}
	return &CacheEntry{Meta: rec.Meta, Stream: io.NopCloser(bytes.NewReader(rec.Body))}, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, body io.Reader, ttl time.Duration, tags []string, meta CacheMeta) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(redisCacheRecord{Body: data, Tags: tags, Meta: meta})
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.ns(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store: redis set %s: %w", key, err)
	}
	if len(tags) > 0 {
		for _, tag := range tags {
			c.client.SAdd(ctx, c.ns("tag:"+tag), key)
		}
	}
	return nil
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.ns(key)).Err()
}

func (c *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := c.client.Expire(ctx, c.ns(key), ttl).Result()
	if err != nil {
		return fmt.Errorf("store: redis expire %s: %w", key, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (c *RedisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.client.TTL(ctx, c.ns(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("store: redis ttl %s: %w", key, err)
	}
	if ttl < 0 {
		return 0, ErrNotFound
	}
	return ttl, nil
}

func (c *RedisCache) PurgeTag(ctx context.Context, tag string) error {
	members, err := c.client.SMembers(ctx, c.ns("tag:"+tag)).Result()
	if err != nil {
		return fmt.Errorf("store: redis smembers tag:%s: %w", tag, err)
	}
	for _, key := range members {
		c.client.Del(ctx, c.ns(key))
	}
	return c.client.Del(ctx, c.ns("tag:"+tag)).Err()
}

func (c *RedisCache) SetTags(ctx context.Context, key string, tags []string) error {
	entry, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	body, _ := io.ReadAll(entry.Stream)
	return c.Set(ctx, key, bytes.NewReader(body), 0, tags, entry.Meta)
}

func (c *RedisCache) SetMeta(ctx context.Context, key string, meta CacheMeta) error {
	entry, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	body, _ := io.ReadAll(entry.Stream)
	return c.Set(ctx, key, bytes.NewReader(body), 0, nil, meta)
}
