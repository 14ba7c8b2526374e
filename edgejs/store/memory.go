package store

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

// MemoryCache is the in-process fallback Cache used by the fixed/
// single-tenant Selector variant when no Redis cache_store is configured.
// Adapted from infrastructure/cache/cache.go's versioned TTL map: that type
// cached arbitrary Go values for HTTP handlers, this one stores byte bodies
// plus tags/meta behind the Cache contract op handlers expect.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memoryCacheEntry
}

type memoryCacheEntry struct {
	body       []byte
	expiresAt  time.Time
	hasExpiry  bool
	tags       []string
	meta       CacheMeta
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*memoryCacheEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if e.hasExpiry && time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, ErrNotFound
	}
	return &CacheEntry{Meta: e.meta, Stream: io.NopCloser(bytes.NewReader(e.body))}, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, body io.Reader, ttl time.Duration, tags []string, meta CacheMeta) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := &memoryCacheEntry{body: data, tags: tags, meta: meta}
	if ttl > 0 {
		e.hasExpiry = true
		e.expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

func (c *MemoryCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return ErrNotFound
	}
	e.hasExpiry = true
	e.expiresAt = time.Now().Add(ttl)
	return nil
}

func (c *MemoryCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, ErrNotFound
	}
	if !e.hasExpiry {
		return -1, nil
	}
	return time.Until(e.expiresAt), nil
}

func (c *MemoryCache) PurgeTag(ctx context.Context, tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		for _, t := range e.tags {
			if t == tag {
				delete(c.entries, k)
				break
			}
		}
	}
	return nil
}

func (c *MemoryCache) SetTags(ctx context.Context, key string, tags []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return ErrNotFound
	}
	e.tags = tags
	return nil
}

func (c *MemoryCache) SetMeta(ctx context.Context, key string, meta CacheMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return ErrNotFound
	}
	e.meta = meta
	return nil
}

// MemoryData is a process-local Data store, useful for tests and the fixed
// Selector variant.
type MemoryData struct {
	mu      sync.Mutex
	colls   map[string]map[string]string
	counters map[string]int64
}

func NewMemoryData() *MemoryData {
	return &MemoryData{colls: make(map[string]map[string]string), counters: make(map[string]int64)}
}

func (d *MemoryData) Get(ctx context.Context, coll, key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.colls[coll]
	if !ok {
		return "", false, nil
	}
	v, ok := c[key]
	return v, ok, nil
}

func (d *MemoryData) Put(ctx context.Context, coll, key, json string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.colls[coll]
	if !ok {
		c = make(map[string]string)
		d.colls[coll] = c
	}
	c[key] = json
	return nil
}

func (d *MemoryData) Del(ctx context.Context, coll, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.colls[coll]; ok {
		delete(c, key)
	}
	return nil
}

func (d *MemoryData) Incr(ctx context.Context, coll, key, field string, amount int64) (int64, error) {
	// Counters live in a separate map keyed by coll/key/field rather than
	// inside a document's JSON, the same layout SqliteData uses (its own
	// counters table); PostgresData instead updates the field inside the
	// stored document.
	d.mu.Lock()
	defer d.mu.Unlock()
	composite := coll + "\x00" + key + "\x00" + field
	d.counters[composite] += amount
	return d.counters[composite], nil
}

func (d *MemoryData) DropCollection(ctx context.Context, coll string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.colls, coll)
	return nil
}

// DiskFS reads module/asset bytes from a local directory root.
type DiskFS struct {
	Root string
}

func NewDiskFS(root string) *DiskFS { return &DiskFS{Root: root} }

// MemoryAcme is a test/fixed-variant ACME challenge store.
type MemoryAcme struct {
	mu         sync.Mutex
	challenges map[string][]byte
}

func NewMemoryAcme() *MemoryAcme {
	return &MemoryAcme{challenges: make(map[string][]byte)}
}

func (a *MemoryAcme) Put(host, token string, content []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.challenges[host+"/"+token] = content
}

func (a *MemoryAcme) ValidateChallenge(ctx context.Context, host, token string) ([]byte, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.challenges[host+"/"+token]
	return v, ok, nil
}
