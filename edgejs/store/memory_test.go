package store

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheMissSetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "k", bytes.NewReader([]byte("v")), 60*time.Second, nil, nil))

	entry, err := c.Get(ctx, "k")
	require.NoError(t, err)
	body, _ := io.ReadAll(entry.Stream)
	assert.Equal(t, "v", string(body))

	ttl, err := c.TTL(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ttl > 58*time.Second && ttl <= 60*time.Second)
}

func TestMemoryCachePurgeTag(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", bytes.NewReader([]byte("1")), 0, []string{"grp"}, nil))
	require.NoError(t, c.Set(ctx, "b", bytes.NewReader([]byte("2")), 0, []string{"grp"}, nil))

	require.NoError(t, c.PurgeTag(ctx, "grp"))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDataPutGetDel(t *testing.T) {
	d := NewMemoryData()
	ctx := context.Background()

	_, found, err := d.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, d.Put(ctx, "users", "u1", `{"name":"a"}`))
	v, found, err := d.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"name":"a"}`, v)

	require.NoError(t, d.Del(ctx, "users", "u1"))
	_, found, err = d.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.False(t, found)
}
