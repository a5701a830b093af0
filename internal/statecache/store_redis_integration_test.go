//go:build integration

package statecache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskproxy/pkg/testutil/containers"
)

func TestRedisStore_StoresWithExpiry(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	t.Cleanup(func() { _ = rc.Client.Close(); _ = rc.Container.Terminate(ctx) })

	store := NewRedisStore(rc.Client, 2*time.Minute)

	require.NoError(t, store.Store(ctx, "abc123", "score=85;action=none"))

	got, err := rc.Client.Get(ctx, "abc123").Result()
	require.NoError(t, err)
	assert.Equal(t, "score=85;action=none", got)

	ttl, err := rc.Client.TTL(ctx, "abc123").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute)
	assert.LessOrEqual(t, ttl, 2*time.Minute)
}

func TestRedisStore_LastWriteWins(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	t.Cleanup(func() { _ = rc.Client.Close(); _ = rc.Container.Terminate(ctx) })

	store := NewRedisStore(rc.Client, time.Minute)
	require.NoError(t, store.Store(ctx, "state-1", "score=10"))
	require.NoError(t, store.Store(ctx, "state-1", "score=90"))

	got, err := rc.Client.Get(ctx, "state-1").Result()
	require.NoError(t, err)
	assert.Equal(t, "score=90", got)
}
