//go:build integration

package webhook_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"losbridge/internal/webhook"
	"losbridge/pkg/testutil/containers"
)

func TestRedisDeliveryStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	store := webhook.NewRedisDeliveryStore(rc.Client, time.Minute)

	first, err := store.MarkProcessed(ctx, "d-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkProcessed(ctx, "d-1")
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, store.Release(ctx, "d-1"))

	retried, err := store.MarkProcessed(ctx, "d-1")
	require.NoError(t, err)
	assert.True(t, retried, "released delivery is processed again")
}

func TestRedisDeliveryStoreTTLExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	store := webhook.NewRedisDeliveryStore(rc.Client, 100*time.Millisecond)

	first, err := store.MarkProcessed(ctx, "d-exp")
	require.NoError(t, err)
	assert.True(t, first)

	time.Sleep(200 * time.Millisecond)

	reopened, err := store.MarkProcessed(ctx, "d-exp")
	require.NoError(t, err)
	assert.True(t, reopened, "expired delivery window allows reprocessing")
}
