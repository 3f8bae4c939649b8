package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titlequote/internal/common/config"
	"titlequote/internal/common/database"
	"titlequote/internal/common/logger"
	"titlequote/internal/models"
)

func testRedisConfig(addr string) config.RedisConfig {
	return config.RedisConfig{Address: addr}
}

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := database.NewRedis(testRedisConfig(mr.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func testSession() *models.QuoteSession {
	return &models.QuoteSession{
		Params: models.QuoteRequestParams{
			PostalCode:      "10001",
			TransactionKind: models.TransactionPurchase,
		},
		Location: models.LocationInfo{City: "New York", StateCode: "NY"},
		State:    models.SessionCreated,
	}
}

func TestRedisStoreCRUD(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx, testSession())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCreated, got.State)
	assert.Equal(t, "10001", got.Params.PostalCode)
	assert.False(t, got.ExpiresAt.IsZero())

	awaiting := models.SessionAwaitingAnswers
	pending := "<Questions></Questions>"
	err = store.Update(ctx, id, &models.SessionPatch{State: &awaiting, PendingXML: &pending})
	require.NoError(t, err)

	got, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAwaitingAnswers, got.State)
	assert.Equal(t, pending, got.PendingXML)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreMissingSession(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Hour)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	err = store.Update(context.Background(), "nope", &models.SessionPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	id, err := store.Create(ctx, testSession())
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx, testSession())
	require.NoError(t, err)

	mr.Close()
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = store.Create(ctx, testSession())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMemoryStoreCRUDAndSweep(t *testing.T) {
	store := NewMemoryStore(50 * time.Millisecond)
	ctx := context.Background()

	id, err := store.Create(ctx, testSession())
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)

	// Mutating the returned copy must not leak into the store.
	got.State = models.SessionErrored
	again, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCreated, again.State)

	time.Sleep(60 * time.Millisecond)
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Len())
}

func TestFallbackStoreTripsOnOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := database.NewRedis(testRedisConfig(mr.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	primary := NewRedisStore(client, time.Hour)
	memory := NewMemoryStore(time.Hour)
	store := NewFallbackStore(primary, memory, time.Minute, logger.Nop())
	ctx := context.Background()

	// Healthy primary serves reads and writes.
	id, err := store.Create(ctx, testSession())
	require.NoError(t, err)
	_, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, memory.Len())

	// Outage: the breaker trips and the memory store takes over.
	mr.Close()
	fallbackID, err := store.Create(ctx, testSession())
	require.NoError(t, err)
	assert.Equal(t, 1, memory.Len())

	got, err := store.Get(ctx, fallbackID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCreated, got.State)

	awaiting := models.SessionAwaitingAnswers
	require.NoError(t, store.Update(ctx, fallbackID, &models.SessionPatch{State: &awaiting}))
	got, err = store.Get(ctx, fallbackID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionAwaitingAnswers, got.State)
}

func TestFallbackStoreReadsMemoryOnPrimaryMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := database.NewRedis(testRedisConfig(mr.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	memory := NewMemoryStore(time.Hour)
	store := NewFallbackStore(NewRedisStore(client, time.Hour), memory, time.Minute, logger.Nop())
	ctx := context.Background()

	// A session created during an outage lives only in memory; once the
	// primary recovers, reads must still find it there.
	id, err := memory.Create(ctx, testSession())
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
}

func TestFallbackStoreDeleteIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := database.NewRedis(testRedisConfig(mr.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	memory := NewMemoryStore(time.Hour)
	store := NewFallbackStore(NewRedisStore(client, time.Hour), memory, time.Minute, logger.Nop())
	ctx := context.Background()

	id, err := store.Create(ctx, testSession())
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, id))
	require.NoError(t, store.Delete(ctx, id))
}
