package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client), mr
}

func TestSaveAndLoad(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok-1", "user-1", time.Hour))

	userID, err := store.UserID(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestLoad_Missing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.UserID(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_RevokesSession(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok-1", "user-1", time.Hour))
	require.NoError(t, store.Delete(ctx, "tok-1"))

	_, err := store.UserID(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op.
	require.NoError(t, store.Delete(ctx, "tok-1"))
}

func TestSessionExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok-1", "user-1", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.UserID(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
