package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, expiry time.Duration) (*Manager, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewManager(client, expiry), mr
}

func TestSessionLifecycle(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	ctx := context.Background()

	id, err := m.Create(ctx, "user-1", "alice", "jwt-token", []string{"student"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sess, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, []string{"student"}, sess.Roles)
	assert.Equal(t, "jwt-token", sess.Token)

	require.NoError(t, m.Delete(ctx, id))

	_, err = m.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionUnknownID(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)

	_, err := m.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionExpiredRecordDeletedOnRead(t *testing.T) {
	m, mr := newTestManager(t, time.Hour)
	ctx := context.Background()

	// Plant a record whose embedded ExpiresAt has passed while the Redis key
	// itself is still live.
	stale, err := json.Marshal(Session{
		UserID:    "user-1",
		Username:  "alice",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	require.NoError(t, mr.Set(keyPrefix+"stale-id", string(stale)))

	_, err = m.Get(ctx, "stale-id")
	assert.ErrorIs(t, err, ErrExpired)

	// The read deleted the stale record.
	_, err = m.Get(ctx, "stale-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRefreshExtendsTTL(t *testing.T) {
	m, mr := newTestManager(t, time.Hour)
	ctx := context.Background()

	id, err := m.Create(ctx, "user-1", "alice", "jwt-token", []string{"student"})
	require.NoError(t, err)

	mr.FastForward(30 * time.Minute)
	require.NoError(t, m.Refresh(ctx, id))

	mr.FastForward(45 * time.Minute)

	// 75 minutes after creation the session would have lapsed without the
	// refresh; the TTL extension keeps it readable.
	_, err = m.Get(ctx, id)
	require.NoError(t, err)
}

func TestSessionIDsAreUnique(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := m.Create(ctx, "user-1", "alice", "tok", nil)
		require.NoError(t, err)
		if seen[id] {
			t.Fatalf("duplicate session ID generated: %s", id)
		}
		seen[id] = true
	}
}
