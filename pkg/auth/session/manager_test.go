package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sweetshop-backend/pkg/config"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string { return "ss:admin:sess:" + accessID }

func newTestManager(t *testing.T, store *memoryStore) *Manager {
	t.Helper()
	m, err := NewManager(store, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60})
	require.NoError(t, err)
	return m
}

func TestNewManagerRejectsShortRefreshTTL(t *testing.T) {
	_, err := NewManager(newMemoryStore(), config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30})
	require.Error(t, err)

	_, err = NewManager(nil, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60})
	require.Error(t, err)
}

func TestGenerateStoresDigestOnly(t *testing.T) {
	store := newMemoryStore()
	m := newTestManager(t, store)

	token, err := m.Generate(context.Background(), "jti-1", uuid.New())
	require.NoError(t, err)

	raw := store.data[store.AccessSessionKey("jti-1")]
	assert.NotContains(t, raw, token)
	assert.Contains(t, raw, digest(token))
	assert.Equal(t, time.Hour, store.ttls[store.AccessSessionKey("jti-1")])
}

func TestRotateReplacesSession(t *testing.T) {
	store := newMemoryStore()
	m := newTestManager(t, store)
	ctx := context.Background()
	adminID := uuid.New()

	token, err := m.Generate(ctx, "jti-1", adminID)
	require.NoError(t, err)

	_, err = m.Rotate(ctx, "jti-1", "not-the-token")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	next, err := m.Rotate(ctx, "jti-1", token)
	require.NoError(t, err)
	assert.Equal(t, adminID, next.AdminID)
	assert.NotEqual(t, token, next.RefreshToken)

	live, err := m.HasSession(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, live, "rotated session must be gone")

	live, err = m.HasSession(ctx, next.AccessID)
	require.NoError(t, err)
	assert.True(t, live)

	_, err = m.Rotate(ctx, "jti-1", token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken, "a refresh token works once")
}

func TestRotateRejectsUnknownOrCorruptSession(t *testing.T) {
	store := newMemoryStore()
	m := newTestManager(t, store)

	_, err := m.Rotate(context.Background(), "missing", "token")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	store.data[store.AccessSessionKey("garbled")] = "{not json"
	_, err = m.Rotate(context.Background(), "garbled", "token")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevokeAndHasSession(t *testing.T) {
	store := newMemoryStore()
	m := newTestManager(t, store)
	ctx := context.Background()

	_, err := m.Generate(ctx, "jti-9", uuid.New())
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, "jti-9"))

	live, err := m.HasSession(ctx, "jti-9")
	require.NoError(t, err)
	assert.False(t, live)

	require.Error(t, m.Revoke(ctx, " "))
	_, err = m.HasSession(ctx, "")
	require.Error(t, err)
}

func TestHasSessionSurfacesStoreFailure(t *testing.T) {
	store := newMemoryStore()
	m := newTestManager(t, store)
	store.err = errors.New("connection refused")

	_, err := m.HasSession(context.Background(), "jti-1")
	require.Error(t, err)
}
