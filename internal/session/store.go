package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	redislib "github.com/redis/go-redis/v9"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	CartSessionKey(sessionID string) string
}

// Store loads and saves whole shopper sessions.
type Store interface {
	Load(ctx context.Context, sessionID string) (Session, error)
	Save(ctx context.Context, sessionID string, s Session) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisStore keeps sessions as JSON under the cart session key. Every load
// and save pushes the expiry out by the configured TTL, so the TTL measures
// idle time.
type RedisStore struct {
	store redisStore
	ttl   time.Duration
	now   func() time.Time
}

var (
	_ Store      = (*RedisStore)(nil)
	_ cart.Store = (*RedisStore)(nil)
)

func NewRedisStore(store redisStore, ttl time.Duration) (*RedisStore, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &RedisStore{store: store, ttl: ttl, now: time.Now}, nil
}

// Load returns the stored session, or an empty one when nothing is stored.
func (r *RedisStore) Load(ctx context.Context, sessionID string) (Session, error) {
	key, err := r.key(sessionID)
	if err != nil {
		return Session{}, err
	}
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	// A failed refresh only shortens the idle window; the read itself succeeded.
	_, _ = r.store.Expire(ctx, key, r.ttl)
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, sessionID string, s Session) error {
	key, err := r.key(sessionID)
	if err != nil {
		return err
	}
	s.UpdatedAt = r.now().UTC()
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.store.Set(ctx, key, string(payload), r.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := r.key(sessionID)
	if err != nil {
		return err
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) LoadCart(ctx context.Context, sessionID string) (cart.Cart, error) {
	s, err := r.Load(ctx, sessionID)
	if err != nil {
		return cart.Cart{}, err
	}
	return s.Cart, nil
}

// SaveCart replaces the cart and keeps whatever promo the session holds.
func (r *RedisStore) SaveCart(ctx context.Context, sessionID string, c cart.Cart) error {
	s, err := r.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	s.Cart = c
	return r.Save(ctx, sessionID, s)
}

// ClearSession drops the cart together with the applied promo.
func (r *RedisStore) ClearSession(ctx context.Context, sessionID string) error {
	return r.Delete(ctx, sessionID)
}

func (r *RedisStore) key(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", fmt.Errorf("session id required")
	}
	return r.store.CartSessionKey(id), nil
}
