package offers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	redislib "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

const (
	defaultFetchAttempts = 3
	defaultFetchBackoff  = 100 * time.Millisecond
)

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// ActiveCache keeps the most recent active-offer list in Redis.
type ActiveCache struct {
	store cacheStore
	key   string
	ttl   time.Duration
}

// NewActiveCache builds a cache writing to key with the given TTL.
func NewActiveCache(store cacheStore, key string, ttl time.Duration) (*ActiveCache, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if key == "" {
		return nil, fmt.Errorf("cache key required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	return &ActiveCache{store: store, key: key, ttl: ttl}, nil
}

// Load returns the cached offers and whether the cache was populated.
func (c *ActiveCache) Load(ctx context.Context) ([]Offer, bool, error) {
	raw, err := c.store.Get(ctx, c.key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var offers []Offer
	if err := json.Unmarshal([]byte(raw), &offers); err != nil {
		return nil, false, fmt.Errorf("decode cached offers: %w", err)
	}
	return offers, true, nil
}

func (c *ActiveCache) Store(ctx context.Context, offers []Offer) error {
	if offers == nil {
		offers = []Offer{}
	}
	payload, err := json.Marshal(offers)
	if err != nil {
		return fmt.Errorf("encode offers: %w", err)
	}
	return c.store.Set(ctx, c.key, string(payload), c.ttl)
}

func (c *ActiveCache) Invalidate(ctx context.Context) error {
	return c.store.Del(ctx, c.key)
}

// CachedSource serves active offers from the cache, falling back to origin
// with bounded retries. Cached entries are re-filtered against the caller's
// clock so an offer that ends mid-TTL is never applied late.
type CachedSource struct {
	origin   Source
	cache    *ActiveCache
	logg     *logger.Logger
	attempts uint64
	backoff  time.Duration
}

// SourceOption customizes a CachedSource.
type SourceOption func(*CachedSource)

func WithCache(cache *ActiveCache) SourceOption {
	return func(s *CachedSource) { s.cache = cache }
}

// WithRetry sets the total attempt count and the base exponential backoff.
func WithRetry(attempts int, backoff time.Duration) SourceOption {
	return func(s *CachedSource) {
		if attempts > 0 {
			s.attempts = uint64(attempts)
		}
		if backoff > 0 {
			s.backoff = backoff
		}
	}
}

func NewCachedSource(origin Source, logg *logger.Logger, opts ...SourceOption) (*CachedSource, error) {
	if origin == nil {
		return nil, fmt.Errorf("offer origin required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	src := &CachedSource{
		origin:   origin,
		logg:     logg,
		attempts: defaultFetchAttempts,
		backoff:  defaultFetchBackoff,
	}
	for _, opt := range opts {
		opt(src)
	}
	return src, nil
}

func (s *CachedSource) ListActive(ctx context.Context, now time.Time) ([]Offer, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Load(ctx)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "offers cache read failed")
		} else if ok {
			return FilterLive(cached, now), nil
		}
	}

	offers, err := s.fetch(ctx, now)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Store(ctx, offers); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "offers cache write failed")
		}
	}
	return offers, nil
}

func (s *CachedSource) fetch(ctx context.Context, now time.Time) ([]Offer, error) {
	var offers []Offer
	backoff := retry.WithMaxRetries(s.attempts-1, retry.NewExponential(s.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		result, err := s.origin.ListActive(ctx, now)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
				return err
			}
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "active offers fetch failed, retrying")
			return retry.RetryableError(err)
		}
		offers = result
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeInternal {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "offers unavailable")
	}
	return offers, nil
}
