package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/cardfit-services/internal/scoring"
)

type countingRepo struct {
	cards []scoring.Card
	err   error
	calls int
}

func (r *countingRepo) ListCards(ctx context.Context) ([]scoring.Card, error) {
	r.calls++
	return r.cards, r.err
}

type writableRepo struct {
	countingRepo
	upserted []scoring.Card
}

func (r *writableRepo) UpsertCards(ctx context.Context, cards []scoring.Card) (int, error) {
	r.upserted = append(r.upserted, cards...)
	return len(cards), nil
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) (string, bool) { return "{not json", true }
func (brokenCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.New("cache down")
}
func (brokenCache) Delete(ctx context.Context, key string) error { return errors.New("cache down") }

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Set(ctx, "forever", "v", 0))

	got, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	now = now.Add(time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "forever")
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "forever"))
	_, ok = c.Get(ctx, "forever")
	assert.False(t, ok)
}

func TestCachedCardStoreServesFromCache(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{cards: []scoring.Card{{ID: "a", AnnualFee: scoring.Float(0)}, {ID: "b"}}}
	s := NewCachedCardStore(repo, NewMemoryCache(), CatalogKey("2024.1"), time.Minute)

	first, err := s.ListCards(ctx)
	require.NoError(t, err)
	second, err := s.ListCards(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, scoring.Float(0), second[0].AnnualFee)
	assert.False(t, second[1].AnnualFee.Valid)
}

func TestCachedCardStoreFallsThrough(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{cards: []scoring.Card{{ID: "a"}}}
	s := NewCachedCardStore(repo, brokenCache{}, CatalogKey("v"), time.Minute)

	cards, err := s.ListCards(ctx)
	require.NoError(t, err)
	assert.Len(t, cards, 1)
	assert.Equal(t, 1, repo.calls)

	repo.err = errors.New("db down")
	_, err = s.ListCards(ctx)
	assert.EqualError(t, err, "db down")
}

func TestCachedCardStoreUpsertInvalidates(t *testing.T) {
	ctx := context.Background()
	repo := &writableRepo{countingRepo: countingRepo{cards: []scoring.Card{{ID: "a"}}}}
	cache := NewMemoryCache()
	s := NewCachedCardStore(repo, cache, CatalogKey("v"), time.Minute)

	_, err := s.ListCards(ctx)
	require.NoError(t, err)
	_, ok := cache.Get(ctx, CatalogKey("v"))
	require.True(t, ok)

	n, err := s.UpsertCards(ctx, []scoring.Card{{ID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok = cache.Get(ctx, CatalogKey("v"))
	assert.False(t, ok)

	readOnly := NewCachedCardStore(&countingRepo{}, cache, CatalogKey("v"), time.Minute)
	_, err = readOnly.UpsertCards(ctx, []scoring.Card{{ID: "b"}})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestRedisCacheUnreachable(t *testing.T) {
	ctx := context.Background()
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}))
	defer c.Close()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Error(t, c.Set(ctx, "k", "v", time.Second))
	assert.Error(t, c.Ping(ctx))
}
