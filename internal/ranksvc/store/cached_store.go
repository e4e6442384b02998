package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/cardfit-services/internal/scoring"
)

// CardRepository is the read side of a card store.
type CardRepository interface {
	ListCards(ctx context.Context) ([]scoring.Card, error)
}

// CardWriter is implemented by stores that accept catalog updates.
type CardWriter interface {
	UpsertCards(ctx context.Context, cards []scoring.Card) (int, error)
}

// CatalogKey is the cache key of the catalog scored under a ruleset version.
func CatalogKey(version string) string {
	return "cards:catalog:" + version
}

// CachedCardStore serves the catalog from a cache in front of a repository.
// Cache failures are logged and fall through to the repository.
type CachedCardStore struct {
	repo  CardRepository
	cache Cache
	key   string
	ttl   time.Duration
}

func NewCachedCardStore(repo CardRepository, cache Cache, key string, ttl time.Duration) *CachedCardStore {
	return &CachedCardStore{repo: repo, cache: cache, key: key, ttl: ttl}
}

func (s *CachedCardStore) ListCards(ctx context.Context) ([]scoring.Card, error) {
	if raw, ok := s.cache.Get(ctx, s.key); ok {
		var cards []scoring.Card
		if err := json.Unmarshal([]byte(raw), &cards); err == nil {
			return cards, nil
		}
		log.Warnf("cached catalog %s is unreadable, reloading", s.key)
	}

	cards, err := s.repo.ListCards(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(cards); err != nil {
		log.Warnf("unable to encode catalog for cache: %s", err)
	} else if err := s.cache.Set(ctx, s.key, string(raw), s.ttl); err != nil {
		log.Warnf("unable to cache catalog %s: %s", s.key, err)
	}
	return cards, nil
}

// UpsertCards writes through to the repository and drops the cached catalog.
func (s *CachedCardStore) UpsertCards(ctx context.Context, cards []scoring.Card) (int, error) {
	w, ok := s.repo.(CardWriter)
	if !ok {
		return 0, ErrReadOnly
	}
	n, err := w.UpsertCards(ctx, cards)
	if err != nil {
		return n, err
	}
	if err := s.cache.Delete(ctx, s.key); err != nil {
		return n, fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return n, nil
}
