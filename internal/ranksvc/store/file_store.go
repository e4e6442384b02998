package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/avvvet/cardfit-services/internal/scoring"
)

// FileCardStore serves a JSON catalog from disk. The file is read on every
// call so edits show up without a restart.
type FileCardStore struct {
	path string
}

func NewFileCardStore(path string) *FileCardStore {
	return &FileCardStore{path: path}
}

func (s *FileCardStore) ListCards(ctx context.Context) ([]scoring.Card, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", s.path, err)
	}
	defer f.Close()

	return DecodeCatalog(f)
}

func (s *FileCardStore) UpsertCards(ctx context.Context, cards []scoring.Card) (int, error) {
	return 0, ErrReadOnly
}

// MemoryCardStore keeps cards in insertion order.
type MemoryCardStore struct {
	mu    sync.RWMutex
	cards []scoring.Card
	index map[scoring.Text]int
}

func NewMemoryCardStore(cards ...scoring.Card) *MemoryCardStore {
	s := &MemoryCardStore{index: make(map[scoring.Text]int)}
	s.put(cards)
	return s
}

func (s *MemoryCardStore) ListCards(ctx context.Context) ([]scoring.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]scoring.Card, len(s.cards))
	for i, c := range s.cards {
		out[i] = c.Clone()
	}
	return out, nil
}

func (s *MemoryCardStore) UpsertCards(ctx context.Context, cards []scoring.Card) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(cards), nil
}

func (s *MemoryCardStore) put(cards []scoring.Card) int {
	n := 0
	for _, c := range cards {
		if c.ID == "" {
			continue
		}
		if i, ok := s.index[c.ID]; ok {
			s.cards[i] = c.Clone()
		} else {
			s.index[c.ID] = len(s.cards)
			s.cards = append(s.cards, c.Clone())
		}
		n++
	}
	return n
}
