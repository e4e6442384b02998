package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/cardfit-services/internal/ranksvc/store"
	"github.com/avvvet/cardfit-services/internal/scoring"
)

type failingRepo struct{}

func (failingRepo) ListCards(ctx context.Context) ([]scoring.Card, error) {
	return nil, errors.New("connection refused")
}

type readOnlyRepo struct{}

func (readOnlyRepo) ListCards(ctx context.Context) ([]scoring.Card, error) { return nil, nil }

func catalog() *store.MemoryCardStore {
	return store.NewMemoryCardStore(
		scoring.Card{
			ID:        "grocer",
			Name:      "Grocer Cash",
			AnnualFee: scoring.Float(0),
			Rewards:   []scoring.Reward{{Category: "Groceries", Rate: scoring.Float(4)}},
		},
		scoring.Card{
			ID:        "flat",
			Name:      "Flat Two",
			AnnualFee: scoring.Float(0),
			Rewards:   []scoring.Reward{{Category: "Everything", Rate: scoring.Float(2)}},
		},
		scoring.Card{ID: "hidden", Visibility: scoring.Bool(false)},
	)
}

func TestRecommend(t *testing.T) {
	s := NewRankService(catalog(), nil)

	results, err := s.Recommend(context.Background(), scoring.Answers{SpendGroceries: scoring.Float(5000)})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, scoring.Text("grocer"), results[0].ID)
	assert.Equal(t, scoring.Text("flat"), results[1].ID)
	assert.Equal(t, "2024.1", s.RulesetVersion())
}

func TestRecommendEmptyCatalog(t *testing.T) {
	s := NewRankService(store.NewMemoryCardStore(), nil)

	results, err := s.Recommend(context.Background(), scoring.Answers{})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRecommendRepositoryFailure(t *testing.T) {
	s := NewRankService(failingRepo{}, nil)

	_, err := s.Recommend(context.Background(), scoring.Answers{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestExplain(t *testing.T) {
	s := NewRankService(catalog(), nil)

	b, err := s.Explain(context.Background(), "hidden", scoring.Answers{})
	require.NoError(t, err)
	assert.False(t, b.Eligible)

	_, err = s.Explain(context.Background(), "nope", scoring.Answers{})
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestCards(t *testing.T) {
	cards, err := NewRankService(readOnlyRepo{}, nil).Cards(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cards)

	cards, err = NewRankService(catalog(), nil).Cards(context.Background())
	require.NoError(t, err)
	assert.Len(t, cards, 3)
}

func TestUpsertCards(t *testing.T) {
	repo := catalog()
	s := NewRankService(repo, nil)

	n, err := s.UpsertCards(context.Background(), []scoring.Card{{ID: "new", Name: "New"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cards, err := s.Cards(context.Background())
	require.NoError(t, err)
	assert.Len(t, cards, 4)

	_, err = NewRankService(readOnlyRepo{}, nil).UpsertCards(context.Background(), nil)
	assert.ErrorIs(t, err, store.ErrReadOnly)
}
