package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/cardfit-services/internal/ranksvc/store"
	"github.com/avvvet/cardfit-services/internal/scoring"
)

// ErrCardNotFound is returned when a card id is not in the catalog.
var ErrCardNotFound = errors.New("card not found")

type RankService struct {
	repo   store.CardRepository
	engine *scoring.Engine
}

func NewRankService(repo store.CardRepository, engine *scoring.Engine) *RankService {
	if engine == nil {
		engine = scoring.NewEngine(nil)
	}
	return &RankService{repo: repo, engine: engine}
}

// RulesetVersion is the version of the ruleset the engine scores with.
func (s *RankService) RulesetVersion() string {
	return s.engine.Rules().Version
}

// Recommend loads the catalog and ranks it for the answers. The result is
// never nil.
func (s *RankService) Recommend(ctx context.Context, answers scoring.Answers) ([]scoring.ScoreResult, error) {
	start := time.Now()
	cards, err := s.repo.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	results := s.engine.Rank(cards, answers)
	log.WithFields(log.Fields{
		"catalog":  len(cards),
		"eligible": len(results),
		"took":     time.Since(start),
	}).Info("ranked catalog")
	return results, nil
}

// Explain returns the per-heuristic breakdown of one card.
func (s *RankService) Explain(ctx context.Context, id string, answers scoring.Answers) (scoring.Breakdown, error) {
	cards, err := s.repo.ListCards(ctx)
	if err != nil {
		return scoring.Breakdown{}, fmt.Errorf("load catalog: %w", err)
	}
	for _, c := range cards {
		if string(c.ID) == id {
			return s.engine.Explain(c, answers), nil
		}
	}
	return scoring.Breakdown{}, fmt.Errorf("%w: %s", ErrCardNotFound, id)
}

// Cards lists the catalog. The result is never nil.
func (s *RankService) Cards(ctx context.Context) ([]scoring.Card, error) {
	cards, err := s.repo.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if cards == nil {
		cards = []scoring.Card{}
	}
	return cards, nil
}

// UpsertCards stores catalog updates when the repository accepts writes.
func (s *RankService) UpsertCards(ctx context.Context, cards []scoring.Card) (int, error) {
	w, ok := s.repo.(store.CardWriter)
	if !ok {
		return 0, store.ErrReadOnly
	}
	n, err := w.UpsertCards(ctx, cards)
	if err != nil {
		return n, err
	}
	log.Infof("catalog upsert stored %d of %d cards", n, len(cards))
	return n, nil
}
