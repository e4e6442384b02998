// Package scoring ranks credit cards against questionnaire answers.
//
// The engine is a pure function of its inputs: it performs no I/O, keeps
// no state between calls and never modifies the cards it is given. All
// keyword tables and weights come from a Ruleset.
package scoring

import (
	"fmt"
	"math"
	"sort"
)

// contribution is one heuristic's share of a card's score.
type contribution struct {
	score   float64
	reasons []string
}

func (c *contribution) add(format string, args ...any) {
	if len(args) == 0 {
		c.reasons = append(c.reasons, format)
		return
	}
	c.reasons = append(c.reasons, fmt.Sprintf(format, args...))
}

type scorer struct {
	name string
	fn   func(rs *Ruleset, c *Card, a *Answers) contribution
}

// scorers run in this order; reasons are reported in the same order.
var scorers = []scorer{
	{"value", scoreValue},
	{"approval", scoreApproval},
	{"goal", scoreGoal},
	{"fee", scoreFee},
	{"travel", scoreTravel},
	{"loyalty", scoreLoyalty},
	{"perks", scorePerks},
	{"strategy", scoreStrategy},
	{"business", scoreBusiness},
	{"region", scoreRegion},
	{"quiz", scoreQuiz},
	{"low_interest", scoreLowInterest},
}

// Part is a single named contribution in a Breakdown.
type Part struct {
	Name    string   `json:"name"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// Breakdown explains how a card's score was assembled.
type Breakdown struct {
	Eligible bool     `json:"eligible"`
	Parts    []Part   `json:"parts"`
	Score    float64  `json:"score"`
	Reasons  []string `json:"reasons"`
}

type Engine struct {
	rules *Ruleset
}

// NewEngine builds an engine over rules. A nil ruleset selects the
// embedded default.
func NewEngine(rules *Ruleset) *Engine {
	if rules == nil {
		rules = DefaultRuleset()
	}
	return &Engine{rules: rules}
}

func (e *Engine) Rules() *Ruleset {
	return e.rules
}

// Eligible reports whether the card passes the eligibility filter.
func (e *Engine) Eligible(c Card, a Answers) bool {
	return e.rules.Eligible(&c, &a)
}

// Explain scores a single card and returns each contribution separately.
// Ineligible cards are still scored so operators can see why they rank.
func (e *Engine) Explain(c Card, a Answers) Breakdown {
	b := Breakdown{Eligible: e.rules.Eligible(&c, &a)}
	total := 0.0
	var reasons []string
	for _, s := range scorers {
		part := s.fn(e.rules, &c, &a)
		total += part.score
		reasons = append(reasons, part.reasons...)
		b.Parts = append(b.Parts, Part{Name: s.name, Score: round2(part.score), Reasons: part.reasons})
	}
	b.Score = round2(total)
	b.Reasons = capReasons(reasons, e.rules.MaxReasons)
	return b
}

// Score returns the rounded fitness score and the capped reason list for a
// card, without applying the eligibility filter.
func (e *Engine) Score(c Card, a Answers) (float64, []string) {
	b := e.Explain(c, a)
	return b.Score, b.Reasons
}

// Rank filters out ineligible cards, scores the rest and returns them
// ordered by score, highest first. Equal scores keep catalog order.
func (e *Engine) Rank(cards []Card, a Answers) []ScoreResult {
	results := make([]ScoreResult, 0, len(cards))
	for i := range cards {
		c := &cards[i]
		if !e.rules.Eligible(c, &a) {
			continue
		}
		score, reasons := e.Score(*c, a)
		results = append(results, ScoreResult{
			Card:    c.Clone(),
			Score:   score,
			Reasons: reasons,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func capReasons(reasons []string, limit int) []string {
	if len(reasons) > limit {
		reasons = reasons[:limit]
	}
	out := make([]string, len(reasons))
	copy(out, reasons)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
