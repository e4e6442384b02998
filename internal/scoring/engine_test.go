package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() []Card {
	biz := groceryCard()
	biz.ID = "biz-grocer"
	biz.Name = "Grocer Business"
	biz.IsBusiness = Bool(true)

	hidden := groceryCard()
	hidden.ID = "hidden"
	hidden.Visibility = Bool(false)

	return []Card{groceryCard(), premiumTravelCard(), localCreditUnionCard(), biz, hidden}
}

func TestRankFiltersAndOrders(t *testing.T) {
	e := NewEngine(nil)
	answers := Answers{
		State:           "CA",
		CreditScore:     "excellent",
		SpendGroceries:  Float(6000),
		SpendTravel:     Float(5000),
		Goal:            "travel",
		AnnualFee:       "premium",
		TravelFrequency: "frequently",
		RedemptionValue: "yes",
		BusinessCards:   "no",
	}

	results := e.Rank(catalog(), answers)
	require.Len(t, results, 3, "hidden and out-of-state cards are filtered")

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = string(r.ID)
	}
	assert.Equal(t, []string{"sky-reserve", "grocer-cash", "biz-grocer"}, ids)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	for _, r := range results {
		assert.LessOrEqual(t, len(r.Reasons), 6)
		assert.NotNil(t, r.Reasons)
	}
}

func TestRankBusinessPenaltyIsSoft(t *testing.T) {
	e := NewEngine(nil)
	personal := groceryCard()
	biz := groceryCard()
	biz.ID = "biz"
	biz.IsBusiness = Bool(true)

	answers := Answers{SpendGroceries: Float(1200), BusinessCards: "no"}
	personalScore, _ := e.Score(personal, answers)
	bizScore, reasons := e.Score(biz, answers)
	assert.InDelta(t, -5, bizScore-personalScore, 1e-9)
	assert.Contains(t, reasons, "Business card; you asked for personal cards.")

	results := e.Rank([]Card{biz, personal}, answers)
	require.Len(t, results, 2)
	assert.Equal(t, Text("grocer-cash"), results[0].ID)
	assert.Equal(t, Text("biz"), results[1].ID)
}

func TestRankStableOnTies(t *testing.T) {
	e := NewEngine(nil)
	var cards []Card
	for _, id := range []Text{"c", "a", "b", "d"} {
		c := groceryCard()
		c.ID = id
		cards = append(cards, c)
	}

	results := e.Rank(cards, Answers{SpendGroceries: Float(100)})
	require.Len(t, results, 4)
	for i, id := range []Text{"c", "a", "b", "d"} {
		assert.Equal(t, id, results[i].ID)
	}
}

func TestRankDeterministic(t *testing.T) {
	e := NewEngine(nil)
	answers := Answers{
		State:           "IL",
		CreditScore:     "good",
		SpendGas:        Float(2000),
		SpendDining:     Float(1500),
		Goal:            "cashback",
		AnnualFee:       "no_fee",
		Perks:           StringList{"lounge", "credits"},
		Airline:         StringList{"delta"},
		TravelFrequency: "occasionally",
		CardStrategy:    "balanced",
	}

	first := e.Rank(catalog(), answers)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Rank(catalog(), answers))
	}
}

func TestRankDoesNotMutateCatalog(t *testing.T) {
	e := NewEngine(nil)
	cards := catalog()
	before := make([]Card, len(cards))
	for i, c := range cards {
		before[i] = c.Clone()
	}

	results := e.Rank(cards, Answers{State: "IL", SpendTravel: Float(3000), TravelFrequency: "frequently"})
	require.NotEmpty(t, results)
	assert.Equal(t, before, cards)

	results[0].Name = "changed"
	results[0].Rewards[0].Category = "changed"
	for _, c := range cards {
		assert.NotEqual(t, "changed", c.Name)
		for _, r := range c.Rewards {
			assert.NotEqual(t, "changed", r.Category)
		}
	}
}

func TestRankEmpty(t *testing.T) {
	e := NewEngine(nil)
	results := e.Rank(nil, Answers{})
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestScoreCapsReasons(t *testing.T) {
	e := NewEngine(nil)
	answers := Answers{
		CreditScore:     "excellent",
		SpendTravel:     Float(8000),
		Goal:            "points_miles",
		AnnualFee:       "premium",
		TravelFrequency: "frequently",
		Perks:           StringList{"lounge", "travel_insurance"},
		Airline:         StringList{"delta"},
		Hotel:           StringList{"hilton"},
		CardStrategy:    "optimizer",
	}

	b := e.Explain(premiumTravelCard(), answers)
	var all []string
	for _, p := range b.Parts {
		all = append(all, p.Reasons...)
	}
	require.Greater(t, len(all), 6)
	assert.Equal(t, all[:6], b.Reasons)

	score, reasons := e.Score(premiumTravelCard(), answers)
	assert.Equal(t, b.Score, score)
	assert.Equal(t, b.Reasons, reasons)
}

func TestExplainPartsSumToScore(t *testing.T) {
	e := NewEngine(nil)
	answers := Answers{
		State:          "WI",
		CreditScore:    "fair",
		SpendGas:       Float(1800),
		Goal:           "cashback",
		AnnualFee:      "no_fee",
		BusinessCards:  "open_to_both",
		CardStrategy:   "minimalist",
		SpendGroceries: Float(900),
	}

	b := e.Explain(localCreditUnionCard(), answers)
	assert.True(t, b.Eligible)
	require.Len(t, b.Parts, len(scorers))

	sum := 0.0
	for i, p := range b.Parts {
		assert.Equal(t, scorers[i].name, p.Name)
		sum += p.Score
	}
	assert.InDelta(t, sum, b.Score, 0.01*float64(len(scorers)))

	hidden := groceryCard()
	hidden.Visibility = Bool(false)
	assert.False(t, e.Explain(hidden, answers).Eligible)
}

func TestScoreRounded(t *testing.T) {
	e := NewEngine(nil)
	score, _ := e.Score(groceryCard(), Answers{SpendGroceries: Float(333), RedemptionValue: "no"})
	assert.Equal(t, round2(score), score)
}
