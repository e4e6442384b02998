package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreGoal(t *testing.T) {
	rs := DefaultRuleset()

	tests := []struct {
		name  string
		goal  Text
		goals StringList
		want  float64
	}{
		{"no goal", "", StringList{"cashback"}, 0},
		{"exact tag", "cashback", StringList{"cashback"}, 1.5},
		{"synonym", "cash", StringList{"cashback"}, 1.0},
		{"travel synonym", "travel", StringList{"points_miles"}, 1.0},
		{"adjacent", "cashback", StringList{"points_miles"}, 0.8},
		{"unrelated", "cashback", StringList{"build_credit"}, 0.3},
		{"card without goals", "cashback", nil, 0.3},
		{"best tag wins", "cashback", StringList{"build_credit", "cash_back", "cashback"}, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := Card{RecommendedGoals: tt.goals}
			got := scoreGoal(rs, &card, &Answers{Goal: tt.goal})
			assert.Equal(t, tt.want, got.score)
		})
	}
}

func TestScoreFeeNoFeeIsStrictlyDecreasing(t *testing.T) {
	rs := DefaultRuleset()
	answers := Answers{AnnualFee: "no_fee"}

	prev := 0.0
	for i, fee := range []float64{0, 1, 10, 49, 95, 250, 550, 995} {
		card := Card{AnnualFee: Float(fee)}
		got := scoreFee(rs, &card, &answers).score
		if i > 0 {
			assert.Less(t, got, prev, "fee %.0f", fee)
		}
		prev = got
	}

	zero := Card{AnnualFee: Float(0)}
	assert.Equal(t, 1.2, scoreFee(rs, &zero, &answers).score)
	high := Card{AnnualFee: Float(1000)}
	got := scoreFee(rs, &high, &answers).score
	assert.Greater(t, got, 0.1)
	assert.LessOrEqual(t, got, 0.3)
}

func TestScoreFeeTiers(t *testing.T) {
	rs := DefaultRuleset()

	tests := []struct {
		pref Text
		fee  float64
		want float64
	}{
		{"small_fee", 0, 0.8},
		{"small_fee", 95, 1.0},
		{"small_fee", 100, 1.0},
		{"small_fee", 150, 0.4},
		{"small_fee", 550, 0.1},
		{"premium", 695, 1.0},
		{"premium", 400, 1.0},
		{"premium", 325, 0.8},
		{"premium", 95, 0.5},
		{"premium", 0, 0.2},
		{"premium_ok", 0, 0.2},
		{"no_preference", 95, 0.5},
		{"whatever", 95, 0},
		{"", 95, 0},
	}
	for _, tt := range tests {
		card := Card{AnnualFee: Float(tt.fee)}
		got := scoreFee(rs, &card, &Answers{AnnualFee: tt.pref})
		assert.Equal(t, tt.want, got.score, "%s at %.0f", tt.pref, tt.fee)
	}
}

func TestScoreTravel(t *testing.T) {
	rs := DefaultRuleset()
	card := premiumTravelCard()

	got := scoreTravel(rs, &card, &Answers{TravelFrequency: "frequently"})
	assert.InDelta(t, 1.0*(1+0.5+0.4+0.3), got.score, 1e-9)
	assert.Equal(t, []string{
		"Earns bonus rewards on travel.",
		"Points transfer to travel partners.",
		"No foreign transaction fees.",
	}, got.reasons)

	got = scoreTravel(rs, &card, &Answers{TravelFrequency: "rarely"})
	assert.InDelta(t, 0.2*2.2, got.score, 1e-9)
	assert.Empty(t, got.reasons)

	bare := groceryCard()
	got = scoreTravel(rs, &bare, &Answers{TravelFrequency: "occasionally"})
	assert.InDelta(t, 0.6, got.score, 1e-9)

	assert.Zero(t, scoreTravel(rs, &card, &Answers{}).score)
	assert.Zero(t, scoreTravel(rs, &card, &Answers{TravelFrequency: "never"}).score)
}

func TestScoreLoyalty(t *testing.T) {
	rs := DefaultRuleset()
	card := premiumTravelCard()

	got := scoreLoyalty(rs, &card, &Answers{Airline: StringList{"delta"}})
	assert.Equal(t, 1.5, got.score)
	assert.Equal(t, []string{"Transfers points to Delta SkyMiles."}, got.reasons)

	got = scoreLoyalty(rs, &card, &Answers{Hotel: StringList{"hilton"}})
	assert.Equal(t, 1.2, got.score)

	noPartners := Card{Name: "Skyline Delta Card", CreditsAndBenefits: StringList{"Free checked bag on Delta flights"}}
	got = scoreLoyalty(rs, &noPartners, &Answers{Airline: StringList{"delta", "international"}})
	assert.Equal(t, 0.7, got.score, "benefit match only; international needs partners")

	got = scoreLoyalty(rs, &card, &Answers{Airline: StringList{"international", "none"}})
	assert.Equal(t, 0.7, got.score)

	got = scoreLoyalty(rs, &card, &Answers{
		Airline: StringList{"delta", "united", "international"},
		Hotel:   StringList{"marriott", "hilton"},
	})
	assert.Equal(t, 4.0, got.score, "capped")
}

func TestScorePerks(t *testing.T) {
	rs := DefaultRuleset()
	card := premiumTravelCard()

	got := scorePerks(rs, &card, &Answers{Perks: StringList{"lounge", "travel_insurance"}})
	assert.InDelta(t, 1.3, got.score, 1e-9)
	assert.Equal(t, []string{"Includes perks you want: lounge access, travel insurance."}, got.reasons)

	got = scorePerks(rs, &card, &Answers{Perks: StringList{"no foreign fee"}})
	assert.InDelta(t, 0.5, got.score, 1e-9, "falls back to the foreign fee field")

	got = scorePerks(rs, &card, &Answers{Perks: StringList{"none"}})
	assert.Equal(t, 0.2, got.score)

	assert.Zero(t, scorePerks(rs, &card, &Answers{}).score)
	assert.Zero(t, scorePerks(rs, &card, &Answers{Perks: StringList{"jetpack"}}).score)
}

func TestScorePerksCapped(t *testing.T) {
	rs := DefaultRuleset()
	card := Card{CreditsAndBenefits: StringList{
		"Lounge access", "Travel insurance", "Rental car insurance", "Cell phone protection",
		"Extended warranty", "Purchase protection", "No foreign transaction fees",
		"$200 airline credit", "Gold elite status", "Shopping portal bonus", "Airport parking",
	}}
	var tags StringList
	for _, r := range rs.Perks.Rules {
		tags = append(tags, r.Tag)
	}

	got := scorePerks(rs, &card, &Answers{Perks: tags})
	assert.Equal(t, 2.0, got.score)
}

func TestScoreStrategy(t *testing.T) {
	rs := DefaultRuleset()
	paired := premiumTravelCard()
	solo := groceryCard()

	assert.Equal(t, 1.0, scoreStrategy(rs, &solo, &Answers{CardStrategy: "minimalist"}).score)
	assert.Equal(t, 0.5, scoreStrategy(rs, &paired, &Answers{CardStrategy: "minimalist"}).score)
	assert.Equal(t, 1.0, scoreStrategy(rs, &paired, &Answers{CardStrategy: "optimizer"}).score)
	assert.Equal(t, 0.6, scoreStrategy(rs, &solo, &Answers{CardStrategy: "optimizer"}).score)
	assert.Equal(t, 0.8, scoreStrategy(rs, &solo, &Answers{CardStrategy: "balanced"}).score)
	assert.Zero(t, scoreStrategy(rs, &solo, &Answers{}).score)

	got := scoreStrategy(rs, &paired, &Answers{CardStrategy: "optimizer"})
	assert.Equal(t, []string{"Pairs well with Everyday Cash and Grocer Cash."}, got.reasons)
}

func TestScoreBusiness(t *testing.T) {
	rs := DefaultRuleset()
	biz := groceryCard()
	biz.IsBusiness = Bool(true)
	personal := groceryCard()

	tests := []struct {
		answer   Text
		business float64
		personal float64
	}{
		{"no", -5, 0},
		{"yes", 1.0, 0.1},
		{"open_to_both", 0.4, 0.2},
		{"", 0, 0},
	}
	for _, tt := range tests {
		a := Answers{BusinessCards: tt.answer}
		assert.Equal(t, tt.business, scoreBusiness(rs, &biz, &a).score, "business card, answer %q", tt.answer)
		assert.Equal(t, tt.personal, scoreBusiness(rs, &personal, &a).score, "personal card, answer %q", tt.answer)
	}
}

func TestScoreRegion(t *testing.T) {
	rs := DefaultRuleset()
	local := localCreditUnionCard()

	got := scoreRegion(rs, &local, &Answers{State: "il"})
	assert.Equal(t, 1.0, got.score)
	assert.Equal(t, []string{"Local card for IL residents.", "Prioritized for IL residents."}, got.reasons)

	got = scoreRegion(rs, &local, &Answers{State: "WI"})
	assert.Equal(t, 0.5, got.score)

	national := groceryCard()
	assert.Zero(t, scoreRegion(rs, &national, &Answers{State: "IL"}).score)
	assert.Zero(t, scoreRegion(rs, &local, &Answers{}).score)
}

func TestScoreQuiz(t *testing.T) {
	rs := DefaultRuleset()

	card := premiumTravelCard()
	got := scoreQuiz(rs, &card, &Answers{CreditScore: "excellent", TravelFrequency: "frequently"})
	assert.InDelta(t, 0.8, got.score, 1e-9)
	assert.Equal(t, []string{"Recommended for: excellent credit, frequent traveler."}, got.reasons)

	got = scoreQuiz(rs, &card, &Answers{CreditScore: "poor"})
	assert.Equal(t, 0.1, got.score, "floor when tags exist but none match")

	untagged := groceryCard()
	assert.Zero(t, scoreQuiz(rs, &untagged, &Answers{CreditScore: "excellent"}).score)
	empty := Card{QuizMetadata: &QuizMetadata{}}
	assert.Zero(t, scoreQuiz(rs, &empty, &Answers{CreditScore: "excellent"}).score)
}

func TestScoreQuizCapped(t *testing.T) {
	rs := DefaultRuleset()
	answers := Answers{
		CreditScore:     "excellent",
		Goal:            "travel",
		TravelFrequency: "frequently",
		BusinessCards:   "yes",
		CardStrategy:    "optimizer",
	}
	tags := StringList(rs.profileTags(&answers))
	require.Greater(t, len(tags), 4)

	card := Card{QuizMetadata: &QuizMetadata{RecommendedFor: tags}}
	assert.Equal(t, 1.5, scoreQuiz(rs, &card, &answers).score)
}

func TestScoreLowInterest(t *testing.T) {
	rs := DefaultRuleset()
	card := Card{
		IntroAPR:   "0% intro APR for 15 months on purchases and balance transfers",
		OngoingAPR: "18.24% - 28.24% Variable",
	}

	got := scoreLowInterest(rs, &card, &Answers{Goal: "low_interest"})
	assert.InDelta(t, 1.5+1.0+0.3, got.score, 1e-9)
	assert.Equal(t, []string{"0% intro APR offer.", "Balance transfer offer."}, got.reasons)

	assert.Zero(t, scoreLowInterest(rs, &card, &Answers{Goal: "cashback"}).score)
	assert.Zero(t, scoreLowInterest(rs, &card, &Answers{}).score)

	benefitsOnly := Card{
		CreditsAndBenefits: StringList{"0% on balance transfers for 12 months"},
		OngoingAPR:         "Low APR card",
	}
	got = scoreLowInterest(rs, &benefitsOnly, &Answers{Goal: "balance_transfer"})
	assert.InDelta(t, 1.2+0.8+0.4, got.score, 1e-9)
}

func TestScoreApproval(t *testing.T) {
	rs := DefaultRuleset()

	tests := []struct {
		min    float64
		bucket Text
		want   float64
	}{
		{700, "excellent", 2.0},
		{700, "very_good", 2.0},
		{730, "very_good", 1.5},
		{700, "good", 1.0},
		{710, "good", 0.4},
		{720, "good", 0.1},
		{700, "", 0},
	}
	for _, tt := range tests {
		card := Card{MinCreditScore: Float(tt.min)}
		got := scoreApproval(rs, &card, &Answers{CreditScore: tt.bucket})
		assert.Equal(t, tt.want, got.score, "min %.0f bucket %q", tt.min, tt.bucket)
	}

	noMin := Card{}
	assert.Zero(t, scoreApproval(rs, &noMin, &Answers{CreditScore: "good"}).score)
}
