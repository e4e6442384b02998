package scoring

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
)

var jsonNull = []byte("null")

// OptFloat is an optional number. Anything other than a JSON number decodes
// to an absent value instead of failing the whole document.
type OptFloat struct {
	Value float64
	Valid bool
}

// Float returns a present OptFloat.
func Float(v float64) OptFloat {
	return OptFloat{Value: v, Valid: true}
}

func (f *OptFloat) UnmarshalJSON(b []byte) error {
	*f = OptFloat{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) || b[0] == '"' {
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*f = OptFloat{Value: v, Valid: true}
	return nil
}

func (f OptFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return jsonNull, nil
	}
	return json.Marshal(f.Value)
}

// Or returns the value, or def when absent.
func (f OptFloat) Or(def float64) float64 {
	if !f.Valid {
		return def
	}
	return f.Value
}

// Positive reports whether the value is present and greater than zero.
func (f OptFloat) Positive() bool {
	return f.Valid && f.Value > 0
}

// OptBool is an optional boolean; only JSON true/false are recognized.
type OptBool struct {
	Value bool
	Valid bool
}

// Bool returns a present OptBool.
func Bool(v bool) OptBool {
	return OptBool{Value: v, Valid: true}
}

func (o *OptBool) UnmarshalJSON(b []byte) error {
	*o = OptBool{}
	switch string(bytes.TrimSpace(b)) {
	case "true":
		*o = OptBool{Value: true, Valid: true}
	case "false":
		*o = OptBool{Value: false, Valid: true}
	}
	return nil
}

func (o OptBool) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return jsonNull, nil
	}
	return json.Marshal(o.Value)
}

// IsTrue is true only for an explicit true.
func (o OptBool) IsTrue() bool { return o.Valid && o.Value }

// IsFalse is true only for an explicit false.
func (o OptBool) IsFalse() bool { return o.Valid && !o.Value }

// Text is a string that also accepts JSON numbers (zip codes, numeric ids).
// Other shapes decode to "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = ""
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*t = Text(n.String())
	}
	return nil
}

// Norm lowercases and trims the text.
func (t Text) Norm() string {
	return strings.ToLower(strings.TrimSpace(string(t)))
}

// StringList accepts either a JSON array of strings or a single string.
// Non-string items and empty strings are dropped.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	*l = nil
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if strings.TrimSpace(one) != "" {
			*l = StringList{one}
		}
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	out := make(StringList, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err != nil || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	*l = out
	return nil
}

func (l StringList) clone() StringList {
	if l == nil {
		return nil
	}
	return append(StringList(nil), l...)
}

// decodeLenient decodes a JSON object into v field by field. A field whose
// value has the wrong shape keeps its zero value. It reports false when b is
// not an object at all.
func decodeLenient[T any](b []byte, v *T) bool {
	if err := json.Unmarshal(b, v); err == nil {
		return true
	}
	*v = *new(T)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return false
	}
	for key, raw := range fields {
		name, err := json.Marshal(key)
		if err != nil {
			continue
		}
		one := make([]byte, 0, len(name)+len(raw)+2)
		one = append(one, '{')
		one = append(one, name...)
		one = append(one, ':')
		one = append(one, raw...)
		one = append(one, '}')

		// decoding the single key into v only touches that field
		var scratch T
		if err := json.Unmarshal(one, &scratch); err != nil {
			continue
		}
		_ = json.Unmarshal(one, v)
	}
	return true
}

// Reward is one row of a card's reward-rate table.
type Reward struct {
	Category string   `json:"category"`
	Rate     OptFloat `json:"rate"`
	Details  string   `json:"details,omitempty"`
}

type SignUpBonus struct {
	Description      string   `json:"description,omitempty"`
	ValueEstimate    OptFloat `json:"value_estimate"`
	SpendRequirement OptFloat `json:"spend_requirement"`
	TimeframeMonths  OptFloat `json:"timeframe_months"`
}

// QuizMetadata holds curation tags attached to a card.
type QuizMetadata struct {
	LocalOnly      OptBool    `json:"local_only"`
	RegionPriority StringList `json:"region_priority,omitempty"`
	RecommendedFor StringList `json:"recommended_for,omitempty"`
	ManualTags     StringList `json:"manual_tags,omitempty"`
}

// Card is a fully hydrated catalog record. Every field except ID is optional.
type Card struct {
	ID                 Text          `json:"id"`
	Name               string        `json:"name,omitempty"`
	Issuer             string        `json:"issuer,omitempty"`
	Network            string        `json:"network,omitempty"`
	Tier               string        `json:"tier,omitempty"`
	AnnualFee          OptFloat      `json:"annual_fee"`
	ForeignFees        string        `json:"foreign_fees,omitempty"`
	MinCreditScore     OptFloat      `json:"min_credit_score"`
	Visibility         OptBool       `json:"visibility"`
	AvailabilityStatus string        `json:"availability_status,omitempty"`
	AvailableRegions   StringList    `json:"available_regions,omitempty"`
	Rewards            []Reward      `json:"rewards,omitempty"`
	PointValueBaseline OptFloat      `json:"point_value_baseline"`
	PointValueMax      OptFloat      `json:"point_value_max"`
	SignUpBonus        *SignUpBonus  `json:"sign_up_bonus,omitempty"`
	RecommendedGoals   StringList    `json:"recommended_goals,omitempty"`
	CreditsAndBenefits StringList    `json:"credits_and_benefits,omitempty"`
	TransferPartners   StringList    `json:"transfer_partners,omitempty"`
	PairingSynergy     StringList    `json:"pairing_synergy,omitempty"`
	IsBusiness         OptBool       `json:"is_business"`
	QuizMetadata       *QuizMetadata `json:"quiz_metadata,omitempty"`
	IntroAPR           string        `json:"intro_apr,omitempty"`
	OngoingAPR         string        `json:"ongoing_apr,omitempty"`
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), jsonNull)
}

// UnmarshalJSON never fails: fields with the wrong shape are left empty and
// a non-object row yields an empty reward, which Card drops.
func (r *Reward) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	type plain Reward
	var p plain
	decodeLenient(b, &p)
	*r = Reward(p)
	return nil
}

func (s *SignUpBonus) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	type plain SignUpBonus
	var p plain
	decodeLenient(b, &p)
	*s = SignUpBonus(p)
	return nil
}

func (q *QuizMetadata) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	type plain QuizMetadata
	var p plain
	decodeLenient(b, &p)
	*q = QuizMetadata(p)
	return nil
}

func (q *QuizMetadata) empty() bool {
	return !q.LocalOnly.Valid && len(q.RegionPriority) == 0 &&
		len(q.RecommendedFor) == 0 && len(q.ManualTags) == 0
}

// UnmarshalJSON never fails. A field with the wrong shape is treated as
// absent; a non-object document decodes to a card without an id.
func (c *Card) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	type plain Card
	var p plain
	decodeLenient(b, &p)
	*c = Card(p)

	if c.Rewards != nil {
		rewards := c.Rewards[:0]
		for _, r := range c.Rewards {
			if r != (Reward{}) {
				rewards = append(rewards, r)
			}
		}
		c.Rewards = rewards
	}
	if c.SignUpBonus != nil && *c.SignUpBonus == (SignUpBonus{}) {
		c.SignUpBonus = nil
	}
	if c.QuizMetadata != nil && c.QuizMetadata.empty() {
		c.QuizMetadata = nil
	}
	return nil
}

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	out := c
	if c.Rewards != nil {
		out.Rewards = append([]Reward(nil), c.Rewards...)
	}
	out.AvailableRegions = c.AvailableRegions.clone()
	out.RecommendedGoals = c.RecommendedGoals.clone()
	out.CreditsAndBenefits = c.CreditsAndBenefits.clone()
	out.TransferPartners = c.TransferPartners.clone()
	out.PairingSynergy = c.PairingSynergy.clone()
	if c.SignUpBonus != nil {
		bonus := *c.SignUpBonus
		out.SignUpBonus = &bonus
	}
	if c.QuizMetadata != nil {
		meta := *c.QuizMetadata
		meta.RegionPriority = c.QuizMetadata.RegionPriority.clone()
		meta.RecommendedFor = c.QuizMetadata.RecommendedFor.clone()
		meta.ManualTags = c.QuizMetadata.ManualTags.clone()
		out.QuizMetadata = &meta
	}
	return out
}

// Answers is the flat questionnaire record submitted by a user.
type Answers struct {
	State           Text `json:"state,omitempty"`
	Zip             Text `json:"zip,omitempty"`
	CreditScore     Text `json:"creditScore,omitempty"`
	RedemptionValue Text `json:"redemption_value,omitempty"`

	SpendGroceries      OptFloat `json:"spendGroceries"`
	SpendDining         OptFloat `json:"spendDining"`
	SpendTravel         OptFloat `json:"spendTravel"`
	SpendGas            OptFloat `json:"spendGas"`
	SpendTransit        OptFloat `json:"spendTransit"`
	SpendOnlineShopping OptFloat `json:"spendOnlineShopping"`
	SpendRent           OptFloat `json:"spendRent"`
	SpendEntertainment  OptFloat `json:"spendEntertainment"`
	SpendUtilities      OptFloat `json:"spendUtilities"`
	SpendOther          OptFloat `json:"spendOther"`

	Goal            Text       `json:"goal,omitempty"`
	AnnualFee       Text       `json:"annualFee,omitempty"`
	TravelFrequency Text       `json:"travelFrequency,omitempty"`
	Perks           StringList `json:"perks,omitempty"`
	CardStrategy    Text       `json:"cardStrategy,omitempty"`
	BusinessCards   Text       `json:"businessCards,omitempty"`
	Airline         StringList `json:"airline,omitempty"`
	Hotel           StringList `json:"hotel,omitempty"`
}

// Spend returns the annualized amount for one of the fixed spend category
// labels. Unknown labels and absent amounts are 0.
func (a Answers) Spend(label string) float64 {
	var v OptFloat
	switch label {
	case Groceries:
		v = a.SpendGroceries
	case Dining:
		v = a.SpendDining
	case Travel:
		v = a.SpendTravel
	case Gas:
		v = a.SpendGas
	case Transit:
		v = a.SpendTransit
	case OnlineShopping:
		v = a.SpendOnlineShopping
	case Rent:
		v = a.SpendRent
	case Entertainment:
		v = a.SpendEntertainment
	case Utilities:
		v = a.SpendUtilities
	case Other:
		v = a.SpendOther
	}
	return v.Or(0)
}

// ScoreResult is a snapshot of a ranked card with its score and reasons.
// The embedded card is a copy; the catalog record is never modified.
type ScoreResult struct {
	Card
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// UnmarshalJSON decodes the flattened card plus score and reasons. Without
// it the embedded Card's decoder would drop both.
func (r *ScoreResult) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	if err := r.Card.UnmarshalJSON(b); err != nil {
		return err
	}
	var extra struct {
		Score   OptFloat   `json:"score"`
		Reasons StringList `json:"reasons"`
	}
	if !decodeLenient(b, &extra) {
		return nil
	}
	r.Score = extra.Score.Or(0)
	r.Reasons = []string(extra.Reasons)
	return nil
}
