package scoring

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Spend category labels.
const (
	Groceries      = "Groceries"
	Dining         = "Dining"
	Travel         = "Travel"
	Gas            = "Gas"
	Transit        = "Transit"
	OnlineShopping = "Online Shopping"
	Rent           = "Rent"
	Entertainment  = "Entertainment"
	Utilities      = "Utilities"
	Other          = "Other"
)

// SpendCategories lists the fixed spend buckets in evaluation order.
var SpendCategories = []string{
	Groceries, Dining, Travel, Gas, Transit,
	OnlineShopping, Rent, Entertainment, Utilities, Other,
}

//go:embed rules/default.yaml
var defaultRulesYAML []byte

var (
	defaultOnce  sync.Once
	defaultRules *Ruleset
)

// Ruleset carries every keyword table, weight and threshold used by the
// engine. A loaded ruleset is shared across requests and must not be
// modified.
type Ruleset struct {
	Version string `yaml:"version"`

	Categories  []CategoryRule     `yaml:"categories"`
	CatchAll    []string           `yaml:"catch_all"`
	DefaultRate float64            `yaml:"default_rate"`
	CreditTiers map[string]float64 `yaml:"credit_tiers"`

	Eligibility  EligibilityRules  `yaml:"eligibility"`
	Points       PointValueRules   `yaml:"point_value"`
	Value        ValueRules        `yaml:"value"`
	MaxReasons   int               `yaml:"max_reasons"`
	Approval     ApprovalRules     `yaml:"approval"`
	Goal         GoalRules         `yaml:"goal"`
	Fee          FeeRules          `yaml:"fee"`
	Travel       TravelRules       `yaml:"travel"`
	Loyalty      LoyaltyRules      `yaml:"loyalty"`
	Perks        PerkRules         `yaml:"perks"`
	Strategy     StrategyRules     `yaml:"strategy"`
	Business     BusinessRules     `yaml:"business"`
	Region       RegionRules       `yaml:"region"`
	Quiz         QuizRules         `yaml:"quiz"`
	LowInterest  LowInterestRules  `yaml:"low_interest"`
	categoryByID map[string]CategoryRule
}

type CategoryRule struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

type EligibilityRules struct {
	CreditLeeway    float64  `yaml:"credit_leeway"`
	NationalMarkers []string `yaml:"national_markers"`
	ActiveStatus    string   `yaml:"active_status"`
}

type PointValueRules struct {
	Baseline      float64 `yaml:"baseline"`
	MaxMultiplier float64 `yaml:"max_multiplier"`
}

type ValueRules struct {
	ScoreDivisor float64 `yaml:"score_divisor"`
}

type Band struct {
	Min   float64 `yaml:"min"`
	Score float64 `yaml:"score"`
}

type ApprovalRules struct {
	Enabled bool    `yaml:"enabled"`
	Bands   []Band  `yaml:"bands"`
	Floor   float64 `yaml:"floor"`
}

type GoalRules struct {
	Exact    float64             `yaml:"exact"`
	Synonym  float64             `yaml:"synonym"`
	Adjacent float64             `yaml:"adjacent"`
	Weak     float64             `yaml:"weak"`
	Synonyms map[string][]string `yaml:"synonyms"`
	Nearby   map[string][]string `yaml:"adjacent_goals"`
	Labels   map[string]string   `yaml:"labels"`
}

type FeeRules struct {
	Aliases      map[string][]string `yaml:"aliases"`
	NoFee        NoFeeRule           `yaml:"no_fee"`
	SmallFee     SmallFeeRule        `yaml:"small_fee"`
	Premium      PremiumRule         `yaml:"premium"`
	NoPreference float64             `yaml:"no_preference"`
}

type NoFeeRule struct {
	Zero  float64 `yaml:"zero"`
	High  float64 `yaml:"high"`
	Low   float64 `yaml:"low"`
	Decay float64 `yaml:"decay"`
}

type SmallFeeRule struct {
	Zero     float64 `yaml:"zero"`
	Limit    float64 `yaml:"limit"`
	Within   float64 `yaml:"within"`
	MidLimit float64 `yaml:"mid_limit"`
	Mid      float64 `yaml:"mid"`
	Over     float64 `yaml:"over"`
}

type PremiumRule struct {
	Tiers []Band  `yaml:"tiers"`
	Floor float64 `yaml:"floor"`
}

type TravelRules struct {
	Base                  map[string]float64 `yaml:"base"`
	ReasonMinBase         float64            `yaml:"reason_min_base"`
	TravelRewardsBonus    float64            `yaml:"travel_rewards_bonus"`
	TransferPartnersBonus float64            `yaml:"transfer_partners_bonus"`
	NoForeignFeeBonus     float64            `yaml:"no_foreign_fee_bonus"`
	NoForeignFeeMarkers   []string           `yaml:"no_foreign_fee_markers"`
}

type LoyaltyRules struct {
	AirlinePartner      float64  `yaml:"airline_partner"`
	AirlineBenefit      float64  `yaml:"airline_benefit"`
	HotelPartner        float64  `yaml:"hotel_partner"`
	HotelBenefit        float64  `yaml:"hotel_benefit"`
	International       float64  `yaml:"international"`
	InternationalMarker []string `yaml:"international_markers"`
	Ignore              []string `yaml:"ignore"`
	Cap                 float64  `yaml:"cap"`
}

type PerkRule struct {
	Tag            string   `yaml:"tag"`
	Label          string   `yaml:"label"`
	Weight         float64  `yaml:"weight"`
	Keywords       []string `yaml:"keywords"`
	UseForeignFees bool     `yaml:"use_foreign_fees"`
}

type PerkRules struct {
	Cap       float64    `yaml:"cap"`
	NoneScore float64    `yaml:"none_score"`
	Rules     []PerkRule `yaml:"rules"`
}

type StrategyRules struct {
	MinimalistStandalone float64 `yaml:"minimalist_standalone"`
	MinimalistPaired     float64 `yaml:"minimalist_paired"`
	OptimizerPaired      float64 `yaml:"optimizer_paired"`
	OptimizerStandalone  float64 `yaml:"optimizer_standalone"`
	Balanced             float64 `yaml:"balanced"`
}

type BusinessRules struct {
	Aliases          map[string][]string `yaml:"aliases"`
	Penalty          float64             `yaml:"penalty"`
	Preferred        float64             `yaml:"preferred"`
	Open             float64             `yaml:"open"`
	PersonalForOwner float64             `yaml:"personal_for_owner"`
	PersonalForOpen  float64             `yaml:"personal_for_open"`
}

type RegionRules struct {
	StateMatch    float64 `yaml:"state_match"`
	PriorityMatch float64 `yaml:"priority_match"`
}

type QuizRules struct {
	PerTag     float64             `yaml:"per_tag"`
	Cap        float64             `yaml:"cap"`
	Floor      float64             `yaml:"floor"`
	CreditTags map[string][]string `yaml:"credit_tags"`
	TravelTags map[string][]string `yaml:"travel_tags"`
	Business   map[string][]string `yaml:"business_tags"`
	Strategy   map[string][]string `yaml:"strategy_tags"`
}

type LowInterestRules struct {
	Goal                 string   `yaml:"goal"`
	IntroZero            float64  `yaml:"intro_zero"`
	IntroZeroBenefit     float64  `yaml:"intro_zero_benefit"`
	IntroZeroMarkers     []string `yaml:"intro_zero_markers"`
	BalanceTransfer      float64  `yaml:"balance_transfer"`
	BalanceTransferOther float64  `yaml:"balance_transfer_benefit"`
	BalanceTransferMarks []string `yaml:"balance_transfer_markers"`
	LowOngoing           float64  `yaml:"low_ongoing"`
	LowOngoingRate       float64  `yaml:"low_ongoing_rate"`
	LowOngoingMarkers    []string `yaml:"low_ongoing_markers"`
	LowOngoingMaxAPR     float64  `yaml:"low_ongoing_max_apr"`
}

var (
	ErrNoVersion       = errors.New("ruleset: version is required")
	ErrMissingCategory = errors.New("ruleset: missing spend category")
	ErrBadCap          = errors.New("ruleset: caps must be positive")
)

// DefaultRuleset returns the embedded ruleset. It panics if the embedded
// file is invalid.
func DefaultRuleset() *Ruleset {
	defaultOnce.Do(func() {
		rs, err := ParseRuleset(defaultRulesYAML)
		if err != nil {
			panic(err)
		}
		defaultRules = rs
	})
	return defaultRules
}

// LoadRuleset reads a ruleset file. An empty path yields the default.
func LoadRuleset(path string) (*Ruleset, error) {
	if path == "" {
		return DefaultRuleset(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset %s: %w", path, err)
	}
	return ParseRuleset(raw)
}

// ParseRuleset decodes and validates a YAML ruleset.
func ParseRuleset(raw []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("parse ruleset: %w", err)
	}
	if err := rs.validate(); err != nil {
		return nil, err
	}
	sortBands(rs.Approval.Bands)
	sortBands(rs.Fee.Premium.Tiers)
	rs.categoryByID = make(map[string]CategoryRule, len(rs.Categories))
	for _, c := range rs.Categories {
		rs.categoryByID[c.Label] = c
	}
	return &rs, nil
}

func (rs *Ruleset) validate() error {
	if rs.Version == "" {
		return ErrNoVersion
	}
	have := make(map[string]bool, len(rs.Categories))
	for _, c := range rs.Categories {
		have[c.Label] = true
	}
	for _, label := range SpendCategories {
		if !have[label] {
			return fmt.Errorf("%w: %s", ErrMissingCategory, label)
		}
	}
	if rs.Perks.Cap <= 0 || rs.Loyalty.Cap <= 0 || rs.Quiz.Cap <= 0 || rs.MaxReasons <= 0 {
		return ErrBadCap
	}
	if rs.Value.ScoreDivisor <= 0 {
		return fmt.Errorf("ruleset: value.score_divisor must be positive")
	}
	return nil
}

// sortBands orders bands from the highest threshold down.
func sortBands(b []Band) {
	sort.SliceStable(b, func(i, j int) bool { return b[i].Min > b[j].Min })
}

func (rs *Ruleset) category(label string) (CategoryRule, bool) {
	c, ok := rs.categoryByID[label]
	return c, ok
}
