package scoring

import (
	"fmt"
	"math"
)

// CreditScore maps a credit bucket answer to a representative score.
// Unknown or missing buckets map to 0, which disables credit filtering.
func (rs *Ruleset) CreditScore(bucket Text) float64 {
	return rs.CreditTiers[normTag(string(bucket))]
}

// PointValue returns the dollars attributed to one point for the given
// redemption effort answer.
func (rs *Ruleset) PointValue(c *Card, effort Text) float64 {
	baseline := rs.Points.Baseline
	if c.PointValueBaseline.Positive() {
		baseline = c.PointValueBaseline.Value
	}
	top := baseline * rs.Points.MaxMultiplier
	if c.PointValueMax.Positive() {
		top = c.PointValueMax.Value
	}

	switch effort.Norm() {
	case "yes":
		return top
	case "sometimes":
		return (baseline + top) / 2
	default:
		return baseline
	}
}

// Estimate is the first-year dollar value of a card for a user.
type Estimate struct {
	YearlyRewards float64 `json:"yearly_rewards"`
	Bonus         float64 `json:"bonus"`
	AnnualFee     float64 `json:"annual_fee"`
	NetFirstYear  float64 `json:"net_first_year"`
}

// EstimateValue annualizes category spend into rewards and nets the sign-up
// bonus and annual fee.
func (rs *Ruleset) EstimateValue(c *Card, a *Answers) Estimate {
	pv := rs.PointValue(c, a.RedemptionValue)

	var est Estimate
	for _, label := range SpendCategories {
		amount := a.Spend(label)
		if amount <= 0 {
			continue
		}
		est.YearlyRewards += amount * rs.CategoryRate(c.Rewards, label) * pv
	}
	if c.SignUpBonus != nil {
		est.Bonus = c.SignUpBonus.ValueEstimate.Or(0)
	}
	est.AnnualFee = c.AnnualFee.Or(0)
	est.NetFirstYear = est.YearlyRewards + est.Bonus - est.AnnualFee
	return est
}

func scoreValue(rs *Ruleset, c *Card, a *Answers) contribution {
	est := rs.EstimateValue(c, a)
	out := contribution{score: est.NetFirstYear / rs.Value.ScoreDivisor}

	if est.YearlyRewards > 0 {
		out.add("Estimated %s in yearly rewards based on your spending.", dollars(est.YearlyRewards))
	}
	if est.Bonus > 0 {
		out.add("Sign-up bonus worth about %s.", dollars(est.Bonus))
	}
	if est.AnnualFee > 0 {
		out.add("Annual fee of %s.", dollars(est.AnnualFee))
	} else {
		out.add("No annual fee.")
	}
	return out
}

func dollars(v float64) string {
	return fmt.Sprintf("$%.0f", math.Round(v))
}
