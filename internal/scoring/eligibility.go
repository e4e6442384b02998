package scoring

import "strings"

// IsNational reports whether a card is available without a state
// restriction: an empty region list, or one carrying a national marker.
func (rs *Ruleset) IsNational(c *Card) bool {
	if len(c.AvailableRegions) == 0 {
		return true
	}
	for _, region := range c.AvailableRegions {
		r := strings.ToLower(strings.TrimSpace(region))
		for _, marker := range rs.Eligibility.NationalMarkers {
			if strings.EqualFold(r, marker) {
				return true
			}
		}
	}
	return false
}

// listsState reports whether the card's region list names the state.
func listsState(c *Card, state string) bool {
	if state == "" {
		return false
	}
	for _, region := range c.AvailableRegions {
		if strings.EqualFold(strings.TrimSpace(region), state) {
			return true
		}
	}
	return false
}

// Eligible reports whether a card can be shown to the user at all.
func (rs *Ruleset) Eligible(c *Card, a *Answers) bool {
	if c.Visibility.IsFalse() {
		return false
	}
	if status := strings.TrimSpace(c.AvailabilityStatus); status != "" &&
		!strings.EqualFold(status, rs.Eligibility.ActiveStatus) {
		return false
	}

	if !rs.IsNational(c) && !listsState(c, strings.TrimSpace(string(a.State))) {
		return false
	}

	if c.MinCreditScore.Valid {
		user := rs.CreditScore(a.CreditScore)
		if user > 0 && user+rs.Eligibility.CreditLeeway < c.MinCreditScore.Value {
			return false
		}
	}
	return true
}
