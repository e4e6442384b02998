package scoring

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var percentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// aliasOf resolves a free-form answer to the canonical key whose alias list
// contains it. Keys are checked in sorted order so overlapping aliases
// resolve the same way every time.
func aliasOf(aliases map[string][]string, answer Text) string {
	v := normTag(string(answer))
	if v == "" {
		return ""
	}
	if _, ok := aliases[v]; ok {
		return v
	}
	for _, key := range sortedKeys(aliases) {
		for _, alias := range aliases[key] {
			if normTag(alias) == v {
				return key
			}
		}
	}
	return ""
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func spaced(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", " ")
}

func joinLower(items []string) string {
	return strings.ToLower(strings.Join(items, " | "))
}

func (rs *Ruleset) canonicalGoal(raw string) string {
	g := normTag(raw)
	if g == "" {
		return ""
	}
	if canon := aliasOf(rs.Goal.Synonyms, Text(g)); canon != "" {
		return canon
	}
	return g
}

func (rs *Ruleset) goalLabel(canon string) string {
	if label, ok := rs.Goal.Labels[canon]; ok {
		return label
	}
	return spaced(canon)
}

func scoreGoal(rs *Ruleset, c *Card, a *Answers) contribution {
	goal := normTag(string(a.Goal))
	if goal == "" {
		return contribution{}
	}
	canon := rs.canonicalGoal(goal)
	nearby := rs.Goal.Nearby[canon]

	best := rs.Goal.Weak
	for _, tag := range c.RecommendedGoals {
		t := normTag(tag)
		tc := rs.canonicalGoal(t)
		switch {
		case t == goal:
			best = math.Max(best, rs.Goal.Exact)
		case tc == canon:
			best = math.Max(best, rs.Goal.Synonym)
		case contains(nearby, tc):
			best = math.Max(best, rs.Goal.Adjacent)
		}
	}

	out := contribution{score: best}
	switch {
	case best >= rs.Goal.Synonym:
		out.add("Fits your %s goal.", rs.goalLabel(canon))
	case best >= rs.Goal.Adjacent:
		out.add("Close to your %s goal.", rs.goalLabel(canon))
	}
	return out
}

func scoreFee(rs *Ruleset, c *Card, a *Answers) contribution {
	fee := math.Max(c.AnnualFee.Or(0), 0)
	var out contribution

	switch aliasOf(rs.Fee.Aliases, a.AnnualFee) {
	case "no_fee":
		r := rs.Fee.NoFee
		if fee == 0 {
			out.score = r.Zero
			break
		}
		out.score = r.Low + (r.High-r.Low)*r.Decay/(r.Decay+fee)
	case "small_fee":
		r := rs.Fee.SmallFee
		switch {
		case fee == 0:
			out.score = r.Zero
		case fee <= r.Limit:
			out.score = r.Within
			out.add("Annual fee fits your budget.")
		case fee <= r.MidLimit:
			out.score = r.Mid
		default:
			out.score = r.Over
		}
	case "premium":
		out.score = rs.Fee.Premium.Floor
		for i, tier := range rs.Fee.Premium.Tiers {
			if fee >= tier.Min {
				out.score = tier.Score
				if i == 0 {
					out.add("Premium card in line with your fee preference.")
				}
				break
			}
		}
	case "no_preference":
		out.score = rs.Fee.NoPreference
	}
	return out
}

func (rs *Ruleset) noForeignFee(c *Card) bool {
	return containsAny(strings.ToLower(c.ForeignFees), rs.Travel.NoForeignFeeMarkers)
}

func scoreTravel(rs *Ruleset, c *Card, a *Answers) contribution {
	base := rs.Travel.Base[normTag(string(a.TravelFrequency))]
	if base <= 0 {
		return contribution{}
	}
	explain := base >= rs.Travel.ReasonMinBase

	var out contribution
	bonus := 0.0
	if _, specific := rs.categoryRate(c.Rewards, Travel); specific {
		bonus += rs.Travel.TravelRewardsBonus
		if explain {
			out.add("Earns bonus rewards on travel.")
		}
	}
	if len(c.TransferPartners) > 0 {
		bonus += rs.Travel.TransferPartnersBonus
		if explain {
			out.add("Points transfer to travel partners.")
		}
	}
	if rs.noForeignFee(c) {
		bonus += rs.Travel.NoForeignFeeBonus
		if explain {
			out.add("No foreign transaction fees.")
		}
	}
	out.score = base * (1 + bonus)
	return out
}

// matchPartner returns the first transfer partner naming the preference.
func matchPartner(partners []string, pref string) string {
	for _, p := range partners {
		if strings.Contains(spaced(p), pref) {
			return p
		}
	}
	return ""
}

func scoreLoyalty(rs *Ruleset, c *Card, a *Answers) contribution {
	r := rs.Loyalty
	benefits := spaced(joinLower(c.CreditsAndBenefits) + " | " + c.Name)

	var out contribution
	total := 0.0
	match := func(prefs []string, partnerW, benefitW float64) {
		intl := false
		for _, raw := range prefs {
			pref := spaced(raw)
			if pref == "" || containsSpaced(r.Ignore, pref) {
				continue
			}
			if containsSpaced(r.InternationalMarker, pref) {
				if !intl && len(c.TransferPartners) > 0 {
					total += r.International
					out.add("Transfer partners suit international travel.")
				}
				intl = true
				continue
			}
			if partner := matchPartner(c.TransferPartners, pref); partner != "" {
				total += partnerW
				out.add("Transfers points to %s.", partner)
			} else if strings.Contains(benefits, pref) {
				total += benefitW
				out.add("Includes perks for %s.", strings.TrimSpace(raw))
			}
		}
	}
	match(a.Airline, r.AirlinePartner, r.AirlineBenefit)
	match(a.Hotel, r.HotelPartner, r.HotelBenefit)

	out.score = math.Min(total, r.Cap)
	return out
}

func containsSpaced(list []string, v string) bool {
	for _, item := range list {
		if spaced(item) == v {
			return true
		}
	}
	return false
}

func scorePerks(rs *Ruleset, c *Card, a *Answers) contribution {
	wanted := make(map[string]bool, len(a.Perks))
	for _, p := range a.Perks {
		if t := normTag(p); t != "" {
			wanted[t] = true
		}
	}
	if len(wanted) == 0 {
		return contribution{}
	}
	if wanted["none"] {
		return contribution{score: rs.Perks.NoneScore}
	}

	text := joinLower(c.CreditsAndBenefits)
	total := 0.0
	var labels []string
	for _, rule := range rs.Perks.Rules {
		if !wanted[rule.Tag] {
			continue
		}
		hit := containsAny(text, rule.Keywords)
		if !hit && rule.UseForeignFees {
			hit = rs.noForeignFee(c)
		}
		if hit {
			total += rule.Weight
			labels = append(labels, rule.Label)
		}
	}

	out := contribution{score: math.Min(total, rs.Perks.Cap)}
	if len(labels) > 0 {
		out.add("Includes perks you want: %s.", strings.Join(labels, ", "))
	}
	return out
}

func scoreStrategy(rs *Ruleset, c *Card, a *Answers) contribution {
	r := rs.Strategy
	paired := len(c.PairingSynergy) > 0
	var out contribution

	switch normTag(string(a.CardStrategy)) {
	case "minimalist":
		if paired {
			out.score = r.MinimalistPaired
			break
		}
		out.score = r.MinimalistStandalone
		out.add("Works well as a standalone card.")
	case "optimizer":
		if !paired {
			out.score = r.OptimizerStandalone
			break
		}
		out.score = r.OptimizerPaired
		partners := c.PairingSynergy
		if len(partners) > 2 {
			partners = partners[:2]
		}
		out.add("Pairs well with %s.", strings.Join(partners, " and "))
	case "balanced":
		out.score = r.Balanced
	}
	return out
}

func scoreBusiness(rs *Ruleset, c *Card, a *Answers) contribution {
	r := rs.Business
	business := c.IsBusiness.IsTrue()
	var out contribution

	switch aliasOf(r.Aliases, a.BusinessCards) {
	case "yes":
		if business {
			out.score = r.Preferred
			out.add("Business card, as requested.")
		} else {
			out.score = r.PersonalForOwner
		}
	case "no":
		if business {
			out.score = r.Penalty
			out.add("Business card; you asked for personal cards.")
		}
	case "open_to_both":
		if business {
			out.score = r.Open
		} else {
			out.score = r.PersonalForOpen
		}
	}
	return out
}

func scoreRegion(rs *Ruleset, c *Card, a *Answers) contribution {
	state := strings.TrimSpace(string(a.State))
	if state == "" {
		return contribution{}
	}
	var out contribution
	local := c.QuizMetadata != nil && c.QuizMetadata.LocalOnly.IsTrue()

	if listsState(c, state) {
		out.score += rs.Region.StateMatch
		if local {
			out.add("Local card for %s residents.", strings.ToUpper(state))
		} else {
			out.add("Available in %s.", strings.ToUpper(state))
		}
	}
	if c.QuizMetadata != nil {
		for _, p := range c.QuizMetadata.RegionPriority {
			if strings.EqualFold(strings.TrimSpace(p), state) {
				out.score += rs.Region.PriorityMatch
				out.add("Prioritized for %s residents.", strings.ToUpper(state))
				break
			}
		}
	}
	return out
}

// profileTags derives the implicit tag set of a user from their answers,
// in a fixed order.
func (rs *Ruleset) profileTags(a *Answers) []string {
	var tags []string
	seen := map[string]bool{}
	push := func(items ...string) {
		for _, t := range items {
			t = normTag(t)
			if t != "" && !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}

	push(rs.Quiz.CreditTags[normTag(string(a.CreditScore))]...)
	if goal := normTag(string(a.Goal)); goal != "" {
		push(goal, rs.canonicalGoal(goal))
	}
	push(rs.Quiz.TravelTags[normTag(string(a.TravelFrequency))]...)
	push(rs.Quiz.Business[aliasOf(rs.Business.Aliases, a.BusinessCards)]...)
	push(rs.Quiz.Strategy[normTag(string(a.CardStrategy))]...)
	return tags
}

func scoreQuiz(rs *Ruleset, c *Card, a *Answers) contribution {
	if c.QuizMetadata == nil {
		return contribution{}
	}
	cardTags := map[string]bool{}
	for _, t := range c.QuizMetadata.RecommendedFor {
		cardTags[normTag(t)] = true
	}
	for _, t := range c.QuizMetadata.ManualTags {
		cardTags[normTag(t)] = true
	}
	delete(cardTags, "")
	if len(cardTags) == 0 {
		return contribution{}
	}

	var matched []string
	for _, t := range rs.profileTags(a) {
		if cardTags[t] {
			matched = append(matched, spaced(t))
		}
	}
	if len(matched) == 0 {
		return contribution{score: rs.Quiz.Floor}
	}

	out := contribution{score: math.Min(float64(len(matched))*rs.Quiz.PerTag, rs.Quiz.Cap)}
	out.add("Recommended for: %s.", strings.Join(matched, ", "))
	return out
}

func scoreLowInterest(rs *Ruleset, c *Card, a *Answers) contribution {
	r := rs.LowInterest
	if rs.canonicalGoal(string(a.Goal)) != r.Goal {
		return contribution{}
	}
	intro := strings.ToLower(c.IntroAPR)
	ongoing := strings.ToLower(c.OngoingAPR)
	benefits := joinLower(c.CreditsAndBenefits)

	var out contribution
	switch {
	case containsAny(intro, r.IntroZeroMarkers):
		out.score += r.IntroZero
		out.add("0% intro APR offer.")
	case containsAny(benefits, r.IntroZeroMarkers):
		out.score += r.IntroZeroBenefit
		out.add("0% intro APR offer.")
	}

	switch {
	case containsAny(intro+" | "+ongoing, r.BalanceTransferMarks):
		out.score += r.BalanceTransfer
		out.add("Balance transfer offer.")
	case containsAny(benefits, r.BalanceTransferMarks):
		out.score += r.BalanceTransferOther
		out.add("Balance transfer offer.")
	}

	if containsAny(ongoing, r.LowOngoingMarkers) {
		out.score += r.LowOngoing
		out.add("Low ongoing APR.")
	} else if apr, ok := firstPercent(ongoing); ok && apr > 0 && apr < r.LowOngoingMaxAPR {
		out.score += r.LowOngoingRate
	}
	return out
}

func firstPercent(text string) (float64, bool) {
	m := percentRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func scoreApproval(rs *Ruleset, c *Card, a *Answers) contribution {
	if !rs.Approval.Enabled || !c.MinCreditScore.Valid {
		return contribution{}
	}
	user := rs.CreditScore(a.CreditScore)
	if user <= 0 {
		return contribution{}
	}
	required := c.MinCreditScore.Value
	margin := user - required

	out := contribution{score: rs.Approval.Floor}
	for _, band := range rs.Approval.Bands {
		if margin >= band.Min {
			out.score = band.Score
			break
		}
	}
	if margin >= 0 {
		out.add("Your credit fits this card (%.0f+ recommended).", required)
	} else {
		out.add("Approval may be a stretch (%.0f+ recommended).", required)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
