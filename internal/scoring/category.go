package scoring

import "strings"

// CategoryRate resolves the reward multiplier a card pays for a spend
// category label. Entries whose category text contains the label, or one of
// the label's keywords, compete on rate; when none match, the best catch-all
// entry is used, and failing that the default rate.
func (rs *Ruleset) CategoryRate(rewards []Reward, label string) float64 {
	rate, _ := rs.categoryRate(rewards, label)
	return rate
}

// categoryRate also reports whether a category-specific entry matched.
func (rs *Ruleset) categoryRate(rewards []Reward, label string) (float64, bool) {
	rule, _ := rs.category(label)
	target := strings.ToLower(label)

	best, matched := 0.0, false
	for _, r := range rewards {
		if !r.Rate.Valid {
			continue
		}
		text := strings.ToLower(r.Category)
		if !strings.Contains(text, target) && !containsAny(text, rule.Keywords) {
			continue
		}
		if !matched || r.Rate.Value > best {
			best = r.Rate.Value
		}
		matched = true
	}
	if matched {
		return best, true
	}

	fallback, found := 0.0, false
	for _, r := range rewards {
		if !r.Rate.Valid || !containsAny(strings.ToLower(r.Category), rs.CatchAll) {
			continue
		}
		if !found || r.Rate.Value > fallback {
			fallback = r.Rate.Value
		}
		found = true
	}
	if found {
		return fallback, false
	}
	return rs.DefaultRate, false
}

// MatchLabels returns the spend category labels a reward category text
// names, in SpendCategories order.
func (rs *Ruleset) MatchLabels(category string) []string {
	text := strings.ToLower(category)
	var out []string
	for _, label := range SpendCategories {
		rule, _ := rs.category(label)
		if strings.Contains(text, strings.ToLower(label)) || containsAny(text, rule.Keywords) {
			out = append(out, label)
		}
	}
	return out
}

// IsCatchAll reports whether a reward category text is a catch-all entry.
func (rs *Ruleset) IsCatchAll(category string) bool {
	return containsAny(strings.ToLower(category), rs.CatchAll)
}

// containsAny reports whether text contains any of the lowercase needles.
// text must already be lowercase.
func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(text, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// normTag lowercases a tag and folds spaces and hyphens to underscores.
func normTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
