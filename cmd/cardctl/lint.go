package main

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"

	"github.com/avvvet/cardfit-services/internal/scoring"
)

// maxTypoDistance is the edit distance under which an unmatched reward
// category word is reported as a likely misspelling.
const maxTypoDistance = 2

var lintCmd = &cobra.Command{
	Use:     "lint",
	Short:   "Report catalog entries the ruleset cannot interpret",
	PreRunE: bindFlags,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := getConfig()
		if err != nil {
			return err
		}
		rules, err := loadRules(config.Rules)
		if err != nil {
			return err
		}
		cards, err := loadCatalog(cmd.Context(), config.Cards)
		if err != nil {
			return err
		}

		issues := lintCatalog(rules, cards)
		for _, i := range issues {
			fmt.Fprintln(cmd.OutOrStdout(), i)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d cards checked, %d issues\n", len(cards), len(issues))
		if config.Strict && len(issues) > 0 {
			return fmt.Errorf("catalog has %d issues", len(issues))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringP("cards", "c", "", "catalog json file")
	lintCmd.Flags().Bool("strict", false, "exit with an error when issues are found")
}

type lintIssue struct {
	Card       scoring.Text
	Category   string
	Suggestion string
	Problem    string
}

func (i lintIssue) String() string {
	if i.Suggestion != "" {
		return fmt.Sprintf("%s: reward category %q matches nothing, did you mean %q?", i.Card, i.Category, i.Suggestion)
	}
	if i.Category != "" {
		return fmt.Sprintf("%s: reward category %q %s", i.Card, i.Category, i.Problem)
	}
	return fmt.Sprintf("%s: %s", i.Card, i.Problem)
}

// lintCatalog checks each reward entry against the ruleset vocabulary.
func lintCatalog(rs *scoring.Ruleset, cards []scoring.Card) []lintIssue {
	vocab := vocabulary(rs)
	var issues []lintIssue

	for _, c := range cards {
		if len(c.Rewards) == 0 {
			issues = append(issues, lintIssue{Card: c.ID, Problem: "has no rewards; every category earns the default rate"})
		}
		for _, r := range c.Rewards {
			if !r.Rate.Valid {
				issues = append(issues, lintIssue{Card: c.ID, Category: r.Category, Problem: "has no numeric rate and is ignored"})
				continue
			}
			if len(rs.MatchLabels(r.Category)) > 0 || rs.IsCatchAll(r.Category) {
				continue
			}
			issue := lintIssue{Card: c.ID, Category: r.Category, Problem: "matches no spend category"}
			issue.Suggestion = nearest(vocab, r.Category)
			issues = append(issues, issue)
		}
	}
	return issues
}

// vocabulary lists every label, keyword and catch-all marker, lowercased.
func vocabulary(rs *scoring.Ruleset) []string {
	var words []string
	for _, c := range rs.Categories {
		words = append(words, strings.ToLower(c.Label))
		for _, k := range c.Keywords {
			words = append(words, strings.ToLower(k))
		}
	}
	for _, k := range rs.CatchAll {
		words = append(words, strings.ToLower(k))
	}
	return words
}

// nearest returns the vocabulary word closest to any word of the category,
// or "" when nothing is within maxTypoDistance.
func nearest(vocab []string, category string) string {
	best, bestDist := "", maxTypoDistance+1
	for _, word := range strings.Fields(strings.ToLower(category)) {
		word = strings.Trim(word, ".,;:()&")
		if len(word) < 4 {
			continue
		}
		for _, v := range vocab {
			if d := levenshtein.ComputeDistance(word, v); d < bestDist {
				best, bestDist = v, d
			}
		}
	}
	return best
}
