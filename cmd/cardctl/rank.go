package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/avvvet/cardfit-services/internal/scoring"
)

var rankCmd = &cobra.Command{
	Use:     "rank",
	Short:   "Rank a catalog file against an answers file",
	PreRunE: bindFlags,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := getConfig()
		if err != nil {
			return err
		}
		return runRank(cmd, config)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringP("cards", "c", "", "catalog json file")
	rankCmd.Flags().StringP("answers", "a", "-", "answers json file, - for stdin")
	rankCmd.Flags().BoolP("explain", "e", false, "print the per-heuristic breakdown of each ranked card")
	rankCmd.Flags().IntP("top", "n", 0, "only print the first n cards (0 prints all)")
}

// explained is a ranked card with its breakdown.
type explained struct {
	ID        scoring.Text      `json:"id"`
	Name      string            `json:"name,omitempty"`
	Breakdown scoring.Breakdown `json:"breakdown"`
}

func readAnswers(cmd *cobra.Command, path string) (scoring.Answers, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return scoring.Answers{}, fmt.Errorf("open answers: %w", err)
		}
		defer f.Close()
		r = f
	}

	var answers scoring.Answers
	if err := json.NewDecoder(r).Decode(&answers); err != nil {
		return answers, fmt.Errorf("decode answers: %w", err)
	}
	return answers, nil
}

func runRank(cmd *cobra.Command, config *Config) error {
	rules, err := loadRules(config.Rules)
	if err != nil {
		return err
	}
	cards, err := loadCatalog(cmd.Context(), config.Cards)
	if err != nil {
		return err
	}
	answers, err := readAnswers(cmd, config.Answers)
	if err != nil {
		return err
	}

	engine := scoring.NewEngine(rules)
	results := engine.Rank(cards, answers)
	if config.Top > 0 && len(results) > config.Top {
		results = results[:config.Top]
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if !config.Explain {
		return enc.Encode(results)
	}

	out := make([]explained, 0, len(results))
	for _, r := range results {
		out = append(out, explained{
			ID:        r.ID,
			Name:      r.Name,
			Breakdown: engine.Explain(r.Card, answers),
		})
	}
	return enc.Encode(out)
}
