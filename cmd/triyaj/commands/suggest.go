package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/triyaj/pkg/triyaj/autotune/review/llm"
	"github.com/cognicore/triyaj/pkg/triyaj/autotune/synonyms"
	"github.com/cognicore/triyaj/pkg/triyaj/store/sqlite"
)

var (
	suggestDB            string
	suggestSince         time.Duration
	suggestMinSupport    int
	suggestMinConfidence float64
	suggestReviewURL     string
	suggestJSON          bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Mine session logs for synonym suggestions",
	Long: `Suggest scans the event log for complaint phrasings the interpreter could
not match and proposes synonym entries for the catalog. With --review-url
each suggestion goes through an external reviewer before it is printed;
the reviewer key comes from TRIYAJ_REVIEW_API_KEY.`,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().StringVar(&suggestDB, "db", "", "SQLite session store path (required)")
	suggestCmd.Flags().DurationVar(&suggestSince, "since", 30*24*time.Hour, "look-back window over the event log")
	suggestCmd.Flags().IntVar(&suggestMinSupport, "min-support", 0, "occurrences a variant needs (0: default)")
	suggestCmd.Flags().Float64Var(&suggestMinConfidence, "min-confidence", 0, "confidence the canonical mapping needs (0: default)")
	suggestCmd.Flags().StringVar(&suggestReviewURL, "review-url", "", "LLM reviewer endpoint (optional)")
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "emit suggestions as JSON")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	if suggestDB == "" {
		return fmt.Errorf("--db required")
	}
	ctx := cmd.Context()

	st, err := sqlite.OpenSQLite(ctx, suggestDB)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	th := synonyms.DefaultThresholds()
	if suggestMinSupport > 0 {
		th.MinSupport = suggestMinSupport
	}
	if suggestMinConfidence > 0 {
		th.MinConfidence = suggestMinConfidence
	}

	tuner := &synonyms.AutoTuner{
		Source:     &synonyms.EventSource{Store: st, Since: time.Now().Add(-suggestSince)},
		Thresholds: th,
	}
	if suggestReviewURL != "" {
		tuner.Reviewer = &llm.Client{
			Endpoint: suggestReviewURL,
			APIKey:   os.Getenv("TRIYAJ_REVIEW_API_KEY"),
		}
	}

	suggestions, err := tuner.Run(ctx)
	if err != nil {
		return err
	}

	if suggestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(suggestions)
	}

	if len(suggestions) == 0 {
		fmt.Println("No suggestions.")
		return nil
	}
	for _, s := range suggestions {
		if s.Canonical != "" {
			fmt.Printf("%-24s support=%-3d → %s (%.2f)\n", s.Variant, s.Support, s.Canonical, s.Score)
		} else {
			fmt.Printf("%-24s support=%-3d (no canonical mapping)\n", s.Variant, s.Support)
		}
	}
	fmt.Printf("✓ %d suggestions\n", len(suggestions))
	return nil
}
