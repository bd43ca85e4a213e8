package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/triyaj/pkg/triyaj/maintenance"
	"github.com/cognicore/triyaj/pkg/triyaj/store/sqlite"
)

var (
	pruneDB     string
	pruneMaxAge time.Duration
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete sessions older than the retention window",
	RunE:  runPrune,
}

func init() {
	pruneCmd.Flags().StringVar(&pruneDB, "db", "", "SQLite session store path (required)")
	pruneCmd.Flags().DurationVar(&pruneMaxAge, "max-age", 30*24*time.Hour, "retention window")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	if pruneDB == "" {
		return fmt.Errorf("--db required")
	}
	ctx := cmd.Context()

	st, err := sqlite.OpenSQLite(ctx, pruneDB)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	pruner := &maintenance.Pruner{Store: st, MaxAge: pruneMaxAge}
	res, err := pruner.Prune(ctx, time.Now())
	if err != nil {
		return err
	}

	fmt.Printf("✓ Deleted %d of %d sessions\n", res.Deleted, res.Scanned)
	return nil
}
