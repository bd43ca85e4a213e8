package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/triyaj/pkg/triyaj/catalog"
)

var lintStrict bool

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Cross-check the catalog files and print findings",
	Long: `Lint loads the catalog and reports cross-reference problems: diseases
without a specialty mapping, bank questions the interpreter can never
resolve, skip rules pointing at missing questions, and the like. Findings
are warnings unless --strict is set.`,
	RunE: runLint,
}

func init() {
	lintCmd.Flags().BoolVar(&lintStrict, "strict", false, "exit non-zero when the lint finds anything")
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	fmt.Printf("Catalog %s: %d diseases, %d specialties\n",
		cfg.CatalogDir, len(cat.DiseaseSymptoms), len(cat.Specialties))

	report := cat.Lint()
	if report.Clean() {
		fmt.Println("✓ No findings")
		return nil
	}

	findings := report.Findings()
	for _, f := range findings {
		fmt.Println("  -", f)
	}
	fmt.Printf("%d findings\n", len(findings))

	if lintStrict {
		return fmt.Errorf("catalog lint: %d findings", len(findings))
	}
	return nil
}
