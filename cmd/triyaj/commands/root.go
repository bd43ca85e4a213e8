// Package commands wires the triyaj CLI: an interactive chat loop, a
// one-shot JSON turn runner, and the catalog/store upkeep subcommands.
package commands

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cognicore/triyaj/internal/logging"
	"github.com/cognicore/triyaj/pkg/triyaj/config"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	configPath string
	verbose    bool
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "triyaj",
	Short: "Triyaj routes Turkish medical complaints to a specialty",
	Long: `Triyaj interprets free-text complaints in Turkish, asks a bounded number
of follow-up questions, and recommends a medical specialty with an urgency
level. It is a routing aid, not a diagnostic tool.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Log.Folder != "" {
			os.Setenv("LOGS_FOLDER", cfg.Log.Folder)
		}
		logging.Init(verbose || cfg.Log.Verbose)

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("catalog", cfg.CatalogDir).
			Msg("triyaj starting")
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
