package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mudegi/YourBookSuit-sub007/internal/buildinfo"
	"github.com/Mudegi/YourBookSuit-sub007/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "yourbooks",
		Short:   "Multi-tenant double-entry ledger",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", config.FileName, "config file")
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before the config")
	pf.StringVar(&g.org, "org", "", "organization id (overrides the config)")
	pf.BoolVar(&g.debug, "debug", false, "log at debug level")

	rootCmd.AddCommand(
		newInitCommand(),
		newMigrateCommand(g),
		newSeedCommand(g),
		newChartCommand(g),
		newServeCommand(g),
		newJournalCommand(g),
		newBankCommand(g),
		newTransferCommand(g),
		newBalancesCommand(g),
		newTaxCommand(),
		newEventsCommand(g),
	)

	return rootCmd
}
