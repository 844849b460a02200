package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mudegi/YourBookSuit-sub007/internal/accounts"
	"github.com/Mudegi/YourBookSuit-sub007/internal/config"
)

// Project layout written by init.
const (
	ChartFile  = "accounts/chart-of-accounts.csv"
	RulesFile  = "rules/categorization-rules.yaml"
	ImportDir  = "import"
	DataDir    = "data"
	LogsDir    = "logs"
	GitIgnored = "data/\nlogs/\n.env\n"
)

func newInitCommand() *cobra.Command {
	var org, template, currency string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, org, template, currency); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized ledger project for %s at %s\n", org, absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "organization id (required)")
	_ = cmd.MarkFlagRequired("org")
	cmd.Flags().StringVar(&template, "template", "trading", "chart of accounts template: trading or services")
	cmd.Flags().StringVar(&currency, "base-currency", "UGX", "base currency")

	return cmd
}

func runInit(dir, org, template, currency string) error {
	if template != "trading" && template != "services" {
		return fmt.Errorf("unknown template %q (known: trading, services)", template)
	}

	dirs := []string{
		"accounts",
		"rules",
		DataDir,
		LogsDir,
		ImportDir,
		filepath.Join(ImportDir, "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(org)
	cfg.Ledger.BaseCurrency = strings.ToUpper(currency)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := accounts.SaveChart(filepath.Join(dir, ChartFile), accounts.DefaultChart(template)); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, RulesFile), []byte("rules: []\n"), 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(GitIgnored), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ImportDir, ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}
	return nil
}
