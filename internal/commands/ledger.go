package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Mudegi/YourBookSuit-sub007/internal/accounts"
	"github.com/Mudegi/YourBookSuit-sub007/internal/api"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
	"github.com/Mudegi/YourBookSuit-sub007/internal/tax"
)

func newMigrateCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			// Opening the store applies the schema.
			fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s)\n", a.store.Driver())
			return nil
		}),
	}
}

func newSeedCommand(g *globalFlags) *cobra.Command {
	var chartPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the chart of accounts for the organization",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			chart, err := accounts.LoadChart(a.path(chartPath))
			if err != nil {
				return err
			}
			created, err := a.accounts.Seed(cmd.Context(), a.org, chart)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d of %d accounts for %s\n", len(created), len(chart), a.org)
			return nil
		}),
	}

	cmd.Flags().StringVar(&chartPath, "chart", ChartFile, "chart of accounts CSV")
	return cmd
}

func newChartCommand(g *globalFlags) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Write the organization's chart of accounts as CSV",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			chart, err := a.accounts.Export(cmd.Context(), a.org)
			if err != nil {
				return err
			}
			if outPath == "" {
				return accounts.WriteChart(cmd.OutOrStdout(), chart)
			}
			if err := accounts.SaveChart(a.path(outPath), chart); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d accounts to %s\n", len(chart), outPath)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newServeCommand(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewRouter(a.services()),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides the config)")
	return cmd
}

func newBalancesCommand(g *globalFlags) *cobra.Command {
	balancesCmd := &cobra.Command{
		Use:   "balances",
		Short: "Account balance maintenance",
	}

	var fix bool
	check := &cobra.Command{
		Use:   "check",
		Short: "Compare cached balances with ledger history",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			drift, err := a.poster.Tracker().Rebuild(cmd.Context(), a.org, fix)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(drift) == 0 {
				fmt.Fprintln(out, "All balances match the ledger")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tCACHED\tCOMPUTED\tDIFFERENCE")
			for _, d := range drift {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Code, d.Cached.StringFixed(2), d.Computed.StringFixed(2), d.Difference().StringFixed(2))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if fix {
				fmt.Fprintf(out, "Rebuilt %d balance(s)\n", len(drift))
				return nil
			}
			return fmt.Errorf("%d account(s) drifted; rerun with --fix to rebuild", len(drift))
		}),
	}
	check.Flags().BoolVar(&fix, "fix", false, "overwrite drifted balances with the recomputed values")

	var accountType string
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts with their balances",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			accts, err := a.accounts.List(cmd.Context(), a.org)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tTYPE\tBALANCE")
			for _, acct := range accts {
				if accountType != "" && string(acct.Type) != accountType {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", acct.Code, acct.Name, acct.Type, acct.Balance.StringFixed(2))
			}
			return tw.Flush()
		}),
	}
	list.Flags().StringVar(&accountType, "type", "", "only accounts of this type")

	balancesCmd.AddCommand(check, list)
	return balancesCmd
}

func newTaxCommand() *cobra.Command {
	var amount, rate, mode string

	cmd := &cobra.Command{
		Use:   "tax",
		Short: "Split an amount into net, tax and total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q", amount)
			}
			r, err := decimal.NewFromString(rate)
			if err != nil {
				return fmt.Errorf("invalid --rate %q", rate)
			}
			m, err := tax.ParseMode(mode)
			if err != nil {
				return err
			}
			res, err := tax.Calculate(amt, r, m)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "amount to split (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&rate, "rate", "0.18", "tax rate as a fraction")
	cmd.Flags().StringVar(&mode, "mode", string(tax.Exclusive), "EXCLUSIVE or INCLUSIVE")
	return cmd
}

// parseDateFlag parses an optional YYYY-MM-DD flag value.
func parseDateFlag(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s %q must be YYYY-MM-DD", name, s)
	}
	return t, nil
}

// filterFlags reads --from and --to into a transaction filter.
func filterFlags(from, to string) (store.TransactionFilter, error) {
	var f store.TransactionFilter
	var err error
	if f.From, err = parseDateFlag("from", from); err != nil {
		return f, err
	}
	if f.To, err = parseDateFlag("to", to); err != nil {
		return f, err
	}
	return f, nil
}
