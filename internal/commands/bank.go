package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Mudegi/YourBookSuit-sub007/internal/importer"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
	"github.com/Mudegi/YourBookSuit-sub007/internal/reconcile"
)

func newBankCommand(g *globalFlags) *cobra.Command {
	bankCmd := &cobra.Command{
		Use:   "bank",
		Short: "Bank feeds, matching and reconciliation",
	}
	bankCmd.AddCommand(
		newBankFeedCommand(g),
		newBankImportCommand(g),
		newBankScanCommand(g),
		newBankRulesCommand(g),
		newBankListCommand(g),
		newBankAutoMatchCommand(g),
		newBankReconcileCommand(g),
	)
	return bankCmd
}

func newBankFeedCommand(g *globalFlags) *cobra.Command {
	var name, accountCode string

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Create a bank feed on a GL bank account",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			acct, err := a.accounts.GetByCode(cmd.Context(), a.org, accountCode)
			if err != nil {
				return err
			}
			feed, err := a.bank.CreateFeed(cmd.Context(), a.org, name, acct.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", feed.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "feed name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&accountCode, "account", "1010", "bank account code")
	return cmd
}

func printImport(w io.Writer, name string, res reconcile.ImportResult) {
	fmt.Fprintf(w, "%s: imported %d, skipped %d duplicate(s)\n", name, len(res.Imported), res.Duplicates)
}

func newBankImportCommand(g *globalFlags) *cobra.Command {
	var feedID, format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a bank statement CSV into a feed",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			lines, err := a.parsers.ParseFile(format, args[0])
			if err != nil {
				return err
			}
			res, err := a.bank.Import(cmd.Context(), a.org, feedID, lines)
			if err != nil {
				return err
			}
			printImport(cmd.OutOrStdout(), args[0], res)
			return nil
		}),
	}
	cmd.Flags().StringVar(&feedID, "feed", "", "bank feed id (required)")
	_ = cmd.MarkFlagRequired("feed")
	cmd.Flags().StringVar(&format, "format", "csv", "statement format: chase or csv")
	return cmd
}

func newBankScanCommand(g *globalFlags) *cobra.Command {
	var feedID, format, dir string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Import every statement in the import directory and move it to processed/",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			importDir := a.path(dir)
			files, err := importer.Scan(importDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintf(out, "No statements in %s\n", importDir)
				return nil
			}
			for _, f := range files {
				lines, err := a.parsers.ParseFile(format, f.Path)
				if err != nil {
					return err
				}
				res, err := a.bank.Import(cmd.Context(), a.org, feedID, lines)
				if err != nil {
					return fmt.Errorf("%s: %w", f.Name, err)
				}
				if err := importer.MarkProcessed(importDir, f.Name); err != nil {
					return err
				}
				printImport(out, f.Name, res)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&feedID, "feed", "", "bank feed id (required)")
	_ = cmd.MarkFlagRequired("feed")
	cmd.Flags().StringVar(&format, "format", "csv", "statement format: chase or csv")
	cmd.Flags().StringVar(&dir, "dir", ImportDir, "directory to scan")
	return cmd
}

func newBankRulesCommand(g *globalFlags) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Categorization rules",
	}

	load := &cobra.Command{
		Use:   "load [file]",
		Short: "Store the rules of a YAML rules file",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			path := a.path(RulesFile)
			if len(args) > 0 {
				path = args[0]
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening rules: %w", err)
			}
			defer f.Close()
			specs, err := reconcile.LoadRulesYAML(f)
			if err != nil {
				return err
			}
			rules, err := a.bank.Rules().Import(cmd.Context(), a.org, specs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d rule(s)\n", len(rules))
			return nil
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			rules, err := a.bank.Rules().List(cmd.Context(), a.org)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRIORITY\tNAME\tPATTERN\tMERCHANT\tID")
			for _, r := range rules {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Priority, r.Name, r.Pattern, r.Merchant, r.ID)
			}
			return tw.Flush()
		}),
	}

	rulesCmd.AddCommand(load, list)
	return rulesCmd
}

func newBankListCommand(g *globalFlags) *cobra.Command {
	var feedID, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List imported bank transactions",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			bts, err := a.bank.List(cmd.Context(), a.org, feedID, model.BankTransactionStatus(strings.ToUpper(status)))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tAMOUNT\tSTATUS\tDESCRIPTION\tID")
			for _, bt := range bts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", bt.Date.Format("2006-01-02"), bt.Amount.StringFixed(2), bt.Status, bt.Description, bt.ID)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVar(&feedID, "feed", "", "only this feed")
	cmd.Flags().StringVar(&status, "status", "", "only this status")
	return cmd
}

func newBankAutoMatchCommand(g *globalFlags) *cobra.Command {
	var feedID string

	cmd := &cobra.Command{
		Use:   "automatch",
		Short: "Categorize and match every UNPROCESSED bank transaction",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			bts, err := a.bank.List(cmd.Context(), a.org, feedID, model.BankUnprocessed)
			if err != nil {
				return err
			}
			ids := make([]string, len(bts))
			for i, bt := range bts {
				ids[i] = bt.ID
			}

			counts := map[model.BankTransactionStatus]int{}
			failed := 0
			out := cmd.OutOrStdout()
			for start := 0; start < len(ids); start += a.cfg.Reconciliation.MaxBatch {
				end := min(start+a.cfg.Reconciliation.MaxBatch, len(ids))
				results, err := a.bank.BulkAutoMatch(cmd.Context(), a.org, ids[start:end])
				if err != nil {
					return err
				}
				for _, r := range results {
					if !r.OK {
						failed++
						fmt.Fprintf(out, "%s\t%s\t%s\n", r.ID, r.Kind, r.Error)
						continue
					}
					counts[r.Outcome.Status]++
				}
			}
			fmt.Fprintf(out, "matched %d, categorized %d, left for review %d, failed %d\n",
				counts[model.BankMatched], counts[model.BankCategorized], counts[model.BankUnprocessed], failed)
			return nil
		}),
	}
	cmd.Flags().StringVar(&feedID, "feed", "", "only this feed")
	return cmd
}

func newBankReconcileCommand(g *globalFlags) *cobra.Command {
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Bank reconciliation against a statement",
	}

	var accountCode, date, balance string
	start := &cobra.Command{
		Use:   "start",
		Short: "Open a reconciliation",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			acct, err := a.accounts.GetByCode(cmd.Context(), a.org, accountCode)
			if err != nil {
				return err
			}
			stmtDate, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}
			bal, err := decimal.NewFromString(balance)
			if err != nil {
				return fmt.Errorf("invalid --balance %q", balance)
			}
			rec, err := a.bank.Start(cmd.Context(), a.org, acct.ID, stmtDate, bal)
			if err != nil {
				return err
			}
			sum, err := a.bank.Summary(cmd.Context(), a.org, rec.ID)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		}),
	}
	start.Flags().StringVar(&accountCode, "account", "1010", "bank account code")
	start.Flags().StringVar(&date, "date", "", "statement date, YYYY-MM-DD (required)")
	start.Flags().StringVar(&balance, "balance", "", "statement closing balance (required)")
	_ = start.MarkFlagRequired("date")
	_ = start.MarkFlagRequired("balance")

	var unclear bool
	clearCmd := &cobra.Command{
		Use:   "clear <reconciliation-id> <transaction-id>...",
		Short: "Mark transactions as appearing on the statement",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			change := a.bank.Clear
			if unclear {
				change = a.bank.Unclear
			}
			sum, err := change(cmd.Context(), a.org, args[0], args[1:])
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		}),
	}
	clearCmd.Flags().BoolVar(&unclear, "undo", false, "unmark instead")

	show := &cobra.Command{
		Use:   "show <reconciliation-id>",
		Short: "Show the reconciliation figures",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			sum, err := a.bank.Summary(cmd.Context(), a.org, args[0])
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		}),
	}

	var user string
	finalize := &cobra.Command{
		Use:   "finalize <reconciliation-id>",
		Short: "Finalize a balanced reconciliation and lock its cleared transactions",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			rec, err := a.bank.Finalize(cmd.Context(), a.org, args[0], user)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Finalized %s: %d transaction(s) locked\n", rec.ID, len(rec.ClearedIDs))
			return nil
		}),
	}
	finalize.Flags().StringVar(&user, "user", "cli", "user recorded as finalizer")

	reconcileCmd.AddCommand(start, clearCmd, show, finalize)
	return reconcileCmd
}

func printSummary(w io.Writer, s reconcile.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Reconciliation\t%s (%s)\n", s.ReconciliationID, s.Status)
	fmt.Fprintf(tw, "Statement balance\t%s\n", s.StatementBalance.StringFixed(2))
	fmt.Fprintf(tw, "Book balance\t%s\n", s.BookBalance.StringFixed(2))
	fmt.Fprintf(tw, "Deposits in transit\t%s\n", s.DepositsInTransit.StringFixed(2))
	fmt.Fprintf(tw, "Outstanding payments\t%s\n", s.Outstanding.StringFixed(2))
	fmt.Fprintf(tw, "Difference\t%s\n", s.Difference.StringFixed(2))
	fmt.Fprintf(tw, "Cleared / uncleared\t%d / %d\n", len(s.Cleared), len(s.Uncleared))
	_ = tw.Flush()
}
