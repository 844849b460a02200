package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
)

func newJournalCommand(g *globalFlags) *cobra.Command {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Journal entry import, export and posting",
	}
	journalCmd.AddCommand(
		newJournalImportCommand(g),
		newJournalExportCommand(g),
		newJournalBulkPostCommand(g),
		newJournalVoidCommand(g),
	)
	return journalCmd
}

func newJournalImportCommand(g *globalFlags) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create DRAFT transactions from a journal CSV",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			txns, err := a.journal.ImportFile(cmd.Context(), a.org, args[0], user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range txns {
				fmt.Fprintf(out, "%s\t%s\t%s\n", t.ID, t.Date.Format("2006-01-02"), t.Description)
			}
			fmt.Fprintf(out, "Imported %d draft transaction(s)\n", len(txns))
			return nil
		}),
	}
	cmd.Flags().StringVar(&user, "user", "cli", "user recorded as creator")
	return cmd
}

func newJournalExportCommand(g *globalFlags) *cobra.Command {
	var from, to, status, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write transactions as a journal CSV",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			f, err := filterFlags(from, to)
			if err != nil {
				return err
			}
			f.Status = model.TransactionStatus(strings.ToUpper(status))

			w := cmd.OutOrStdout()
			if outPath != "" {
				file, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("creating %s: %w", outPath, err)
				}
				defer file.Close()
				w = file
			}
			n, err := a.journal.Export(cmd.Context(), a.org, f, w)
			if err != nil {
				return err
			}
			if outPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transaction(s) to %s\n", n, outPath)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&status, "status", "POSTED", "transaction status; empty for all")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newJournalBulkPostCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post [id...]",
		Short: "Post DRAFT transactions; ids are read from stdin when none are given",
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			ids := args
			if len(ids) == 0 {
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					if s := strings.TrimSpace(sc.Text()); s != "" {
						ids = append(ids, strings.Fields(s)[0])
					}
				}
				if err := sc.Err(); err != nil {
					return err
				}
			}
			results, err := a.lifecycle.BulkPost(cmd.Context(), a.org, ids)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				if r.OK {
					fmt.Fprintf(out, "%s\tposted\n", r.ID)
					continue
				}
				failed++
				fmt.Fprintf(out, "%s\t%s\t%s\n", r.ID, r.Kind, r.Error)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d transaction(s) failed", failed, len(results))
			}
			return nil
		}),
	}
	return cmd
}

func newJournalVoidCommand(g *globalFlags) *cobra.Command {
	var reason, user string

	cmd := &cobra.Command{
		Use:   "void <id>",
		Short: "Void a POSTED transaction with a reversing entry",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			reversal, err := a.lifecycle.Void(cmd.Context(), a.org, args[0], user, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Voided %s with reversal %s\n", args[0], reversal.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason for the void (required)")
	_ = cmd.MarkFlagRequired("reason")
	cmd.Flags().StringVar(&user, "user", "cli", "user recorded on the reversal")
	return cmd
}
