package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mudegi/YourBookSuit-sub007/internal/eventlog"
)

func newEventsCommand(g *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the local ledger event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, dir, err := loadConfig(g)
			if err != nil {
				return err
			}
			path := resolve(dir, cfg.Events.LogFile)
			if path == "" {
				path = resolve(dir, eventlog.DefaultPath)
			}
			entries, err := eventlog.Read(path)
			if err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTYPE\tORG\tTRANSACTION\tSTATUS")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.OccurredAt.Format(time.RFC3339), e.Type, e.OrganizationID, e.TransactionID, e.Status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show the last n events; 0 for all")
	return cmd
}

