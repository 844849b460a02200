package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Mudegi/YourBookSuit-sub007/internal/ibt"
	"github.com/Mudegi/YourBookSuit-sub007/internal/model"
)

func newTransferCommand(g *globalFlags) *cobra.Command {
	transferCmd := &cobra.Command{
		Use:   "transfer",
		Short: "Inter-branch stock transfers",
	}
	transferCmd.AddCommand(
		newTransferCreateCommand(g),
		newTransferListCommand(g),
		newTransferShowCommand(g),
	)
	for _, action := range []string{"submit", "approve", "ship", "receive", "cancel"} {
		transferCmd.AddCommand(newTransferActionCommand(g, action))
	}
	return transferCmd
}

// parseItem reads a PRODUCT:QUANTITY:UNIT_COST item flag.
func parseItem(s string) (ibt.NewItem, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return ibt.NewItem{}, fmt.Errorf("item %q must be PRODUCT:QUANTITY:UNIT_COST", s)
	}
	qty, err := decimal.NewFromString(parts[1])
	if err != nil {
		return ibt.NewItem{}, fmt.Errorf("item %q: invalid quantity", s)
	}
	cost, err := decimal.NewFromString(parts[2])
	if err != nil {
		return ibt.NewItem{}, fmt.Errorf("item %q: invalid unit cost", s)
	}
	return ibt.NewItem{ProductID: parts[0], Quantity: qty, UnitCost: cost}, nil
}

func newTransferCreateCommand(g *globalFlags) *cobra.Command {
	var (
		from, to, notes, user string
		clearingCode, invCode string
		items                 []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a DRAFT transfer",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			in := ibt.NewTransfer{FromBranchID: from, ToBranchID: to, Notes: notes, RequestedBy: user}
			for _, s := range items {
				it, err := parseItem(s)
				if err != nil {
					return err
				}
				in.Items = append(in.Items, it)
			}
			if clearingCode != "" {
				clearing, err := a.accounts.GetByCode(cmd.Context(), a.org, clearingCode)
				if err != nil {
					return err
				}
				inv, err := a.accounts.GetByCode(cmd.Context(), a.org, invCode)
				if err != nil {
					return err
				}
				in.ClearingAccountID = &clearing.ID
				in.InventoryAccountID = &inv.ID
			}
			t, err := a.transfers.Create(cmd.Context(), a.org, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.ID, t.ReferenceNumber, t.Total().StringFixed(2))
			return nil
		}),
	}

	cmd.Flags().StringVar(&from, "from", "", "source branch (required)")
	cmd.Flags().StringVar(&to, "to", "", "destination branch (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().StringArrayVar(&items, "item", nil, "line item PRODUCT:QUANTITY:UNIT_COST (repeatable)")
	cmd.Flags().StringVar(&clearingCode, "clearing", "", "clearing account code; enables postings")
	cmd.Flags().StringVar(&invCode, "inventory", "1200", "inventory account code")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	cmd.Flags().StringVar(&user, "user", "cli", "requesting user")
	return cmd
}

func newTransferListCommand(g *globalFlags) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transfers",
		Args:  cobra.NoArgs,
		RunE: withApp(g, func(cmd *cobra.Command, a *app, _ []string) error {
			ts, err := a.transfers.List(cmd.Context(), a.org, model.TransferStatus(strings.ToUpper(status)))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REFERENCE\tFROM\tTO\tSTATUS\tID")
			for _, t := range ts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ReferenceNumber, t.FromBranchID, t.ToBranchID, t.Status, t.ID)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVar(&status, "status", "", "only this status")
	return cmd
}

func newTransferShowCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a transfer and its clearing balance",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			t, err := a.transfers.Get(cmd.Context(), a.org, args[0])
			if err != nil {
				return err
			}
			bal, err := a.transfers.ClearingBalance(cmd.Context(), a.org, t.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s -> %s (%s)\n", t.ReferenceNumber, t.FromBranchID, t.ToBranchID, t.Status)
			for _, it := range t.Items {
				fmt.Fprintf(out, "  %s x%s @ %s\n", it.ProductID, it.Quantity, it.UnitCost.StringFixed(2))
			}
			fmt.Fprintf(out, "Total %s, clearing balance %s\n", t.Total().StringFixed(2), bal.StringFixed(2))
			return nil
		}),
	}
}

func newTransferActionCommand(g *globalFlags, action string) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   action + " <id>",
		Short: strings.ToUpper(action[:1]) + action[1:] + " a transfer",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(g, func(cmd *cobra.Command, a *app, args []string) error {
			ctx, id := cmd.Context(), args[0]
			var (
				t   model.InterBranchTransfer
				err error
			)
			switch action {
			case "submit":
				t, err = a.transfers.Submit(ctx, a.org, id)
			case "approve":
				t, err = a.transfers.Approve(ctx, a.org, id, user)
			case "ship":
				t, err = a.transfers.Ship(ctx, a.org, id, user)
			case "receive":
				t, err = a.transfers.Receive(ctx, a.org, id, user)
			case "cancel":
				t, err = a.transfers.Cancel(ctx, a.org, id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", t.ReferenceNumber, t.Status)
			return nil
		}),
	}
	cmd.Flags().StringVar(&user, "user", "cli", "acting user")
	return cmd
}
