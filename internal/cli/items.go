package cli

import (
	"github.com/spf13/cobra"

	"github.com/fkhayef/splitthebill/internal/ledger"
)

// NewItemCommand creates the item command group
func NewItemCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage a bill's line items",
	}

	var count int
	add := &cobra.Command{
		Use:   "add <bill-id> <name> <price>",
		Short: "Add a line item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			billID, err := parseID("bill id", args[0])
			if err != nil {
				return err
			}
			price, err := parseAmount(args[2])
			if err != nil {
				return err
			}

			l, u, err := rootOpts.openLedger(cmd.Context(), billID)
			if err != nil {
				return err
			}
			if err := l.AddItem(cmd.Context(), ledger.ItemDraft{Name: args[1], Price: price, Count: count}); err != nil {
				return err
			}

			st, _ := l.State()
			return rootOpts.printer(cmd).Bill(st, u.ID, nil)
		},
	}
	add.Flags().IntVar(&count, "count", 1, "how many")

	rm := &cobra.Command{
		Use:   "rm <bill-id> <item-id>",
		Short: "Remove a line item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			billID, err := parseID("bill id", args[0])
			if err != nil {
				return err
			}
			itemID, err := parseID("item id", args[1])
			if err != nil {
				return err
			}

			l, u, err := rootOpts.openLedger(cmd.Context(), billID)
			if err != nil {
				return err
			}
			if err := l.RemoveItem(cmd.Context(), itemID); err != nil {
				return err
			}

			st, _ := l.State()
			return rootOpts.printer(cmd).Bill(st, u.ID, nil)
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}

// NewParticipantCommand creates the participant command group
func NewParticipantCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "participant",
		Short: "Manage who shares a bill",
	}

	var (
		userID int64
		guest  string
	)
	add := &cobra.Command{
		Use:   "add <bill-id>",
		Short: "Add a registered user (--user) or a guest (--guest)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			billID, err := parseID("bill id", args[0])
			if err != nil {
				return err
			}

			var draft ledger.ParticipantDraft
			switch {
			case userID > 0 && guest != "":
				return NewExitError(ExitCommandError, "use either --user or --guest")
			case userID > 0:
				draft.UserID = &userID
			case guest != "":
				draft.GuestName = &guest
			default:
				return NewExitError(ExitCommandError, "--user or --guest is required")
			}

			l, u, err := rootOpts.openLedger(cmd.Context(), billID)
			if err != nil {
				return err
			}
			if err := l.AddParticipant(cmd.Context(), draft); err != nil {
				return err
			}

			st, _ := l.State()
			return rootOpts.printer(cmd).Bill(st, u.ID, nil)
		},
	}
	add.Flags().Int64Var(&userID, "user", 0, "registered user id")
	add.Flags().StringVar(&guest, "guest", "", "guest name")

	rm := &cobra.Command{
		Use:   "rm <bill-id> <participant-id>",
		Short: "Remove a participant; their amount returns to the pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			billID, err := parseID("bill id", args[0])
			if err != nil {
				return err
			}
			pid, err := parseID("participant id", args[1])
			if err != nil {
				return err
			}

			l, u, err := rootOpts.openLedger(cmd.Context(), billID)
			if err != nil {
				return err
			}
			if err := l.RemoveParticipant(cmd.Context(), pid); err != nil {
				return err
			}

			st, _ := l.State()
			return rootOpts.printer(cmd).Bill(st, u.ID, nil)
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}
