package cli

import (
	"github.com/spf13/cobra"
)

// NewSplitCommand creates the split command
func NewSplitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "split <bill-id> [participant-id...]",
		Short: "Split the bill equally, or share what is left among some participants",
		Long: `Without participant ids the whole bill is divided equally between unpaid
participants. With ids only the unallocated remainder is shared among them and
everyone else keeps their amount.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			billID, err := parseID("bill id", args[0])
			if err != nil {
				return err
			}
			subset := make([]int64, 0, len(args)-1)
			for _, a := range args[1:] {
				id, err := parseID("participant id", a)
				if err != nil {
					return err
				}
				subset = append(subset, id)
			}

			l, u, err := rootOpts.openLedger(cmd.Context(), billID)
			if err != nil {
				return err
			}
			if err := l.RequestSplitEqual(cmd.Context(), subset); err != nil {
				return err
			}

			st, _ := l.State()
			return rootOpts.printer(cmd).Bill(st, u.ID, nil)
		},
	}
}

// NewAssignCommand creates the assign command
func NewAssignCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <bill-id> <participant-id> <amount>",
		Short: "Set one participant's amount; 0 returns it to the unallocated pool",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			billID, err := parseID("bill id", args[0])
			if err != nil {
				return err
			}
			pid, err := parseID("participant id", args[1])
			if err != nil {
				return err
			}
			requested, err := parseAmount(args[2])
			if err != nil {
				return err
			}

			l, u, err := rootOpts.openLedger(cmd.Context(), billID)
			if err != nil {
				return err
			}
			sent, err := l.RequestAssign(cmd.Context(), pid, requested)
			if err != nil {
				return err
			}

			out := rootOpts.printer(cmd)
			if sent != requested {
				out.Line("only %s was available, assigned that", out.Money.Format(sent))
			}
			st, _ := l.State()
			return out.Bill(st, u.ID, nil)
		},
	}
}

// NewPayCommand creates the pay command
func NewPayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pay <bill-id> <participant-id>",
		Short: "Toggle a participant's paid flag",
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
			if err := l.RequestTogglePaid(cmd.Context(), pid); err != nil {
				return err
			}

			st, _ := l.State()
			return rootOpts.printer(cmd).Bill(st, u.ID, nil)
		},
	}
}
