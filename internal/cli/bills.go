package cli

import (
	"github.com/spf13/cobra"

	"github.com/fkhayef/splitthebill/internal/client"
)

// NewBillsCommand creates the bills command
func NewBillsCommand(rootOpts *RootOptions) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "bills",
		Short: "List bills you own or take part in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := rootOpts.session()
			if err != nil {
				return err
			}

			bills, meta, err := rootOpts.api.ListBills(cmd.Context(), u.ID, page, limit)
			if err != nil {
				return err
			}

			out := rootOpts.printer(cmd)
			if out.Format == "json" {
				return out.JSON(map[string]any{"bills": bills, "meta": meta})
			}
			if len(bills) == 0 {
				out.Line("no bills yet")
				return nil
			}
			for _, b := range bills {
				out.Line("#%-5d %-24s %14s  %-6s %d people", b.ID, b.Title, out.Money.Format(b.TotalSum), b.Status, b.ParticipantsCount)
			}
			if meta != nil && meta.TotalPages > 1 {
				out.Line("page %d of %d", meta.Page, meta.TotalPages)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "bills per page")

	return cmd
}

// NewCreateCommand creates the new command
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		details   string
		skipOwner bool
	)

	cmd := &cobra.Command{
		Use:   "new <title> <total>",
		Short: "Create a bill",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rootOpts.session(); err != nil {
				return err
			}
			total, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			if total <= 0 {
				return NewExitError(ExitCommandError, "total must be greater than zero")
			}

			nb := client.NewBill{Title: args[0], TotalSum: total, IncludeOwner: !skipOwner}
			if details != "" {
				nb.PaymentDetails = &details
			}

			b, err := rootOpts.api.CreateBill(cmd.Context(), nb)
			if err != nil {
				return err
			}

			out := rootOpts.printer(cmd)
			if out.Format == "json" {
				return out.JSON(b)
			}
			out.Line("created bill #%d %q for %s", b.ID, b.Title, out.Money.Format(b.TotalSum))
			return nil
		},
	}

	cmd.Flags().StringVar(&details, "pay-to", "", "payment details shown to participants")
	cmd.Flags().BoolVar(&skipOwner, "without-me", false, "do not add yourself as a participant")

	return cmd
}

// NewShowCommand creates the show command
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <bill-id>",
		Short: "Show a bill with its participants and items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			billID, err := parseID("bill id", args[0])
			if err != nil {
				return err
			}

			st, err := rootOpts.api.GetBill(cmd.Context(), billID)
			if err != nil {
				return err
			}
			return rootOpts.printer(cmd).Bill(*st, rootOpts.api.UserID(), nil)
		},
	}
}

// NewJoinCommand creates the join command
func NewJoinCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "join <bill-id>",
		Short: "Add yourself to a bill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			billID, err := parseID("bill id", args[0])
			if err != nil {
				return err
			}
			if _, err := rootOpts.session(); err != nil {
				return err
			}

			p, err := rootOpts.api.Join(cmd.Context(), billID)
			if err != nil {
				return err
			}

			out := rootOpts.printer(cmd)
			if out.Format == "json" {
				return out.JSON(p)
			}
			out.Line("joined bill #%d as participant #%d", billID, p.ID)
			return nil
		},
	}
}

// NewCloseCommand creates the close command
func NewCloseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close <bill-id>",
		Short: "Close a bill you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			billID, err := parseID("bill id", args[0])
			if err != nil {
				return err
			}
			if _, err := rootOpts.session(); err != nil {
				return err
			}

			b, err := rootOpts.api.CloseBill(cmd.Context(), billID)
			if err != nil {
				return err
			}

			out := rootOpts.printer(cmd)
			if out.Format == "json" {
				return out.JSON(b)
			}
			out.Line("bill #%d is closed", b.ID)
			return nil
		},
	}
}
