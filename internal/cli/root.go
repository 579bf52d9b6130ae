// Package cli implements the billctl command tree.
package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fkhayef/splitthebill/internal/amount"
	"github.com/fkhayef/splitthebill/internal/appstate"
	"github.com/fkhayef/splitthebill/internal/client"
	"github.com/fkhayef/splitthebill/internal/config"
	"github.com/fkhayef/splitthebill/internal/ledger"
	"github.com/fkhayef/splitthebill/pkg/logging"
)

// RootOptions holds global flags and the session every command shares
type RootOptions struct {
	APIURL  string
	Format  string // "text" | "json"
	Verbose bool

	cfg   *config.ClientConfig
	store *appstate.Store
	api   *client.Client
}

// ValidFormats lists the accepted --format values
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the billctl root command
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "billctl",
		Short:         "Split a bill with friends",
		Long:          "billctl creates shared bills, splits them between participants and tracks who has paid.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.init()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.APIURL, "api", "", "API base URL (overrides BILL_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewPrefsCommand(opts))
	cmd.AddCommand(NewBillsCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewJoinCommand(opts))
	cmd.AddCommand(NewCloseCommand(opts))
	cmd.AddCommand(NewSplitCommand(opts))
	cmd.AddCommand(NewAssignCommand(opts))
	cmd.AddCommand(NewPayCommand(opts))
	cmd.AddCommand(NewItemCommand(opts))
	cmd.AddCommand(NewParticipantCommand(opts))
	cmd.AddCommand(NewReactCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

func (o *RootOptions) init() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if o.APIURL != "" {
		cfg.APIURL = o.APIURL
	}
	o.cfg = cfg

	level := cfg.LogLevel
	if o.Verbose {
		level = "debug"
	}
	logging.Setup(level)

	adapter, err := appstate.NewFileAdapter(cfg.StateFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "load state", err)
	}
	o.store = appstate.NewStore(adapter)

	o.api = client.New(cfg.APIURL, cfg.RequestTimeout)
	if u, ok, err := o.store.CurrentUser(); err == nil && ok {
		o.api = o.api.As(u.ID)
	}
	return nil
}

func (o *RootOptions) printer(cmd *cobra.Command) *Printer {
	return &Printer{
		Format: o.Format,
		Writer: cmd.OutOrStdout(),
		Money:  amount.NewFormatter(o.cfg.CurrencySuffix),
	}
}

// session returns the logged-in user or a command error telling how to log in
func (o *RootOptions) session() (appstate.CurrentUser, error) {
	u, ok, err := o.store.CurrentUser()
	if err != nil {
		return u, WrapExitError(ExitCommandError, "read state", err)
	}
	if !ok {
		return u, NewExitError(ExitCommandError, "not logged in, run `billctl login` first")
	}
	return u, nil
}

// openLedger loads a bill into a ledger acting as the logged-in user
func (o *RootOptions) openLedger(ctx context.Context, billID int64) (*ledger.Ledger, appstate.CurrentUser, error) {
	u, err := o.session()
	if err != nil {
		return nil, u, err
	}
	l := ledger.New(o.api, billID, u.ID, nil)
	if err := l.Refresh(ctx); err != nil {
		return nil, u, err
	}
	return l, u, nil
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s %q", what, s))
	}
	return id, nil
}

// parseAmount accepts "12", "12.5" or "12,50" and returns minor units
func parseAmount(s string) (int64, error) {
	if s == "" || !amount.Valid(s) {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid amount %q", s))
	}
	minor, err := amount.CheckedMinor(amount.Parse(s))
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("amount %q is too large", s))
	}
	return minor, nil
}
