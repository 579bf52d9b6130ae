package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/fkhayef/splitthebill/internal/ledger"
	"github.com/fkhayef/splitthebill/internal/realtime"
)

// NewReactCommand creates the react command
func NewReactCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "react <bill-id> <emoji>",
		Short: "Send a short-lived emoji to everyone watching the bill",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			billID, err := parseID("bill id", args[0])
			if err != nil {
				return err
			}
			emoji := strings.TrimSpace(args[1])
			if emoji == "" || utf8.RuneCountInString(emoji) > 16 {
				return NewExitError(ExitCommandError, "emoji must be 1 to 16 characters")
			}
			if _, err := rootOpts.session(); err != nil {
				return err
			}

			if err := rootOpts.api.React(cmd.Context(), billID, emoji); err != nil {
				return err
			}
			rootOpts.printer(cmd).Line("sent %s", emoji)
			return nil
		},
	}
}

// NewWatchCommand creates the watch command
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <bill-id>",
		Short: "Follow a bill live until interrupted; type another bill id to switch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			billID, err := parseID("bill id", args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := rootOpts.printer(cmd)
			if out.Format == "json" {
				return NewExitError(ExitCommandError, "watch only supports text output")
			}

			changed := make(chan struct{}, 1)
			cfg := ledger.ViewConfig{
				Backend:     rootOpts.api,
				BaseURL:     rootOpts.cfg.APIURL,
				UserID:      rootOpts.api.UserID(),
				ReactionTTL: rootOpts.cfg.ReactionTTL,
				Stream:      realtime.Options{Headers: rootOpts.api.Headers()},
				OnChange: func() {
					select {
					case changed <- struct{}{}:
					default:
					}
				},
			}

			view, err := ledger.Open(ctx, cfg, billID)
			if err != nil {
				return err
			}
			defer func() {
				if view != nil {
					view.Close()
				}
			}()

			draw := func() {
				st, ok := view.Ledger().State()
				if !ok {
					return
				}
				fmt.Fprintln(out.Writer, strings.Repeat("-", 48))
				RenderBill(out.Writer, st, rootOpts.api.UserID(), view.ActiveReactions(), out.Money)
			}

			lines := readLines(ctx, cmd.InOrStdin())

			draw()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-changed:
					draw()
				case line, ok := <-lines:
					if !ok {
						lines = nil
						continue
					}
					line = strings.TrimPrefix(strings.TrimSpace(line), "#")
					if line == "" {
						continue
					}
					next, err := parseID("bill id", line)
					if err != nil {
						out.Line("%v", err)
						continue
					}

					current := view.Ledger().BillID()
					if view, err = view.Switch(ctx, next); err != nil {
						out.Line("cannot open bill #%d: %v", next, err)
						if view, err = ledger.Open(ctx, cfg, current); err != nil {
							view = nil
							return err
						}
					}
					draw()
				}
			}
		},
	}
}

// readLines streams r line by line until EOF or ctx is done
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
