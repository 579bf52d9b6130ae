package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fkhayef/splitthebill/internal/appstate"
	"github.com/fkhayef/splitthebill/internal/client"
)

// NewLoginCommand creates the login command
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		telegramID int64
		username   string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Register or refresh your profile and remember it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if telegramID <= 0 {
				return NewExitError(ExitCommandError, "--telegram-id is required")
			}

			profile := client.Profile{TelegramID: telegramID}
			if username != "" {
				profile.Username = &username
			}

			u, err := rootOpts.api.UpsertUser(cmd.Context(), profile)
			if err != nil {
				return err
			}

			cur := appstate.CurrentUser{ID: u.ID, TelegramID: u.TelegramID}
			if u.Username != nil {
				cur.Username = *u.Username
			}
			if err := rootOpts.store.SetCurrentUser(&cur); err != nil {
				return WrapExitError(ExitCommandError, "save state", err)
			}

			out := rootOpts.printer(cmd)
			if out.Format == "json" {
				return out.JSON(u)
			}
			out.Line("logged in as %s (#%d)", label(cur), cur.ID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&telegramID, "telegram-id", 0, "your telegram id")
	cmd.Flags().StringVar(&username, "username", "", "display username")

	return cmd
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.store.SetCurrentUser(nil); err != nil {
				return WrapExitError(ExitCommandError, "save state", err)
			}
			rootOpts.printer(cmd).Line("logged out")
			return nil
		},
	}
}

// NewPrefsCommand creates the prefs command
func NewPrefsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		theme  string
		lang   string
		toggle bool
	)

	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change theme and language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := rootOpts.store

			switch {
			case toggle:
				if _, err := store.ToggleTheme(); err != nil {
					return err
				}
			case theme != "":
				if err := store.SetTheme(appstate.Theme(theme)); err != nil {
					return NewExitError(ExitCommandError, err.Error())
				}
			}
			if lang != "" {
				if err := store.SetLanguage(appstate.Language(lang)); err != nil {
					return NewExitError(ExitCommandError, err.Error())
				}
			}

			t, err := store.Theme()
			if err != nil {
				return err
			}
			l, err := store.Language()
			if err != nil {
				return err
			}

			out := rootOpts.printer(cmd)
			if out.Format == "json" {
				return out.JSON(map[string]string{"theme": string(t), "language": string(l)})
			}
			out.Line("theme: %s", t)
			out.Line("language: %s", l)
			return nil
		},
	}

	cmd.Flags().StringVar(&theme, "theme", "", "light or dark")
	cmd.Flags().BoolVar(&toggle, "toggle-theme", false, "switch between light and dark")
	cmd.Flags().StringVar(&lang, "lang", "", "en, ru or uz")

	return cmd
}

func label(u appstate.CurrentUser) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("user %d", u.ID)
}
