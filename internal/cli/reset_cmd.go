package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vnote-labs/coach/internal/cli/formatter"
)

// errResetNeedsYes is returned by a non-interactive reset without --yes.
var errResetNeedsYes = errors.New("reset discards the conversation: pass --yes to confirm")

func newResetCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the conversation and restore the plan defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if !app.interactive() {
					return errResetNeedsYes
				}
				ok, err := app.confirm("Discard this conversation?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Reset cancelled."))
					return nil
				}
			}

			if err := app.Coach.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.StyleGreen.Render("Conversation reset."))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
