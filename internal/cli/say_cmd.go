package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vnote-labs/coach/internal/cli/formatter"
	"github.com/vnote-labs/coach/internal/domain"
)

// errBlankUtterance is returned when `say` is given only whitespace.
var errBlankUtterance = errors.New("nothing to log: text is blank")

func newSayCmd(app *App) *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "say TEXT...",
		Short: "Log what the customer or the agent just said",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			var (
				turn domain.ConversationTurn
				ok   bool
			)
			switch domain.Role(strings.ToLower(strings.TrimSpace(as))) {
			case domain.RoleCustomer:
				turn, ok = app.Coach.AddCustomerUtterance(cmd.Context(), text)
			case domain.RoleAgent:
				turn, ok = app.Coach.AddAgentUtterance(cmd.Context(), text, nil)
			default:
				return fmt.Errorf("invalid --as %q: must be customer or agent", as)
			}
			if !ok {
				return errBlankUtterance
			}

			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatTurn(turn))
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", string(domain.RoleCustomer), "Speaker: customer or agent")

	return cmd
}
