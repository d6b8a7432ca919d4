package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vnote-labs/coach/internal/cli/formatter"
	"github.com/vnote-labs/coach/internal/domain"
	"github.com/vnote-labs/coach/internal/engine"
)

func newProposeCmd(app *App) *cobra.Command {
	var mode string
	var objection string

	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Ask for the agent's next best line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := engine.ProposeRequest{ObjectionText: strings.TrimSpace(objection)}
			switch domain.ProposalMode(mode) {
			case domain.ModeObjection:
				req.Mode = domain.ModeObjection
			case domain.ModeDefault, "":
				if req.ObjectionText != "" {
					req.Mode = domain.ModeObjection
				}
			default:
				return fmt.Errorf("invalid --mode %q: must be default or objection", mode)
			}

			onToken, done := app.progress(cmd, "Thinking…")
			req.OnToken = onToken
			p, err := app.Coach.ProposeNext(cmd.Context(), req)
			done()
			if err != nil {
				return err
			}
			printProposal(cmd, app, p)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Guidance mode: default or objection")
	cmd.Flags().StringVar(&objection, "objection", "", "Objection text to respond to")

	return cmd
}

func newObjectionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "objection [TEXT...]",
		Short: "Get a counter for an objection (defaults to the last customer message)",
		RunE: func(cmd *cobra.Command, args []string) error {
			onToken, done := app.progress(cmd, "Handling objection…")
			p, err := app.Coach.HandleObjection(cmd.Context(), strings.Join(args, " "), onToken)
			done()
			if err != nil {
				return err
			}
			printProposal(cmd, app, p)
			return nil
		},
	}
}

func newInsertCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "insert",
		Short: "Log the current proposal as the agent's line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			turn, err := app.Coach.InsertSuggestion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatTurn(turn))
			return nil
		},
	}
}

func printProposal(cmd *cobra.Command, app *App, p *domain.Proposal) {
	out := cmd.OutOrStdout()
	if p == nil && cmd.Context().Err() != nil {
		fmt.Fprintln(out, formatter.Dim("Request cancelled."))
		return
	}
	fmt.Fprint(out, formatter.FormatProposal(p))
	if notice := app.Coach.State().Notice; notice != "" {
		fmt.Fprintln(out, formatter.StyleYellow.Render("! "+notice))
	}
}

// progress returns the token callback for a guidance request and a func
// that ends the progress display. Tokens are echoed to stderr when
// streaming; otherwise an interactive terminal gets a spinner.
func (a *App) progress(cmd *cobra.Command, message string) (func(string), func()) {
	w := cmd.ErrOrStderr()
	if a.StreamTokens {
		streamed := false
		onToken := func(token string) {
			streamed = true
			fmt.Fprint(w, token)
		}
		return onToken, func() {
			if streamed {
				fmt.Fprintln(w)
			}
		}
	}
	if a.interactive() {
		return nil, formatter.StartSpinner(w, message)
	}
	return nil, func() {}
}
