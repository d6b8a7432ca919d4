package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnote-labs/coach/internal/cli/formatter"
)

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the conversation, goals, checklist and current proposal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatState(app.Coach.State()))
			return nil
		},
	}
}

func newSignalsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "signals",
		Short: "Show sentiment and keyword signals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSignals(app.Coach.State().Signals))
			return nil
		},
	}
}

func newProjectsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "projects",
		Short:       "List stored conversations",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipOpenAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := app.Snapshots.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing conversations: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatProjects(infos, time.Now()))
			return nil
		},
	}
}
