package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/vnote-labs/coach/internal/cli/formatter"
	"github.com/vnote-labs/coach/internal/domain"
	"github.com/vnote-labs/coach/internal/export"
)

// defaultWidth wraps transcripts when the terminal size is unknown.
const defaultWidth = 100

// errNothingExported is returned when every artifact failed to write.
var errNothingExported = errors.New("export failed: no artifacts written")

func newExportCmd(app *App) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the conversation as JSON and Markdown files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := app.ExportDir
			if cmd.Flags().Changed("dir") {
				target = dir
			}
			if target == "" {
				target = "."
			}

			names, err := app.Coach.ExportTranscriptTo(cmd.Context(), export.FileSink{Dir: target})
			if err != nil {
				return err
			}
			if len(names) == 0 {
				return errNothingExported
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.StyleGreen.Render("✔")+" "+filepath.Join(target, name))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory to write into (default from COACH_EXPORT_DIR)")

	return cmd
}

func newTranscriptCmd(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Print the conversation transcript as Markdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := app.Coach.State()
			payload := export.BuildPayload(domain.Snapshot{
				History:         s.History,
				Goals:           s.Goals,
				Checklist:       s.Checklist,
				Persona:         s.Persona,
				CurrentProposal: s.CurrentProposal,
			}, app.Coach.Plan(), time.Now())

			md := export.RenderMarkdown(payload)
			if !raw && app.interactive() {
				md = renderMarkdown(md, app.width())
			}
			fmt.Fprintln(cmd.OutOrStdout(), md)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print Markdown without terminal styling")

	return cmd
}

// renderMarkdown styles md for the terminal, falling back to the raw text.
func renderMarkdown(md string, width int) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(rendered, "\n ")
}
