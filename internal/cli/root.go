package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vnote-labs/coach/internal/domain"
	"github.com/vnote-labs/coach/internal/engine"
	"github.com/vnote-labs/coach/internal/export"
	"github.com/vnote-labs/coach/internal/repository"
)

// Coach is the conversation engine as seen by the commands.
type Coach interface {
	Open(ctx context.Context, projectID string) error
	State() engine.State
	Plan() domain.SalesPlan
	AddAgentUtterance(ctx context.Context, text string, meta *domain.TurnMetadata) (domain.ConversationTurn, bool)
	AddCustomerUtterance(ctx context.Context, text string) (domain.ConversationTurn, bool)
	ProposeNext(ctx context.Context, req engine.ProposeRequest) (*domain.Proposal, error)
	HandleObjection(ctx context.Context, text string, onToken func(string)) (*domain.Proposal, error)
	InsertSuggestion(ctx context.Context) (domain.ConversationTurn, error)
	Reset(ctx context.Context) error
	ExportTranscriptTo(ctx context.Context, sink export.Sink) ([]string, error)
}

// App holds the dependencies used by CLI commands.
type App struct {
	Coach     Coach
	Snapshots repository.SnapshotRepo

	// ExportDir is where `export` writes when --dir is not given.
	ExportDir string
	// StreamTokens echoes model tokens to stderr while a proposal streams.
	StreamTokens bool

	// IsInteractive reports whether stdin is a terminal. Nil means false.
	IsInteractive func() bool
	// Confirm asks a yes/no question. Nil uses a huh form.
	Confirm func(title string) (bool, error)
	// Width reports the terminal width in columns, or 0 when unknown.
	Width func() int
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) width() int {
	if a.Width != nil {
		if w := a.Width(); w > 0 {
			return w
		}
	}
	return defaultWidth
}

func (a *App) confirm(title string) (bool, error) {
	if a.Confirm != nil {
		return a.Confirm(title)
	}
	return huhConfirm(title)
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	project string
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&g.project, "project", "p", "", "Project id whose conversation to use")
}

// NewRootCmd creates the top-level "coach" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "coach",
		Short:         "Guided sales conversation assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsConversation(cmd) {
				return nil
			}
			return app.Coach.Open(cmd.Context(), flags.project)
		},
	}
	flags.register(root.PersistentFlags())

	root.AddCommand(
		newSayCmd(app),
		newProposeCmd(app),
		newObjectionCmd(app),
		newInsertCmd(app),
		newShowCmd(app),
		newSignalsCmd(app),
		newResetCmd(app),
		newExportCmd(app),
		newTranscriptCmd(app),
		newProjectsCmd(app),
	)

	return root
}

// skipOpenAnnotation marks commands that do not load a conversation.
const skipOpenAnnotation = "coach.skip-open"

func needsConversation(cmd *cobra.Command) bool {
	if cmd.Annotations[skipOpenAnnotation] == "true" {
		return false
	}
	return cmd.HasParent()
}
