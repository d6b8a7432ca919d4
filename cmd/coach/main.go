package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/vnote-labs/coach/internal/cli"
	"github.com/vnote-labs/coach/internal/config"
	"github.com/vnote-labs/coach/internal/db"
	"github.com/vnote-labs/coach/internal/engine"
	"github.com/vnote-labs/coach/internal/export"
	"github.com/vnote-labs/coach/internal/knowledge"
	"github.com/vnote-labs/coach/internal/llm"
	"github.com/vnote-labs/coach/internal/repository"
	"github.com/vnote-labs/coach/internal/sentiment"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	k := knowledge.Default()
	if cfg.PlanFile != "" {
		if k, err = knowledge.LoadFile(cfg.PlanFile); err != nil {
			return err
		}
	}

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()
	snapshots := repository.NewSQLiteSnapshotRepo(database)

	var observer llm.Observer = llm.NoopObserver{}
	var useCases engine.UseCaseObserver = engine.NoopUseCaseObserver{}
	if cfg.LLM.LogCalls {
		observer = llm.NewLogObserver(os.Stderr)
		useCases = engine.NewLogUseCaseObserver(os.Stderr)
	}

	deps := engine.Deps{
		Store:    snapshots,
		Sink:     export.FileSink{Dir: cfg.ExportDir},
		Observer: useCases,
		Logger:   logger,
	}
	if cfg.LLM.Endpoint != "" {
		deps.Chat = llm.NewChatClient(cfg.LLM, observer, logger)
	}
	if cfg.Sentiment.Advanced {
		deps.Advanced = sentiment.NewOpenAIScorer(cfg.Sentiment.APIKey, cfg.Sentiment.URL, cfg.Sentiment.Model)
	}

	coach := engine.New(deps, engine.Options{
		Plan:     k.Plan,
		Playbook: k.Playbook,
		Script:   k.Script,
	})
	defer func() {
		if err := coach.Close(); err != nil {
			logger.Warn("closing engine", "error", err)
		}
	}()

	app := &cli.App{
		Coach:        coach,
		Snapshots:    snapshots,
		ExportDir:    cfg.ExportDir,
		StreamTokens: cfg.LLM.Stream && isTerminal(os.Stderr),
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
		Width: func() int {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				return 0
			}
			return w
		},
	}

	// Ctrl-C cancels an in-flight proposal; the engine keeps the previous one.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
