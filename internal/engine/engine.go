// Package engine owns one conversation: its history, goals, checklist and
// the single in-flight guidance request.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vnote-labs/coach/internal/domain"
	"github.com/vnote-labs/coach/internal/export"
	"github.com/vnote-labs/coach/internal/knowledge"
	"github.com/vnote-labs/coach/internal/llm"
	"github.com/vnote-labs/coach/internal/prompt"
	"github.com/vnote-labs/coach/internal/repository"
	"github.com/vnote-labs/coach/internal/sentiment"
	"github.com/vnote-labs/coach/internal/signals"
)

// maxBackgroundScoring bounds concurrent advanced sentiment calls. Turns
// arriving while the pool is full keep their lexicon score.
const maxBackgroundScoring = 4

// Deps are the collaborators of an Engine. Chat is required for proposals;
// every other field has a usable default.
type Deps struct {
	Chat     llm.ChatClient
	Store    repository.SnapshotRepo
	Scorer   sentiment.Scorer
	Advanced sentiment.Advanced
	Sink     export.Sink
	Observer UseCaseObserver
	Logger   *slog.Logger
	Clock    func() time.Time
	IDs      func(role domain.Role) string
}

// Options configure the knowledge and model parameters of an Engine.
type Options struct {
	Plan        domain.SalesPlan
	Playbook    []domain.ObjectionPlaybookEntry
	Script      *domain.Script
	PersonaName string
	Model       string
	Temperature *float64
	Stream      *bool
	// Budget overrides prompt.DefaultBudget when Total is non-zero.
	Budget prompt.Budget
}

// State is a read-only copy of the engine state.
type State struct {
	ProjectID       string
	History         []domain.ConversationTurn
	Goals           []domain.GoalState
	Checklist       []domain.ChecklistItemState
	Persona         domain.Persona
	CurrentProposal *domain.Proposal
	Signals         domain.ContextSignals
	Loading         bool
	LastError       string
	// Notice is advisory, e.g. an unstructured model reply.
	Notice      string
	Initialized bool
}

// Engine coordinates scoring, prompting, streaming and parsing for one
// conversation at a time. It is safe for concurrent use.
type Engine struct {
	deps       Deps
	opts       Options
	objections *knowledge.ObjectionMatcher

	mu          sync.Mutex
	projectID   string
	initialized bool
	history     []domain.ConversationTurn
	goals       []domain.GoalState
	checklist   []domain.ChecklistItemState
	persona     domain.Persona
	current     *domain.Proposal
	loading     bool
	lastErr     string
	notice      string

	// cancel aborts the in-flight proposal; gen identifies it.
	cancel context.CancelFunc
	gen    uint64

	bg errgroup.Group
}

// New creates an Engine holding plan defaults. Nothing is persisted until
// Open succeeds.
func New(deps Deps, opts Options) *Engine {
	if deps.Scorer == nil {
		deps.Scorer = sentiment.Lexicon{}
	}
	if deps.Observer == nil {
		deps.Observer = NoopUseCaseObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.IDs == nil {
		deps.IDs = func(role domain.Role) string {
			return fmt.Sprintf("%s-turn-%s", role, uuid.NewString())
		}
	}
	if opts.Budget.Total == 0 {
		opts.Budget = prompt.DefaultBudget()
	}

	e := &Engine{deps: deps, opts: opts, objections: knowledge.NewObjectionMatcher(opts.Playbook)}
	e.bg.SetLimit(maxBackgroundScoring)
	e.applyDefaults()
	return e
}

func (e *Engine) now() time.Time {
	return e.deps.Clock()
}

func (e *Engine) defaultPersona() domain.Persona {
	p := e.opts.Plan.Persona
	if e.opts.PersonaName != "" {
		p.Name = e.opts.PersonaName
	}
	return p
}

// applyDefaults replaces the conversation with plan defaults. Callers hold mu
// or own e exclusively.
func (e *Engine) applyDefaults() {
	e.history = []domain.ConversationTurn{}
	e.goals = domain.GoalsFromNames(e.opts.Plan.Goals)
	e.checklist = domain.CloneChecklist(e.opts.Plan.Checklist)
	e.persona = e.defaultPersona()
	e.current = nil
	e.lastErr = ""
	e.notice = ""
}

// abortLocked cancels the in-flight proposal, if any. Callers hold mu.
func (e *Engine) abortLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
	e.loading = false
}

// Open switches the engine to projectID and replaces all state from its
// stored snapshot, or from plan defaults when none is stored. A corrupt or
// unreadable snapshot is logged and treated as absent.
func (e *Engine) Open(ctx context.Context, projectID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.abortLocked()
	e.projectID = projectID
	e.applyDefaults()
	e.initialized = false

	if e.deps.Store != nil {
		key := repository.StorageKey(projectID)
		snap, err := e.deps.Store.Load(ctx, key)
		switch {
		case err == nil:
			e.restore(snap)
		case errors.Is(err, repository.ErrNotFound):
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			e.deps.Logger.Warn("discarding stored conversation", "key", key, "error", err)
		}
	}

	e.initialized = true
	return nil
}

func (e *Engine) restore(snap *domain.Snapshot) {
	s := snap.Clone()
	if s.History != nil {
		e.history = s.History
	}
	if len(s.Goals) > 0 {
		e.goals = s.Goals
	}
	if len(s.Checklist) > 0 {
		e.checklist = s.Checklist
	}
	if s.Persona.Name != "" {
		e.persona = s.Persona
	}
	if e.opts.PersonaName != "" {
		e.persona.Name = e.opts.PersonaName
	}
	e.current = s.CurrentProposal
}

// snapshotLocked copies the persisted part of the state. Callers hold mu.
func (e *Engine) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		History:         e.history,
		Goals:           e.goals,
		Checklist:       e.checklist,
		Persona:         e.persona,
		CurrentProposal: e.current,
	}.Clone()
}

// persistLocked writes the full snapshot once Open has completed. Write
// failures are logged. Callers hold mu.
func (e *Engine) persistLocked(ctx context.Context) {
	if !e.initialized || e.deps.Store == nil {
		return
	}
	snap := e.snapshotLocked()
	key := repository.StorageKey(e.projectID)
	if err := e.deps.Store.Save(context.WithoutCancel(ctx), key, &snap); err != nil {
		e.deps.Logger.Warn("persisting conversation", "key", key, "error", err)
	}
}

// State returns a deep copy of the current state with freshly computed signals.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.snapshotLocked()
	return State{
		ProjectID:       e.projectID,
		History:         snap.History,
		Goals:           snap.Goals,
		Checklist:       snap.Checklist,
		Persona:         snap.Persona,
		CurrentProposal: snap.CurrentProposal,
		Signals:         signals.Compute(snap.History),
		Loading:         e.loading,
		LastError:       e.lastErr,
		Notice:          e.notice,
		Initialized:     e.initialized,
	}
}

// Plan returns the sales plan the engine was configured with.
func (e *Engine) Plan() domain.SalesPlan {
	return e.opts.Plan
}

// Reset aborts any in-flight request, restores plan defaults and removes the
// stored snapshot for the current project.
func (e *Engine) Reset(ctx context.Context) error {
	start := e.now()
	e.mu.Lock()
	e.abortLocked()
	e.applyDefaults()
	projectID := e.projectID
	e.mu.Unlock()

	var err error
	if e.deps.Store != nil {
		if err = e.deps.Store.Delete(ctx, repository.StorageKey(projectID)); err != nil {
			err = fmt.Errorf("clearing stored conversation: %w", err)
		}
	}
	e.observe(ctx, "reset", start, err, map[string]any{"project": projectID})
	return err
}

// Close aborts the in-flight proposal and waits for background scoring.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.abortLocked()
	e.mu.Unlock()
	return e.bg.Wait()
}
