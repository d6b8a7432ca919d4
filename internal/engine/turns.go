package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/vnote-labs/coach/internal/domain"
	"github.com/vnote-labs/coach/internal/sentiment"
)

// AddAgentUtterance appends an agent turn. Blank text is ignored and reports
// false. meta is copied onto the turn when non-nil.
func (e *Engine) AddAgentUtterance(ctx context.Context, text string, meta *domain.TurnMetadata) (domain.ConversationTurn, bool) {
	return e.addUtterance(ctx, domain.RoleAgent, text, meta)
}

// AddCustomerUtterance appends a customer turn. Blank text is ignored and
// reports false. Text matching a playbook trigger is tagged with its category.
func (e *Engine) AddCustomerUtterance(ctx context.Context, text string) (domain.ConversationTurn, bool) {
	var meta *domain.TurnMetadata
	if category, ok := e.objections.Detect(text); ok {
		meta = &domain.TurnMetadata{Tags: []string{domain.ObjectionTagPrefix + category}}
	}
	return e.addUtterance(ctx, domain.RoleCustomer, text, meta)
}

func (e *Engine) addUtterance(ctx context.Context, role domain.Role, text string, meta *domain.TurnMetadata) (domain.ConversationTurn, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ConversationTurn{}, false
	}

	turn := domain.ConversationTurn{
		ID:        e.deps.IDs(role),
		Role:      role,
		Text:      text,
		Timestamp: e.now(),
		Sentiment: e.deps.Scorer.Score(text),
	}
	if meta != nil {
		turn.Metadata = meta.Clone()
	}

	e.mu.Lock()
	e.history = domain.AppendTurn(e.history, turn)
	e.persistLocked(ctx)
	e.mu.Unlock()

	if e.deps.Advanced != nil || turn.Sentiment == nil {
		e.scoreInBackground(turn.ID, text)
	}
	return turn.Clone(), true
}

// scoreInBackground patches the turn's sentiment once the advanced scorer
// answers. It never blocks the caller.
func (e *Engine) scoreInBackground(id, text string) {
	adv := e.deps.Advanced
	if adv == nil {
		return
	}
	started := e.bg.TryGo(func() error {
		score, err := adv.Classify(context.Background(), text)
		if err != nil {
			if !errors.Is(err, sentiment.ErrTooShort) {
				e.deps.Logger.Warn("advanced sentiment failed", "turn", id, "error", err)
			}
			return nil
		}
		e.patchSentiment(id, score)
		return nil
	})
	if !started {
		e.deps.Logger.Debug("advanced sentiment pool full, keeping lexicon score", "turn", id)
	}
}

// patchSentiment sets the sentiment of the turn with id. A turn evicted or
// reset away in the meantime is left alone.
func (e *Engine) patchSentiment(id string, score float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.history {
		if e.history[i].ID == id {
			e.history[i].Sentiment = domain.Float64Ptr(score)
			e.persistLocked(context.Background())
			return
		}
	}
}

// InsertSuggestion appends the current proposal's line as an agent turn
// carrying the proposal, then clears the current proposal. When the proposal
// answers an objection, the customer turn that raised it is marked resolved.
func (e *Engine) InsertSuggestion(ctx context.Context) (domain.ConversationTurn, error) {
	e.mu.Lock()
	pending := e.current
	current := domain.CloneProposal(pending)
	e.mu.Unlock()

	if current == nil || strings.TrimSpace(current.NextLine) == "" {
		return domain.ConversationTurn{}, ErrNoProposal
	}
	turn, _ := e.addUtterance(ctx, domain.RoleAgent, current.NextLine, &domain.TurnMetadata{Proposal: current})

	e.mu.Lock()
	changed := false
	if current.Objection.Detected {
		changed = e.resolveObjectionLocked(turn.ID)
	}
	if e.current == pending {
		e.current = nil
		changed = true
	}
	if changed {
		e.persistLocked(ctx)
	}
	e.mu.Unlock()
	return turn, nil
}

// resolveObjectionLocked marks the nearest customer turn before the turn
// with id resolved, if it carries an objection. Callers hold mu.
func (e *Engine) resolveObjectionLocked(id string) bool {
	at := -1
	for j := len(e.history) - 1; j >= 0; j-- {
		if e.history[j].ID == id {
			at = j
			break
		}
	}
	if at < 0 {
		return false
	}
	i := domain.LastTurnOfRole(e.history, domain.RoleCustomer, at-1)
	if i < 0 || e.history[i].Metadata.Objection() == "" || e.history[i].Metadata.Resolved {
		return false
	}
	md := e.history[i].Metadata.Clone()
	md.Resolved = true
	e.history[i].Metadata = md
	return true
}
