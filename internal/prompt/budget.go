package prompt

import (
	"unicode/utf8"

	"github.com/vnote-labs/coach/internal/domain"
)

// History trimming limits.
const (
	MaxHistoryChars = 8000
	MaxHistoryTurns = 40
)

// Budget sizes the completion request against a fixed context window.
type Budget struct {
	Total         int // context ceiling in tokens
	Margin        int // reserved safety margin
	MinCompletion int // drop history until at least this much is available
	MaxCompletion int // upper bound on the requested completion
	Floor         int // smallest useful completion when any budget remains
}

// DefaultBudget returns the production budget.
func DefaultBudget() Budget {
	return Budget{Total: 6000, Margin: 400, MinCompletion: 256, MaxCompletion: 1200, Floor: 64}
}

// EstimateTokens approximates a token count as ceil(chars/4).
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// TrimHistory keeps the newest turns whose combined text fits maxChars and
// whose count fits maxTurns. The newest turn is always kept, even when it
// alone exceeds maxChars. The result is in chronological order.
func TrimHistory(turns []domain.ConversationTurn, maxChars, maxTurns int) []domain.ConversationTurn {
	if len(turns) == 0 {
		return nil
	}
	if maxTurns < 1 {
		maxTurns = 1
	}

	chars := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		n := utf8.RuneCountInString(turns[i].Text)
		kept := len(turns) - start
		if kept >= maxTurns {
			break
		}
		if kept > 0 && chars+n > maxChars {
			break
		}
		chars += n
		start = i
	}

	out := make([]domain.ConversationTurn, len(turns)-start)
	copy(out, turns[start:])
	return out
}

// Plan drops the oldest history turns until the completion budget reaches
// MinCompletion (or history runs out) and returns the surviving history with
// the completion size to request. render builds the user-side text for a
// candidate history. The size is within [0, MaxCompletion] and never exceeds
// the available budget.
func (b Budget) Plan(system string, render func([]domain.ConversationTurn) string, history []domain.ConversationTurn) ([]domain.ConversationTurn, int) {
	systemTokens := EstimateTokens(system)
	available := func(h []domain.ConversationTurn) int {
		return b.Total - b.Margin - systemTokens - EstimateTokens(render(h))
	}

	avail := available(history)
	for avail < b.MinCompletion && len(history) > 0 {
		history = history[1:]
		avail = available(history)
	}
	return history, b.completion(avail)
}

func (b Budget) completion(available int) int {
	if available <= 0 {
		return 0
	}
	n := min(b.MaxCompletion, available)
	if n < b.Floor {
		n = min(b.Floor, available)
	}
	return max(n, 0)
}
