package domain

import (
	"strings"
	"time"
)

// MaxHistoryEntries bounds the conversation history. Older turns are evicted first.
const MaxHistoryEntries = 150

// TurnMetadata carries optional annotations on a turn.
type TurnMetadata struct {
	Proposal          *Proposal `json:"proposal,omitempty"`
	ObjectionCategory string    `json:"objectionCategory,omitempty"`
	Resolved          bool      `json:"resolved,omitempty"`
	Tags              []string  `json:"tags,omitempty"`
}

// ObjectionTagPrefix marks a tag naming the playbook category a customer
// turn's text matched.
const ObjectionTagPrefix = "objection:"

// Objection returns the model-assigned objection category, falling back to
// a playbook tag.
func (m *TurnMetadata) Objection() string {
	if m == nil {
		return ""
	}
	if m.ObjectionCategory != "" {
		return m.ObjectionCategory
	}
	for _, tag := range m.Tags {
		if category, ok := strings.CutPrefix(tag, ObjectionTagPrefix); ok {
			return category
		}
	}
	return ""
}

// ConversationTurn is one utterance in the conversation. Turns are immutable
// once appended except for sentiment backfill and objection annotation.
type ConversationTurn struct {
	ID        string        `json:"id"`
	Role      Role          `json:"role"`
	Text      string        `json:"text"`
	Timestamp time.Time     `json:"timestamp"`
	Sentiment *float64      `json:"sentiment"`
	Metadata  *TurnMetadata `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the turn.
func (t ConversationTurn) Clone() ConversationTurn {
	out := t
	out.Sentiment = cloneFloat(t.Sentiment)
	out.Metadata = t.Metadata.Clone()
	return out
}

// Clone returns a deep copy of m, or nil.
func (m *TurnMetadata) Clone() *TurnMetadata {
	if m == nil {
		return nil
	}
	md := *m
	md.Tags = cloneStrings(m.Tags)
	md.Proposal = CloneProposal(m.Proposal)
	return &md
}

// CloneHistory deep-copies a slice of turns.
func CloneHistory(history []ConversationTurn) []ConversationTurn {
	if history == nil {
		return nil
	}
	out := make([]ConversationTurn, len(history))
	for i, t := range history {
		out[i] = t.Clone()
	}
	return out
}

// AppendTurn returns history with turn appended, evicting the oldest entries
// once the length exceeds MaxHistoryEntries. The input slice is not modified.
func AppendTurn(history []ConversationTurn, turn ConversationTurn) []ConversationTurn {
	next := make([]ConversationTurn, 0, len(history)+1)
	next = append(next, history...)
	next = append(next, turn)
	if over := len(next) - MaxHistoryEntries; over > 0 {
		next = next[over:]
	}
	return next
}

// LastTurnOfRole returns the index of the most recent turn with the given
// role at or before index from, or -1.
func LastTurnOfRole(history []ConversationTurn, role Role, from int) int {
	if from >= len(history) {
		from = len(history) - 1
	}
	for i := from; i >= 0; i-- {
		if history[i].Role == role {
			return i
		}
	}
	return -1
}
