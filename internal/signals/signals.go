// Package signals derives conversation-level context signals from history.
package signals

import (
	"regexp"
	"sort"
	"strings"

	"github.com/vnote-labs/coach/internal/domain"
)

const (
	// RecentTurns is how many trailing turns feed keyword extraction.
	RecentTurns = 8
	// MaxKeywords caps the keyword list.
	MaxKeywords = 6
)

var tokenPattern = regexp.MustCompile(`[a-z][a-z'\-]{3,}`)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "that": {}, "with": {}, "this": {}, "have": {}, "from": {},
	"your": {}, "about": {}, "into": {}, "their": {}, "while": {}, "there": {},
	"would": {}, "could": {}, "should": {}, "been": {}, "will": {}, "they": {},
	"just": {}, "really": {}, "maybe": {}, "where": {}, "when": {}, "what": {},
	"which": {}, "ever": {}, "some": {}, "need": {}, "take": {}, "then": {},
	"than": {}, "here": {}, "them": {},
}

// IsStopWord reports whether word is excluded from keywords.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Compute derives ContextSignals from the full history. It does not modify
// history and returns the same result for the same input.
func Compute(history []domain.ConversationTurn) domain.ContextSignals {
	var (
		lastAgent, lastCustomer *float64
		sum                     float64
		n                       int
	)
	for _, turn := range history {
		if turn.Sentiment == nil {
			continue
		}
		switch turn.Role {
		case domain.RoleAgent:
			lastAgent = domain.Float64Ptr(*turn.Sentiment)
		case domain.RoleCustomer:
			lastCustomer = domain.Float64Ptr(*turn.Sentiment)
		default:
			continue
		}
		sum += *turn.Sentiment
		n++
	}

	out := domain.ContextSignals{
		LastAgentSentiment:    lastAgent,
		LastCustomerSentiment: lastCustomer,
		Keywords:              Keywords(history),
	}
	if n > 0 {
		out.AverageSentiment = domain.Float64Ptr(sum / float64(n))
	}
	return out
}

// Keywords returns the most frequent non-stop-word tokens of the last
// RecentTurns turns, most frequent first. Ties keep first-seen order.
func Keywords(history []domain.ConversationTurn) []string {
	recent := history
	if len(recent) > RecentTurns {
		recent = recent[len(recent)-RecentTurns:]
	}
	texts := make([]string, len(recent))
	for i, turn := range recent {
		texts[i] = turn.Text
	}
	joined := strings.ToLower(strings.Join(texts, " "))

	type entry struct {
		word  string
		count int
	}
	var order []*entry
	index := make(map[string]*entry)
	for _, tok := range tokenPattern.FindAllString(joined, -1) {
		if IsStopWord(tok) {
			continue
		}
		e, ok := index[tok]
		if !ok {
			e = &entry{word: tok}
			index[tok] = e
			order = append(order, e)
		}
		e.count++
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].count > order[j].count })
	if len(order) > MaxKeywords {
		order = order[:MaxKeywords]
	}
	keywords := make([]string, len(order))
	for i, e := range order {
		keywords[i] = e.word
	}
	return keywords
}
