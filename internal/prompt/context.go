package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vnote-labs/coach/internal/domain"
)

// Truncation limits for text embedded in the user context.
const (
	MaxFieldChars = 220
	MaxTurnChars  = 140
	maxStageChars = 120
)

// Input is the dynamic state rendered into the user context.
type Input struct {
	Plan          domain.SalesPlan
	Goals         []domain.GoalState
	Checklist     []domain.ChecklistItemState
	History       []domain.ConversationTurn // already trimmed
	Signals       domain.ContextSignals
	Mode          domain.ProposalMode
	ObjectionText string
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// UserContext renders transcript, goals, checklist, roadmap, signals and the
// mode directive.
func UserContext(in Input) string {
	mode := in.Mode
	if mode == "" {
		mode = domain.ModeDefault
	}

	var b strings.Builder
	section := func(title, body, empty string) {
		if body == "" {
			body = empty
		}
		fmt.Fprintf(&b, "%s:\n%s\n\n", title, body)
	}

	section("Conversation transcript (most recent last)", formatTranscript(in.History), "(no conversation yet)")
	section("Goals progress", formatGoals(in.Goals), "(no goals)")
	section("Checklist state", formatChecklist(in.Checklist), "(no checklist)")
	section("Plan roadmap status", describeStages(in.Plan.PlanStages, in.Checklist), "")
	section("Local signals", SummarizeSignals(in.Signals), "")

	fmt.Fprintf(&b, "Mode: %s. %s\n\n", mode, modeDirective(mode, in.ObjectionText))
	b.WriteString("When giving guidance include rationale, a crisp next line, suggested follow-ups, and update goal/checklist progress.")
	return b.String()
}

func modeDirective(mode domain.ProposalMode, objection string) string {
	if mode != domain.ModeObjection {
		return "Provide the next best thing for the agent to say and keep momentum."
	}
	objection = strings.TrimSpace(objection)
	if objection == "" {
		objection = "Use the last customer turn to infer objection."
	} else {
		objection = Truncate(objection, MaxFieldChars)
	}
	return "An objection is being handled. Focus on resolving it with empathy. Objection context: " + objection
}

func formatTranscript(history []domain.ConversationTurn) string {
	lines := make([]string, 0, len(history))
	for _, t := range history {
		label := strings.ToUpper(string(t.Role))
		if !t.Timestamp.IsZero() {
			label += " (" + t.Timestamp.Format("15:04") + ")"
		}
		if t.Sentiment != nil {
			label += fmt.Sprintf(" sentiment=%.2f", *t.Sentiment)
		}
		lines = append(lines, label+": "+Truncate(t.Text, MaxTurnChars))
	}
	return strings.Join(lines, "\n")
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func formatGoals(goals []domain.GoalState) string {
	lines := make([]string, 0, len(goals))
	for _, g := range goals {
		lines = append(lines, checkbox(g.Done)+" "+g.Name)
	}
	return strings.Join(lines, "\n")
}

func formatChecklist(items []domain.ChecklistItemState) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		line := checkbox(it.Done) + " " + it.Name
		if it.Description != "" {
			line += " - " + Truncate(it.Description, MaxFieldChars)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// CurrentStage estimates the active roadmap stage from checklist completion.
func CurrentStage(stages int, checklist []domain.ChecklistItemState) int {
	if stages == 0 {
		return -1
	}
	total := len(checklist)
	if total == 0 {
		total = 1
	}
	done := 0
	for _, it := range checklist {
		if it.Done {
			done++
		}
	}
	idx := done * stages / total
	if idx > stages-1 {
		idx = stages - 1
	}
	return idx
}

func describeStages(stages []domain.PlanStage, checklist []domain.ChecklistItemState) string {
	if len(stages) == 0 {
		return "No plan stages provided."
	}
	current := CurrentStage(len(stages), checklist)
	lines := make([]string, 0, len(stages))
	for i, s := range stages {
		status := "upcoming"
		switch {
		case i < current:
			status = "complete"
		case i == current:
			status = "current"
		}
		lines = append(lines, fmt.Sprintf("%d. %s - status: %s. Objective: %s. Key cues: %s. Checkpoint: %s",
			i+1, s.Title, status, Truncate(s.Objective, maxStageChars),
			strings.Join(head(s.Cues, 2), ", "), Truncate(s.Checkpoint, maxStageChars)))
	}
	return strings.Join(lines, "\n")
}

// SummarizeSignals renders signals as a single line.
func SummarizeSignals(s domain.ContextSignals) string {
	keywords := "none observed"
	if len(s.Keywords) > 0 {
		keywords = strings.Join(s.Keywords, ", ")
	}
	return fmt.Sprintf("Agent sentiment: %s. Customer sentiment: %s. Rolling average: %s. Keywords: %s.",
		fmtScore(s.LastAgentSentiment), fmtScore(s.LastCustomerSentiment), fmtScore(s.AverageSentiment), keywords)
}

func fmtScore(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
