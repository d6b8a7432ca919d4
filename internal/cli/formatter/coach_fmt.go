package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/vnote-labs/coach/internal/domain"
	"github.com/vnote-labs/coach/internal/engine"
	"github.com/vnote-labs/coach/internal/repository"
)

// recentTurns is how many turns `show` prints.
const recentTurns = 10

// FormatTurn renders one transcript line.
func FormatTurn(turn domain.ConversationTurn) string {
	label := RoleStyle(turn.Role).Render(strings.ToUpper(string(turn.Role)))
	line := fmt.Sprintf("%s %s %s  %s",
		Dim(turn.Timestamp.Format("15:04")), label, SentimentIndicator(turn.Sentiment), turn.Text)
	if category := turn.Metadata.Objection(); category != "" {
		if turn.Metadata.Resolved {
			line += " " + StyleGreen.Render("["+category+" ✔]")
		} else {
			line += " " + StyleRed.Render("["+category+"]")
		}
	}
	return line
}

// FormatProposal renders the next best line with its rationale, follow-ups
// and objection counters.
func FormatProposal(p *domain.Proposal) string {
	if p == nil {
		return Dim("No proposal yet. Run `coach propose`.") + "\n"
	}

	var b strings.Builder
	b.WriteString(Bold(p.NextLine))
	b.WriteString("\n")
	if p.Rationale != "" {
		b.WriteString("\n" + Dim("Why: ") + p.Rationale + "\n")
	}
	if p.ExpectedCustomerReplyType != "" {
		b.WriteString(Dim("Expected reply: ") + strings.ReplaceAll(string(p.ExpectedCustomerReplyType), "_", " ") + "\n")
	}
	if len(p.Followups) > 0 {
		b.WriteString("\n" + StyleBlue.Render("Follow-ups") + "\n")
		for _, f := range p.Followups {
			b.WriteString("  • " + f + "\n")
		}
	}
	if p.Objection.Detected {
		title := "Objection"
		if p.Objection.Category != "" {
			title += ": " + p.Objection.Category
		}
		b.WriteString("\n" + StyleRed.Render(title) + "\n")
		for _, s := range p.Objection.Suggestions {
			b.WriteString("  • " + s + "\n")
		}
	}
	return RenderBox("Next best line", strings.TrimRight(b.String(), "\n")) + "\n"
}

// FormatGoals renders goal progress with a completion bar.
func FormatGoals(goals []domain.GoalState) string {
	var b strings.Builder
	done := 0
	for _, g := range goals {
		if g.Done {
			done++
		}
		fmt.Fprintf(&b, "  %s %s\n", Checkbox(g.Done), g.Name)
	}
	return fmt.Sprintf("%s\n%s\n%s", Header("Goals"), "  "+RenderProgress(ratio(done, len(goals)), 20), b.String())
}

// FormatChecklist renders checklist items with a completion bar.
func FormatChecklist(items []domain.ChecklistItemState) string {
	var b strings.Builder
	done := 0
	for _, it := range items {
		if it.Done {
			done++
		}
		fmt.Fprintf(&b, "  %s %s\n", Checkbox(it.Done), it.Name)
		if it.Description != "" {
			fmt.Fprintf(&b, "    %s\n", Dim(it.Description))
		}
	}
	return fmt.Sprintf("%s\n%s\n%s", Header("Checklist"), "  "+RenderProgress(ratio(done, len(items)), 20), b.String())
}

// FormatSignals renders sentiment and keyword signals.
func FormatSignals(s domain.ContextSignals) string {
	keywords := Dim("none yet")
	if len(s.Keywords) > 0 {
		keywords = StylePurple.Render(strings.Join(s.Keywords, ", "))
	}
	rows := [][]string{
		{"Customer sentiment", SentimentIndicator(s.LastCustomerSentiment)},
		{"Agent sentiment", SentimentIndicator(s.LastAgentSentiment)},
		{"Average sentiment", SentimentIndicator(s.AverageSentiment)},
		{"Keywords", keywords},
	}
	return Header("Signals") + "\n" + RenderTable([]string{"SIGNAL", "VALUE"}, rows)
}

// FormatState renders the conversation overview shown by `coach show`.
func FormatState(s engine.State) string {
	var b strings.Builder

	project := s.ProjectID
	if project == "" {
		project = "default"
	}
	fmt.Fprintf(&b, "%s %s  %s\n\n", Bold(s.Persona.Name), Dim(s.Persona.Title), Dim("project: "+project))

	b.WriteString(Header("Conversation") + "\n")
	if len(s.History) == 0 {
		b.WriteString(Dim("  No turns yet. Log one with `coach say`.") + "\n")
	}
	start := max(0, len(s.History)-recentTurns)
	if start > 0 {
		b.WriteString(Dim(fmt.Sprintf("  … %d earlier turns", start)) + "\n")
	}
	for _, turn := range s.History[start:] {
		b.WriteString("  " + FormatTurn(turn) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(FormatGoals(s.Goals) + "\n")
	b.WriteString(FormatChecklist(s.Checklist) + "\n")
	b.WriteString(FormatProposal(s.CurrentProposal))

	if s.Notice != "" {
		b.WriteString(StyleYellow.Render("! "+s.Notice) + "\n")
	}
	if s.LastError != "" {
		b.WriteString(StyleRed.Render("✖ "+s.LastError) + "\n")
	}
	return b.String()
}

// FormatProjects lists stored conversations.
func FormatProjects(infos []repository.SnapshotInfo, now time.Time) string {
	if len(infos) == 0 {
		return Dim("No stored conversations.") + "\n"
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		project := repository.ProjectFromKey(info.Key)
		if project == "" {
			project = Dim("(default)")
		}
		rows = append(rows, []string{project, fmt.Sprintf("%d", info.TurnCount), HumanTimestampFrom(info.UpdatedAt, now)})
	}
	return RenderTable([]string{"PROJECT", "TURNS", "UPDATED"}, rows)
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
