// Package prompt assembles the coach prompts and sizes the completion request.
package prompt

import (
	"fmt"
	"strings"

	"github.com/vnote-labs/coach/internal/domain"
)

// CoachRules are the guardrails every guidance request carries.
const CoachRules = `You are a sales coach. You NEVER role-play the customer.
Your only job: propose the AGENT's next line based on the latest CUSTOMER input and the conversation state.

Rules:
- Do not write any "Customer:" lines. Ever.
- 1-2 sentences the agent can actually say next.
- Natural, empathetic, concise; discovery-first, permission-based.
- If the last input is unclear, ask one clarifying question the AGENT can say.
- Match the agent's language.
- Output STRICT JSON only (no prose).`

const responseShape = `Respond with a JSON object using these fields:
{
  "agent_line": "the next line for the agent",
  "rationale": "why this line moves the call forward",
  "follow_ups": ["up to three follow-up questions"],
  "goals_progress": ["names of goals this exchange completed"],
  "checklist_progress": [{"name": "checklist item", "done": true}],
  "expected_customer_reply_type": "open_question | yes_no | narrative | selection",
  "objection": {"detected": false, "category": "price | timing | authority | need | risk", "suggestions": []}
}`

// SystemInput is the static knowledge embedded in the system prompt.
type SystemInput struct {
	Persona  domain.Persona
	Plan     domain.SalesPlan
	Script   *domain.Script
	Playbook []domain.ObjectionPlaybookEntry
}

// SystemPrompt renders the persona, plan, script and objection playbook
// followed by the coach rules and response shape.
func SystemPrompt(in SystemInput) string {
	p := in.Persona
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, %s for %s. Your tone is %s and your style is %s. %s\n\n",
		p.Name, p.Title, p.Company, p.Tone, p.Style, p.ElevatorPitch)

	fmt.Fprintf(&b, "Sales strategy: %s\n", in.Plan.Strategy)
	fmt.Fprintf(&b, "Discovery framework pillars: %s\n", strings.Join(in.Plan.DiscoveryFramework, ", "))
	fmt.Fprintf(&b, "Product facts: %s\n", strings.Join(in.Plan.ProductFacts, " | "))
	fmt.Fprintf(&b, "Demo hooks: %s\n", strings.Join(in.Plan.DemoHooks, " | "))
	fmt.Fprintf(&b, "Closing playbook: %s\n\n", strings.Join(in.Plan.ClosingPlaybook, " | "))

	b.WriteString("Guided script outline:\n")
	b.WriteString(describeScript(in.Script))
	b.WriteString("\n\nObjection playbook:\n")
	b.WriteString(describeObjections(in.Playbook))
	b.WriteString("\n\n")

	b.WriteString(CoachRules)
	b.WriteString("\n\n")
	b.WriteString(responseShape)
	b.WriteString("\nKeep guidance concise, actionable, and conversational. Adapt to real-time sentiment and stay aligned to the plan.")
	return b.String()
}

func describeScript(script *domain.Script) string {
	if script == nil || len(script.Sections) == 0 {
		return "Script not provided. Use plan + discovery framework as guidance."
	}
	lines := make([]string, 0, len(script.Sections))
	for _, s := range script.Sections {
		questions := s.Questions
		extra := ""
		if len(questions) > 4 {
			questions = questions[:4]
			extra = "…"
		}
		lines = append(lines, fmt.Sprintf("%s: %s. Focus questions: %s%s",
			s.Title, Truncate(s.Cues, 140), strings.Join(questions, "; "), extra))
	}
	return strings.Join(lines, "\n")
}

func describeObjections(playbook []domain.ObjectionPlaybookEntry) string {
	if len(playbook) == 0 {
		return "(no playbook)"
	}
	lines := make([]string, 0, len(playbook))
	for _, o := range playbook {
		lines = append(lines, fmt.Sprintf("%s: %s. Triggers: %s. Counters: %s. Follow-ups: %s",
			strings.ToUpper(o.Category), o.Summary,
			strings.Join(head(o.Triggers, 3), ", "),
			joinOr(head(o.Counters, 2), " | ", "n/a"),
			joinOr(head(o.FollowUps, 2), " | ", "n/a")))
	}
	return strings.Join(lines, "\n")
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func joinOr(s []string, sep, empty string) string {
	if len(s) == 0 {
		return empty
	}
	return strings.Join(s, sep)
}
