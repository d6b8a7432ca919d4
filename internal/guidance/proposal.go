package guidance

import (
	"regexp"
	"strings"

	"github.com/vnote-labs/coach/internal/domain"
	"github.com/vnote-labs/coach/internal/llm"
)

// MaxFollowUps caps follow-up questions carried on a proposal.
const MaxFollowUps = 3

// Response is the structured reply requested from the model in JSON mode.
type Response struct {
	AgentLine                 string                  `json:"agent_line"`
	Rationale                 string                  `json:"rationale"`
	FollowUps                 []string                `json:"follow_ups"`
	GoalsProgress             []string                `json:"goals_progress"`
	ChecklistProgress         []ResponseChecklistItem `json:"checklist_progress"`
	ExpectedCustomerReplyType string                  `json:"expected_customer_reply_type" jsonschema:"enum=open_question,enum=yes_no,enum=narrative,enum=selection"`
	Objection                 ResponseObjection       `json:"objection"`
}

// ResponseChecklistItem is a checklist delta inside Response.
type ResponseChecklistItem struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// ResponseObjection is the objection block inside Response.
type ResponseObjection struct {
	Detected    bool     `json:"detected"`
	Category    string   `json:"category"`
	Suggestions []string `json:"suggestions"`
}

// ResponseSchemaName names ResponseSchema in the request.
const ResponseSchemaName = "coach_guidance"

// ResponseSchema is the strict JSON schema for Response.
var ResponseSchema = llm.GenerateSchema[Response]()

var customerLabel = regexp.MustCompile(`(?i)\bcustomer\s*:`)

// MentionsCustomerLabel reports whether line speaks for the customer.
func MentionsCustomerLabel(line string) bool {
	return customerLabel.MatchString(line)
}

// SanitizeAgentLine collapses whitespace and keeps at most two sentences.
func SanitizeAgentLine(line string) string {
	collapsed := strings.Join(strings.Fields(line), " ")
	if collapsed == "" {
		return ""
	}

	var (
		sentences []string
		buf       strings.Builder
	)
	for _, r := range collapsed {
		buf.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentences = append(sentences, strings.TrimSpace(buf.String()))
			buf.Reset()
			if len(sentences) == 2 {
				break
			}
		}
	}
	if len(sentences) < 2 {
		if rest := strings.TrimSpace(buf.String()); rest != "" {
			sentences = append(sentences, rest)
		}
	}
	return strings.Join(sentences, " ")
}

// ToProposal converts parsed guidance into a Proposal. Follow-ups are
// de-duplicated case-insensitively and capped at MaxFollowUps.
func ToProposal(g Guidance) domain.Proposal {
	p := domain.Proposal{
		NextLine:                  strings.TrimSpace(g.NextBestThing),
		Rationale:                 g.Rationale,
		GoalsProgress:             append([]string{}, g.GoalsProgress...),
		ExpectedCustomerReplyType: g.ReplyType,
		Objection:                 domain.ProposalObjection{Suggestions: []string{}},
		Followups:                 dedupe(g.FollowUps, MaxFollowUps),
		Checklist:                 append([]domain.ChecklistItemState{}, g.Checklist...),
		Raw:                       g.Raw,
		Structured:                g.Parsed,
	}
	if p.ExpectedCustomerReplyType == "" {
		p.ExpectedCustomerReplyType = domain.ReplyOpenQuestion
	}
	if g.Objection != nil {
		p.Objection.Detected = g.Objection.Detected
		p.Objection.Category = g.Objection.Category
		p.Objection.Suggestions = dedupe(g.Objection.Suggestions, 0)
	}
	return p
}

func dedupe(items []string, limit int) []string {
	out := []string{}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := domain.NameKey(item)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
