package domain

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleAgent     Role = "agent"
	RoleCustomer  Role = "customer"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAgent, RoleCustomer, RoleAssistant:
		return true
	default:
		return false
	}
}

// ReplyType classifies the shape of answer the agent's next line is expected to draw out.
type ReplyType string

const (
	ReplyOpenQuestion ReplyType = "open_question"
	ReplyYesNo        ReplyType = "yes_no"
	ReplyNarrative    ReplyType = "narrative"
	ReplySelection    ReplyType = "selection"
)

// ParseReplyType maps loose model output onto a ReplyType. Unknown values
// yield ("", false).
func ParseReplyType(s string) (ReplyType, bool) {
	switch ReplyType(NameKey(s)) {
	case ReplyOpenQuestion, "open", "open-question", "openquestion":
		return ReplyOpenQuestion, true
	case ReplyYesNo, "yes-no", "yesno", "closed":
		return ReplyYesNo, true
	case ReplyNarrative, "story":
		return ReplyNarrative, true
	case ReplySelection, "choice", "multiple_choice":
		return ReplySelection, true
	default:
		return "", false
	}
}

// ProposalMode selects the directive used when asking for guidance.
type ProposalMode string

const (
	ModeDefault   ProposalMode = "default"
	ModeObjection ProposalMode = "objection"
)
