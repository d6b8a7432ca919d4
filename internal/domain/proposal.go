package domain

// ProposalObjection describes customer pushback detected by the guidance model.
type ProposalObjection struct {
	Detected    bool     `json:"detected"`
	Category    string   `json:"category,omitempty"`
	Suggestions []string `json:"suggestions"`
}

// Proposal is the canonical "next best thing to say" bundle.
type Proposal struct {
	NextLine                  string               `json:"nextLine"`
	Rationale                 string               `json:"rationale"`
	GoalsProgress             []string             `json:"goalsProgress"`
	ExpectedCustomerReplyType ReplyType            `json:"expectedCustomerReplyType"`
	Objection                 ProposalObjection    `json:"objection"`
	Followups                 []string             `json:"followups"`
	Checklist                 []ChecklistItemState `json:"checklist"`
	Raw                       string               `json:"raw,omitempty"`
	// Structured is false when the model reply carried no recognised fields
	// and NextLine is the raw text.
	Structured bool `json:"structured"`
}

// Clone returns a deep copy of the proposal.
func (p Proposal) Clone() Proposal {
	out := p
	out.GoalsProgress = cloneStrings(p.GoalsProgress)
	out.Followups = cloneStrings(p.Followups)
	out.Checklist = CloneChecklist(p.Checklist)
	out.Objection.Suggestions = cloneStrings(p.Objection.Suggestions)
	return out
}

// CloneProposal copies an optional proposal.
func CloneProposal(p *Proposal) *Proposal {
	if p == nil {
		return nil
	}
	c := p.Clone()
	return &c
}
