package domain

// Snapshot is the persisted conversation state for one project.
type Snapshot struct {
	History         []ConversationTurn   `json:"history"`
	Goals           []GoalState          `json:"goals"`
	Checklist       []ChecklistItemState `json:"checklist"`
	Persona         Persona              `json:"persona"`
	CurrentProposal *Proposal            `json:"currentProposal"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		History:         CloneHistory(s.History),
		Goals:           CloneGoals(s.Goals),
		Checklist:       CloneChecklist(s.Checklist),
		Persona:         s.Persona,
		CurrentProposal: CloneProposal(s.CurrentProposal),
	}
}
