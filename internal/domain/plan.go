package domain

// Persona is the voice the coach speaks in.
type Persona struct {
	Name          string `json:"name" yaml:"name"`
	Title         string `json:"title" yaml:"title"`
	Tone          string `json:"tone" yaml:"tone"`
	Style         string `json:"style" yaml:"style"`
	Company       string `json:"company" yaml:"company"`
	ElevatorPitch string `json:"elevatorPitch" yaml:"elevator_pitch"`
}

// PlanStage is one step of the sales roadmap.
type PlanStage struct {
	ID         string   `json:"id" yaml:"id"`
	Title      string   `json:"title" yaml:"title"`
	Objective  string   `json:"objective" yaml:"objective"`
	Cues       []string `json:"cues" yaml:"cues"`
	Checkpoint string   `json:"checkpoint" yaml:"checkpoint"`
}

// SalesPlan is supplied by configuration. The engine only relies on
// Persona, Goals and Checklist; the rest feeds the prompt.
type SalesPlan struct {
	Persona            Persona              `json:"persona" yaml:"persona"`
	Strategy           string               `json:"strategy" yaml:"strategy"`
	Tone               string               `json:"tone" yaml:"tone"`
	DiscoveryFramework []string             `json:"discoveryFramework" yaml:"discovery_framework"`
	ProductFacts       []string             `json:"productFacts" yaml:"product_facts"`
	DemoHooks          []string             `json:"demoHooks" yaml:"demo_hooks"`
	ClosingPlaybook    []string             `json:"closingPlaybook" yaml:"closing_playbook"`
	PlanStages         []PlanStage          `json:"planStages" yaml:"plan_stages"`
	Goals              []string             `json:"goals" yaml:"goals"`
	Checklist          []ChecklistItemState `json:"checklist" yaml:"checklist"`
}

// ObjectionPlaybookEntry maps an objection category to triggers and counters.
type ObjectionPlaybookEntry struct {
	Category  string   `json:"category" yaml:"category"`
	Summary   string   `json:"summary" yaml:"summary"`
	Triggers  []string `json:"triggers" yaml:"triggers"`
	Counters  []string `json:"counters" yaml:"counters"`
	FollowUps []string `json:"followUps" yaml:"follow_ups"`
}

// Script is an optional guided discovery script.
type Script struct {
	Title    string          `json:"title" yaml:"title"`
	Sections []ScriptSection `json:"sections" yaml:"sections"`
}

// ScriptSection groups discovery questions under a heading.
type ScriptSection struct {
	Title     string   `json:"title" yaml:"title"`
	Cues      string   `json:"cues" yaml:"cues"`
	Questions []string `json:"questions" yaml:"questions"`
}
