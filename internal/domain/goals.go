package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// GoalState is a named conversation goal. Once Done it stays done.
type GoalState struct {
	Name        string `json:"name" yaml:"name"`
	Done        bool   `json:"done" yaml:"done"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ChecklistItemState is a named checklist milestone. Once Done it stays done.
type ChecklistItemState struct {
	Name        string `json:"name" yaml:"name"`
	Done        bool   `json:"done" yaml:"done"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// NameKey is the case-insensitive identity of a goal or checklist item.
func NameKey(name string) string {
	// A Caser holds state, so one is built per call.
	return cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(name)))
}

// GoalsFromNames builds not-done goals from plain names.
func GoalsFromNames(names []string) []GoalState {
	out := make([]GoalState, 0, len(names))
	for _, n := range names {
		out = append(out, GoalState{Name: n})
	}
	return out
}

// CloneGoals copies a goal slice.
func CloneGoals(goals []GoalState) []GoalState {
	if goals == nil {
		return nil
	}
	out := make([]GoalState, len(goals))
	copy(out, goals)
	return out
}

// CloneChecklist copies a checklist slice.
func CloneChecklist(items []ChecklistItemState) []ChecklistItemState {
	if items == nil {
		return nil
	}
	out := make([]ChecklistItemState, len(items))
	copy(out, items)
	return out
}

// MarkGoalsDone marks every goal whose key appears in names as done. Goals
// that are already done are left alone and unknown names are ignored.
func MarkGoalsDone(goals []GoalState, names []string) []GoalState {
	out := CloneGoals(goals)
	if len(names) == 0 {
		return out
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		if k := NameKey(n); k != "" {
			wanted[k] = true
		}
	}
	for i := range out {
		if wanted[NameKey(out[i].Name)] {
			out[i].Done = true
		}
	}
	return out
}

// MergeGoals merges updates into goals by key. Done is OR-ed, a non-empty
// description overwrites, and unknown names are appended.
func MergeGoals(goals []GoalState, updates []GoalState) []GoalState {
	out := CloneGoals(goals)
	index := make(map[string]int, len(out))
	for i, g := range out {
		index[NameKey(g.Name)] = i
	}
	for _, u := range updates {
		key := NameKey(u.Name)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, GoalState{Name: strings.TrimSpace(u.Name), Done: u.Done, Description: u.Description})
			continue
		}
		out[i].Done = out[i].Done || u.Done
		if u.Description != "" {
			out[i].Description = u.Description
		}
	}
	return out
}

// MergeChecklist merges deltas into items with the same rules as MergeGoals.
func MergeChecklist(items []ChecklistItemState, deltas []ChecklistItemState) []ChecklistItemState {
	out := CloneChecklist(items)
	index := make(map[string]int, len(out))
	for i, it := range out {
		index[NameKey(it.Name)] = i
	}
	for _, d := range deltas {
		key := NameKey(d.Name)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, ChecklistItemState{Name: strings.TrimSpace(d.Name), Done: d.Done, Description: d.Description})
			continue
		}
		out[i].Done = out[i].Done || d.Done
		if d.Description != "" {
			out[i].Description = d.Description
		}
	}
	return out
}
