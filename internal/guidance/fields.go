package guidance

import (
	"sort"
	"strings"

	"github.com/vnote-labs/coach/internal/domain"
)

var (
	nextLineKeys = []string{
		"agent_line", "agentLine", "next_agent_line", "nextAgentLine",
		"next_best_thing", "nextBestThing", "next_line", "nextLine",
		"best_next_line", "bestNextLine", "suggestion", "response",
		"line", "text", "message",
	}
	nestedNextLineKeys = []string{"best_next_thing", "bestNextThing", "actions", "guidance"}
	rationaleKeys      = []string{"rationale", "reason", "reasoning", "explanation", "context", "why"}
	followUpKeys       = []string{"follow-ups", "followups", "follow_ups", "followUps", "follow_up_questions", "followUpQuestions"}
	checklistKeys      = []string{"checklist_progress", "checklistProgress", "checklist"}
	goalsKeys          = []string{"goals_progress", "goalsProgress", "goals"}
	replyTypeKeys      = []string{"expected_customer_reply_type", "expectedCustomerReplyType"}
	objectionCatKeys   = []string{"objection_category", "objectionCategory"}
	statusKeys         = []string{"status", "done", "state"}
)

var truthyStatus = map[string]bool{
	"done": true, "complete": true, "completed": true, "achieved": true,
	"finished": true, "yes": true, "true": true,
}

// pickString returns the first non-blank string under keys.
func pickString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

// pickNextLine looks for a next-line field on m, then inside the nested
// sub-objects that historically carried it.
func pickNextLine(m map[string]any, depth int) (string, bool) {
	if s, ok := pickString(m, nextLineKeys...); ok {
		return s, true
	}
	if depth >= MaxUnwrap {
		return "", false
	}
	for _, k := range nestedNextLineKeys {
		if inner, ok := m[k].(map[string]any); ok {
			if s, ok := pickNextLine(inner, depth+1); ok {
				return s, true
			}
		}
	}
	return "", false
}

func toStrings(v any) []string {
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range x {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	return nil
}

func pickStrings(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		if out := toStrings(m[k]); len(out) > 0 {
			return out
		}
	}
	return nil
}

// Truthy reports whether a status value means "done". Booleans are taken as
// is, numbers are done when positive, strings only when they name a
// completed state, and objects are resolved through status, done or state.
// Anything else, including unknown strings, is not done.
func Truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x > 0
	case int:
		return x > 0
	case string:
		return truthyStatus[strings.ToLower(strings.TrimSpace(x))]
	case map[string]any:
		for _, k := range statusKeys {
			if s, ok := x[k]; ok {
				return Truthy(s)
			}
		}
	}
	return false
}

func isStatusValue(v any) bool {
	switch x := v.(type) {
	case bool, float64, int, string:
		return true
	case map[string]any:
		for _, k := range statusKeys {
			if _, ok := x[k]; ok {
				return true
			}
		}
	}
	return false
}

// toChecklist accepts an array of {name, done|status|state, description}
// objects, a map of name to status, or a map of name to status object.
func toChecklist(v any) []domain.ChecklistItemState {
	switch x := v.(type) {
	case []any:
		var out []domain.ChecklistItemState
		for _, item := range x {
			switch it := item.(type) {
			case map[string]any:
				name, ok := pickString(it, "name", "item", "title", "label")
				if !ok {
					continue
				}
				desc, _ := pickString(it, "description", "note")
				out = append(out, domain.ChecklistItemState{
					Name:        strings.TrimSpace(name),
					Done:        Truthy(it),
					Description: strings.TrimSpace(desc),
				})
			case string:
				if s := strings.TrimSpace(it); s != "" {
					out = append(out, domain.ChecklistItemState{Name: s, Done: true})
				}
			}
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			if strings.TrimSpace(k) != "" && isStatusValue(x[k]) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		out := make([]domain.ChecklistItemState, 0, len(keys))
		for _, k := range keys {
			item := domain.ChecklistItemState{Name: strings.TrimSpace(k), Done: Truthy(x[k])}
			if obj, ok := x[k].(map[string]any); ok {
				if desc, ok := pickString(obj, "description", "note"); ok {
					item.Description = strings.TrimSpace(desc)
				}
			}
			out = append(out, item)
		}
		return out
	}
	return nil
}

func pickChecklist(m map[string]any) []domain.ChecklistItemState {
	for _, k := range checklistKeys {
		if out := toChecklist(m[k]); len(out) > 0 {
			return out
		}
	}
	return nil
}

// pickGoals returns the names of goals reported as achieved.
func pickGoals(m map[string]any) []string {
	for _, k := range goalsKeys {
		v, ok := m[k]
		if !ok {
			continue
		}
		if names := toStrings(v); len(names) > 0 {
			return names
		}
		var names []string
		for _, item := range toChecklist(v) {
			if item.Done {
				names = append(names, item.Name)
			}
		}
		if len(names) > 0 {
			return names
		}
	}
	return nil
}

func pickReplyType(m map[string]any) (domain.ReplyType, bool) {
	s, ok := pickString(m, replyTypeKeys...)
	if !ok {
		return "", false
	}
	return domain.ParseReplyType(s)
}

func pickObjection(m map[string]any) *domain.ProposalObjection {
	switch o := m["objection"].(type) {
	case map[string]any:
		out := &domain.ProposalObjection{Suggestions: toStrings(o["suggestions"])}
		if cat, ok := pickString(o, "category", "type"); ok {
			out.Category = strings.ToLower(strings.TrimSpace(cat))
		}
		if d, ok := o["detected"]; ok {
			out.Detected = Truthy(d)
		} else {
			out.Detected = out.Category != ""
		}
		if !out.Detected && out.Category == "" && len(out.Suggestions) == 0 {
			if _, ok := o["detected"]; !ok {
				return nil
			}
		}
		return out
	case string:
		if cat := strings.ToLower(strings.TrimSpace(o)); cat != "" && cat != "none" {
			return &domain.ProposalObjection{Detected: true, Category: cat}
		}
	}
	if cat, ok := pickString(m, objectionCatKeys...); ok {
		return &domain.ProposalObjection{Detected: true, Category: strings.ToLower(strings.TrimSpace(cat))}
	}
	return nil
}
