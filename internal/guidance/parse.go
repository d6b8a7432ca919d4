package guidance

import (
	"encoding/json"
	"strings"

	"github.com/vnote-labs/coach/internal/domain"
)

// Guidance is the normalized reading of one model reply.
type Guidance struct {
	NextBestThing string
	// HasNextLine is true when NextBestThing came from a next-line field
	// rather than the raw fallback.
	HasNextLine bool
	Rationale     string
	FollowUps     []string
	Checklist     []domain.ChecklistItemState
	GoalsProgress []string
	ReplyType     domain.ReplyType
	Objection     *domain.ProposalObjection
	// Parsed is true when any recognised field was recovered. JSON that
	// decodes but carries none of them is not Parsed.
	Parsed bool
	// Raw is the last text seen while unwrapping, used as the fallback line.
	Raw string
	// Source is the object fields were read from, if any.
	Source map[string]any
	Kind   string
}

// Parse normalizes input, which may be a string, []byte, decoded JSON, or
// any JSON-marshalable value. It never fails; unrecognised input falls back
// to the raw text with Parsed false.
func Parse(input any) Guidance {
	d := unwrap(input)
	g := Guidance{Raw: d.raw, Kind: d.kind.String()}

	if d.obj != nil {
		g.Source = d.obj
		readFields(&g, d.obj)
		if !g.Parsed && d.outer != nil {
			// Fields may sit beside an empty or partial "guidance" object.
			readFields(&g, d.outer)
		}
		if g.Raw == "" {
			if b, err := json.Marshal(d.obj); err == nil {
				g.Raw = string(b)
			}
		}
	}

	if g.NextBestThing == "" {
		g.NextBestThing = g.Raw
	}
	return g
}

func readFields(g *Guidance, m map[string]any) {
	if s, ok := pickNextLine(m, 0); ok {
		g.NextBestThing = s
		g.HasNextLine = true
		g.Parsed = true
	}
	if s, ok := pickString(m, rationaleKeys...); ok {
		g.Rationale = strings.TrimSpace(s)
		g.Parsed = true
	}
	if f := pickStrings(m, followUpKeys...); len(f) > 0 {
		g.FollowUps = f
		g.Parsed = true
	}
	if c := pickChecklist(m); len(c) > 0 {
		g.Checklist = c
		g.Parsed = true
	}
	if goals := pickGoals(m); len(goals) > 0 {
		g.GoalsProgress = goals
		g.Parsed = true
	}
	if rt, ok := pickReplyType(m); ok {
		g.ReplyType = rt
		g.Parsed = true
	}
	if o := pickObjection(m); o != nil {
		g.Objection = o
		g.Parsed = true
	}
}
