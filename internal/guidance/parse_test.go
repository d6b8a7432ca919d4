package guidance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnote-labs/coach/internal/domain"
)

func envelope(t *testing.T, content string) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"choices": []any{
			map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	require.NoError(t, err)
	return string(b)
}

const flatGuidance = `{"agent_line":"What would a successful pilot look like for your team?","rationale":"Anchors on outcomes.","follow_ups":["Who signs off?","When do you need it live?"]}`

func TestParse_FlatObject(t *testing.T) {
	g := Parse(flatGuidance)

	assert.True(t, g.Parsed)
	assert.Equal(t, "What would a successful pilot look like for your team?", g.NextBestThing)
	assert.Equal(t, "Anchors on outcomes.", g.Rationale)
	assert.Equal(t, []string{"Who signs off?", "When do you need it live?"}, g.FollowUps)
	assert.Equal(t, flatGuidance, g.Raw)
	assert.Equal(t, "guidance_object", g.Kind)
}

func TestParse_TwiceWrappedEnvelope(t *testing.T) {
	flat := Parse(flatGuidance)
	wrapped := Parse(envelope(t, envelope(t, flatGuidance)))

	assert.True(t, wrapped.Parsed)
	assert.Equal(t, flat.NextBestThing, wrapped.NextBestThing)
	assert.Equal(t, flat.Rationale, wrapped.Rationale)
	assert.Equal(t, flat.FollowUps, wrapped.FollowUps)
	assert.Equal(t, flatGuidance, wrapped.Raw)
}

func TestParse_DecodedEnvelopeAndBytes(t *testing.T) {
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(envelope(t, flatGuidance)), &decoded))

	assert.Equal(t, Parse(flatGuidance).NextBestThing, Parse(decoded).NextBestThing)
	assert.Equal(t, Parse(flatGuidance).NextBestThing, Parse([]byte(flatGuidance)).NextBestThing)
}

func TestParse_MessageEnvelope(t *testing.T) {
	g := Parse(map[string]any{"message": map[string]any{"role": "assistant", "content": `{"nextLine":"Shall we book a demo?"}`}})

	assert.True(t, g.Parsed)
	assert.Equal(t, "Shall we book a demo?", g.NextBestThing)
}

func TestParse_PlainText(t *testing.T) {
	text := "Keep the momentum by asking when they can sign."
	g := Parse(text)

	assert.False(t, g.Parsed)
	assert.Equal(t, text, g.NextBestThing)
	assert.Equal(t, text, g.Raw)
	assert.Empty(t, g.Rationale)
	assert.Nil(t, g.FollowUps)
	assert.Nil(t, g.Checklist)
}

func TestParse_JSONWithoutFieldsIsNotParsed(t *testing.T) {
	raw := `{"foo":1,"bar":[true]}`
	g := Parse(raw)

	assert.False(t, g.Parsed)
	assert.Equal(t, raw, g.NextBestThing)
}

func TestParse_MalformedJSONFallsBack(t *testing.T) {
	raw := `{"agent_line": "unterminated`
	g := Parse(raw)

	assert.False(t, g.Parsed)
	assert.Equal(t, raw, g.NextBestThing)
}

func TestParse_EnvelopeWithPlainContent(t *testing.T) {
	g := Parse(envelope(t, "Ask who else is involved."))

	assert.False(t, g.Parsed)
	assert.Equal(t, "Ask who else is involved.", g.NextBestThing)
	assert.Equal(t, "Ask who else is involved.", g.Raw)
}

func TestParse_UnwrapLimit(t *testing.T) {
	inner := `{"agent_line":"deep"}`

	four := inner
	for i := 0; i < MaxUnwrap; i++ {
		four = envelope(t, four)
	}
	g := Parse(four)
	assert.True(t, g.Parsed)
	assert.Equal(t, "deep", g.NextBestThing)

	five := envelope(t, four)
	g = Parse(five)
	assert.False(t, g.Parsed)
	assert.Equal(t, envelope(t, inner), g.NextBestThing)
}

func TestParse_CodeFence(t *testing.T) {
	g := Parse("```json\n{\"next_best_thing\":\"Confirm the budget owner.\"}\n```")

	assert.True(t, g.Parsed)
	assert.Equal(t, "Confirm the budget owner.", g.NextBestThing)
}

func TestParse_ObjectInsideProseWithComments(t *testing.T) {
	g := Parse("Here is my suggestion:\n{\n  \"agent_line\": \"Who else weighs in on budget?\", // keep it short\n  \"rationale\": \"Map the buying group.\"\n}\nGood luck!")

	assert.True(t, g.Parsed)
	assert.True(t, g.HasNextLine)
	assert.Equal(t, "Who else weighs in on budget?", g.NextBestThing)
	assert.Equal(t, "Map the buying group.", g.Rationale)
}

func TestParse_StructuredWithoutNextLine(t *testing.T) {
	raw := `{"rationale":"Budget confirmed","goals_progress":["Qualify budget"]}`
	g := Parse(raw)

	assert.True(t, g.Parsed)
	assert.False(t, g.HasNextLine)
	assert.NotNil(t, g.Source)
	assert.Equal(t, raw, g.NextBestThing)
}

func TestParse_PlainTextWithBraces(t *testing.T) {
	text := "Mention the {pilot} offer before pricing."
	g := Parse(text)

	assert.False(t, g.Parsed)
	assert.Nil(t, g.Source)
	assert.Equal(t, text, g.NextBestThing)
}

func TestParse_NestedGuidanceObject(t *testing.T) {
	raw := `{"guidance":{"next_best_thing":"Ask about their timeline","rationale":"Timing keeps the deal moving.","follow-ups":["Would milestones help?"],"checklist_progress":{"discovery":true}}}`
	g := Parse(raw)

	assert.True(t, g.Parsed)
	assert.Equal(t, "nested_guidance", g.Kind)
	assert.Equal(t, "Ask about their timeline", g.NextBestThing)
	assert.Equal(t, "Timing keeps the deal moving.", g.Rationale)
	assert.Equal(t, []string{"Would milestones help?"}, g.FollowUps)
	assert.Equal(t, []domain.ChecklistItemState{{Name: "discovery", Done: true}}, g.Checklist)
}

func TestParse_NestedBestNextThing(t *testing.T) {
	g := Parse(`{"best_next_thing":{"actions":{"line":"Offer a trial extension."}}}`)

	assert.True(t, g.Parsed)
	assert.Equal(t, "Offer a trial extension.", g.NextBestThing)
}

func TestParse_FieldVariantPrecedence(t *testing.T) {
	g := Parse(`{"text":"generic","agentLine":"specific","why":"because"}`)

	assert.Equal(t, "specific", g.NextBestThing)
	assert.Equal(t, "because", g.Rationale)
}

func TestParse_ChecklistShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []domain.ChecklistItemState
	}{
		{
			name: "array of objects",
			raw:  `{"checklist_progress":[{"name":"Agenda","done":true},{"name":"Budget","status":"pending","description":"Ask CFO"}]}`,
			want: []domain.ChecklistItemState{{Name: "Agenda", Done: true}, {Name: "Budget", Description: "Ask CFO"}},
		},
		{
			name: "map of statuses",
			raw:  `{"checklistProgress":{"Agenda":"Completed","Budget":"maybe later","Pain":1,"Risk":0}}`,
			want: []domain.ChecklistItemState{{Name: "Agenda", Done: true}, {Name: "Budget"}, {Name: "Pain", Done: true}, {Name: "Risk"}},
		},
		{
			name: "map of status objects",
			raw:  `{"checklist":{"Agenda":{"state":"achieved"},"Budget":{"done":false},"Pain":{"status":"yes"}}}`,
			want: []domain.ChecklistItemState{{Name: "Agenda", Done: true}, {Name: "Budget"}, {Name: "Pain", Done: true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Parse(tt.raw)
			assert.True(t, g.Parsed)
			assert.Equal(t, tt.want, g.Checklist)
		})
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{true, 1.0, 2, "done", "COMPLETE", " completed ", "achieved", "finished", "yes", "true", map[string]any{"status": "done"}} {
		assert.True(t, Truthy(v), "%v", v)
	}
	for _, v := range []any{false, 0.0, -1.0, "", "pending", "in progress", "no", "unknown", nil, []any{true}, map[string]any{"other": true}} {
		assert.False(t, Truthy(v), "%v", v)
	}
}

func TestParse_GoalsReplyTypeAndObjection(t *testing.T) {
	g := Parse(`{
		"agent_line": "Totally fair. What budget range were you planning for?",
		"goals_progress": {"Quantify impact": "done", "Book demo": "pending"},
		"expected_customer_reply_type": "Narrative",
		"objection": {"detected": true, "category": "Price", "suggestions": ["Anchor on ROI", "anchor on roi"]}
	}`)

	require.True(t, g.Parsed)
	assert.Equal(t, []string{"Quantify impact"}, g.GoalsProgress)
	assert.Equal(t, domain.ReplyNarrative, g.ReplyType)
	require.NotNil(t, g.Objection)
	assert.True(t, g.Objection.Detected)
	assert.Equal(t, "price", g.Objection.Category)

	p := ToProposal(g)
	assert.Equal(t, []string{"Anchor on ROI"}, p.Objection.Suggestions)
}

func TestParse_ObjectionCategoryShortcut(t *testing.T) {
	g := Parse(`{"nextLine":"Understood.","objection_category":"timing"}`)

	require.NotNil(t, g.Objection)
	assert.True(t, g.Objection.Detected)
	assert.Equal(t, "timing", g.Objection.Category)
}

func TestParse_GoalsAsList(t *testing.T) {
	g := Parse(`{"goalsProgress":["Confirm agenda", "  "]}`)

	assert.True(t, g.Parsed)
	assert.Equal(t, []string{"Confirm agenda"}, g.GoalsProgress)
}
