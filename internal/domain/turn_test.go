package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendTurn_EvictsOldestFirst(t *testing.T) {
	var history []ConversationTurn
	for i := 0; i < MaxHistoryEntries+25; i++ {
		history = AppendTurn(history, ConversationTurn{ID: fmt.Sprintf("t-%d", i), Role: RoleCustomer})
	}

	require.Len(t, history, MaxHistoryEntries)
	assert.Equal(t, "t-25", history[0].ID)
	assert.Equal(t, fmt.Sprintf("t-%d", MaxHistoryEntries+24), history[len(history)-1].ID)
	for i := 1; i < len(history); i++ {
		var prev, cur int
		fmt.Sscanf(history[i-1].ID, "t-%d", &prev)
		fmt.Sscanf(history[i].ID, "t-%d", &cur)
		assert.Equal(t, prev+1, cur)
	}
}

func TestConversationTurn_CloneIsDeep(t *testing.T) {
	orig := ConversationTurn{
		ID:        "a",
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		Sentiment: Float64Ptr(0.5),
		Metadata: &TurnMetadata{
			Tags:     []string{"x"},
			Proposal: &Proposal{NextLine: "hi", Followups: []string{"f"}},
		},
	}

	c := orig.Clone()
	*c.Sentiment = -1
	c.Metadata.Tags[0] = "y"
	c.Metadata.Proposal.Followups[0] = "g"
	c.Metadata.ObjectionCategory = "price"

	assert.Equal(t, 0.5, *orig.Sentiment)
	assert.Equal(t, "x", orig.Metadata.Tags[0])
	assert.Equal(t, "f", orig.Metadata.Proposal.Followups[0])
	assert.Empty(t, orig.Metadata.ObjectionCategory)
}

func TestLastTurnOfRole(t *testing.T) {
	history := []ConversationTurn{
		{Role: RoleCustomer}, {Role: RoleAgent}, {Role: RoleCustomer}, {Role: RoleAssistant},
	}
	assert.Equal(t, 2, LastTurnOfRole(history, RoleCustomer, len(history)-1))
	assert.Equal(t, 0, LastTurnOfRole(history, RoleCustomer, 1))
	assert.Equal(t, -1, LastTurnOfRole(history, RoleAssistant, 2))
	assert.Equal(t, -1, LastTurnOfRole(nil, RoleAgent, 0))
}

func TestParseReplyType(t *testing.T) {
	rt, ok := ParseReplyType("Yes_No")
	assert.True(t, ok)
	assert.Equal(t, ReplyYesNo, rt)

	_, ok = ParseReplyType("interpretive dance")
	assert.False(t, ok)
}

func TestTurnMetadata_Objection(t *testing.T) {
	var nilMeta *TurnMetadata
	assert.Empty(t, nilMeta.Objection())

	assert.Equal(t, "price", (&TurnMetadata{Tags: []string{"vip", ObjectionTagPrefix + "price"}}).Objection())
	assert.Equal(t, "timing", (&TurnMetadata{ObjectionCategory: "timing", Tags: []string{ObjectionTagPrefix + "price"}}).Objection())
	assert.Empty(t, (&TurnMetadata{Tags: []string{"vip"}}).Objection())
}
