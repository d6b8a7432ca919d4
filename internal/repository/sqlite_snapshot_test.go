package repository

import (
	"context"
	"testing"
	"time"

	"github.com/vnote-labs/coach/internal/domain"
	"github.com/vnote-labs/coach/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *domain.Snapshot {
	ts := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	return &domain.Snapshot{
		History: []domain.ConversationTurn{
			{ID: "customer-turn-1", Role: domain.RoleCustomer, Text: "It's too expensive.", Timestamp: ts, Sentiment: domain.Float64Ptr(-0.4)},
			{
				ID: "assistant-turn-2", Role: domain.RoleAssistant, Text: "Ask what success looks like.", Timestamp: ts.Add(time.Minute),
				Metadata: &domain.TurnMetadata{Proposal: &domain.Proposal{NextLine: "Ask what success looks like.", Structured: true}},
			},
		},
		Goals:     []domain.GoalState{{Name: "Earn trust", Done: true}},
		Checklist: []domain.ChecklistItemState{{Name: "Confirm agenda"}},
		Persona:   domain.Persona{Name: "Nova"},
		CurrentProposal: &domain.Proposal{
			NextLine:                  "Ask what success looks like.",
			ExpectedCustomerReplyType: domain.ReplyOpenQuestion,
		},
	}
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "vnote.sales.conversation", StorageKey(""))
	assert.Equal(t, "vnote.sales.conversation.acme", StorageKey("acme"))
	assert.Equal(t, "acme", ProjectFromKey(StorageKey("acme")))
	assert.Equal(t, "", ProjectFromKey(StorageKey("")))
	assert.Equal(t, "other", ProjectFromKey("other"))
}

func TestSnapshotRepo_SaveAndLoad(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSnapshotRepo(db)
	ctx := context.Background()

	want := sampleSnapshot()
	require.NoError(t, repo.Save(ctx, StorageKey("acme"), want))

	got, err := repo.Load(ctx, StorageKey("acme"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSnapshotRepo_SaveOverwrites(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSnapshotRepo(db)
	ctx := context.Background()
	key := StorageKey("acme")

	require.NoError(t, repo.Save(ctx, key, sampleSnapshot()))
	require.NoError(t, repo.Save(ctx, key, &domain.Snapshot{Persona: domain.Persona{Name: "Orion"}}))

	got, err := repo.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Orion", got.Persona.Name)
	assert.Empty(t, got.History)
	assert.NotNil(t, got.History)
	assert.Nil(t, got.CurrentProposal)
}

func TestSnapshotRepo_LoadNotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSnapshotRepo(db)

	_, err := repo.Load(context.Background(), StorageKey("missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotRepo_LoadCorrupt(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSnapshotRepo(db)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO conversation_snapshots (key, payload, updated_at) VALUES (?, ?, ?)`,
		StorageKey("bad"), "{not json", "2025-01-01T00:00:00Z")
	require.NoError(t, err)

	_, err = repo.Load(ctx, StorageKey("bad"))
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestSnapshotRepo_Delete(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSnapshotRepo(db)
	ctx := context.Background()
	key := StorageKey("acme")

	require.NoError(t, repo.Save(ctx, key, sampleSnapshot()))
	require.NoError(t, repo.Delete(ctx, key))
	_, err := repo.Load(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, key), "deleting twice is a no-op")
}

func TestSnapshotRepo_ListOrdersByRecency(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSnapshotRepo(db)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	require.NoError(t, repo.Save(ctx, StorageKey("first"), sampleSnapshot()))
	require.NoError(t, repo.Save(ctx, StorageKey(""), &domain.Snapshot{}))
	require.NoError(t, repo.Save(ctx, StorageKey("third"), sampleSnapshot()))

	infos, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, StorageKey("third"), infos[0].Key)
	assert.Equal(t, 2, infos[0].TurnCount)
	assert.Equal(t, base.Add(3*time.Minute), infos[0].UpdatedAt)
	assert.Equal(t, 0, infos[1].TurnCount)

	keys, err := repo.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{StorageKey("third"), StorageKey(""), StorageKey("first")}, keys)
}
