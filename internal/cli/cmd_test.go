package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnote-labs/coach/internal/engine"
	"github.com/vnote-labs/coach/internal/knowledge"
	"github.com/vnote-labs/coach/internal/llm"
	"github.com/vnote-labs/coach/internal/repository"
	"github.com/vnote-labs/coach/internal/testutil"
)

const guidanceReply = `{"agent_line": "What would a 90-day pilot need to prove?", "rationale": "Move toward a pilot.", "followups": ["Who signs off?"], "objection": {"detected": true, "category": "price", "suggestions": ["Anchor the ROI"]}}`

// scriptedChat returns the same reply for every request.
type scriptedChat struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (s *scriptedChat) StreamChat(_ context.Context, _ []llm.Message, opts llm.ChatOptions) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if opts.OnToken != nil {
		opts.OnToken(s.reply)
	}
	return s.reply, nil
}

type testEnv struct {
	app   *App
	chat  *scriptedChat
	repo  *repository.SQLiteSnapshotRepo
	coach *engine.Engine
}

// newTestEnv wires an App around a real engine backed by an in-memory DB.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := repository.NewSQLiteSnapshotRepo(testutil.NewTestDB(t))
	chat := &scriptedChat{reply: guidanceReply}
	k := knowledge.Default()

	coach := engine.New(engine.Deps{Chat: chat, Store: repo}, engine.Options{Plan: k.Plan, Playbook: k.Playbook})
	t.Cleanup(func() { _ = coach.Close() })

	return &testEnv{
		app: &App{
			Coach:     coach,
			Snapshots: repo,
			ExportDir: t.TempDir(),
		},
		chat:  chat,
		repo:  repo,
		coach: coach,
	}
}

// executeCmd runs a cobra command and captures stdout and stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd(app)
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestSayCmd_LogsCustomerByDefault(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := executeCmd(t, env.app, "say", "The", "pricing", "is", "too", "high")
	require.NoError(t, err)
	assert.Contains(t, out, "CUSTOMER")
	assert.Contains(t, out, "The pricing is too high")
	assert.Contains(t, out, "[price]")

	snap, err := env.repo.Load(context.Background(), repository.StorageKey(""))
	require.NoError(t, err)
	require.Len(t, snap.History, 1)
	assert.Equal(t, "The pricing is too high", snap.History[0].Text)
}

func TestSayCmd_Agent(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := executeCmd(t, env.app, "say", "--as", "agent", "Thanks for joining")
	require.NoError(t, err)
	assert.Contains(t, out, "AGENT")
}

func TestSayCmd_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := executeCmd(t, env.app, "say", "--as", "assistant", "hello")
	assert.ErrorContains(t, err, "must be customer or agent")

	_, _, err = executeCmd(t, env.app, "say", "   ")
	assert.ErrorIs(t, err, errBlankUtterance)

	_, _, err = executeCmd(t, env.app, "say")
	assert.Error(t, err)
}

func TestProjectFlag_SeparatesConversations(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := executeCmd(t, env.app, "--project", "acme", "say", "We need SSO")
	require.NoError(t, err)

	out, _, err := executeCmd(t, env.app, "-p", "globex", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "We need SSO")

	out, _, err = executeCmd(t, env.app, "-p", "acme", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "We need SSO")
	assert.Contains(t, out, "project: acme")
}

func TestProposeCmd(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := executeCmd(t, env.app, "say", "Budget is tight this quarter")
	require.NoError(t, err)

	out, stderr, err := executeCmd(t, env.app, "propose")
	require.NoError(t, err)
	assert.Contains(t, out, "What would a 90-day pilot need to prove?")
	assert.Contains(t, out, "Who signs off?")
	assert.Contains(t, out, "Objection: price")
	assert.Empty(t, stderr)

	state := env.coach.State()
	require.NotNil(t, state.CurrentProposal)
	assert.Equal(t, "What would a 90-day pilot need to prove?", state.CurrentProposal.NextLine)
}

func TestProposeCmd_StreamsTokensToStderr(t *testing.T) {
	env := newTestEnv(t)
	env.app.StreamTokens = true
	_, _, err := executeCmd(t, env.app, "say", "Budget is tight")
	require.NoError(t, err)

	_, stderr, err := executeCmd(t, env.app, "propose")
	require.NoError(t, err)
	assert.Equal(t, guidanceReply+"\n", stderr)
}

func TestProposeCmd_NeedsCustomerMessage(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := executeCmd(t, env.app, "propose")
	assert.ErrorIs(t, err, engine.ErrNoCustomerContext)
	assert.Zero(t, env.chat.calls)
}

func TestProposeCmd_ObjectionFlagNeedsNoHistory(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := executeCmd(t, env.app, "propose", "--objection", "Too expensive")
	require.NoError(t, err)
	assert.Contains(t, out, "pilot")
}

func TestProposeCmd_InvalidMode(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := executeCmd(t, env.app, "propose", "--mode", "closing")
	assert.ErrorContains(t, err, "invalid --mode")
}

func TestProposeCmd_TransportFailure(t *testing.T) {
	env := newTestEnv(t)
	env.chat.err = errors.New("connection refused")
	_, _, err := executeCmd(t, env.app, "say", "hello there")
	require.NoError(t, err)

	_, _, err = executeCmd(t, env.app, "propose")
	require.Error(t, err)

	out, _, err := executeCmd(t, env.app, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No proposal yet")
}

func TestObjectionCmd_UsesLastCustomerMessage(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := executeCmd(t, env.app, "say", "This costs too much")
	require.NoError(t, err)

	out, _, err := executeCmd(t, env.app, "objection")
	require.NoError(t, err)
	assert.Contains(t, out, "Anchor the ROI")
}

func TestInsertCmd(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := executeCmd(t, env.app, "insert")
	assert.ErrorIs(t, err, engine.ErrNoProposal)

	_, _, err = executeCmd(t, env.app, "say", "Budget is tight")
	require.NoError(t, err)
	_, _, err = executeCmd(t, env.app, "propose")
	require.NoError(t, err)

	out, _, err := executeCmd(t, env.app, "insert")
	require.NoError(t, err)
	assert.Contains(t, out, "AGENT")
	assert.Contains(t, out, "What would a 90-day pilot need to prove?")
	assert.Nil(t, env.coach.State().CurrentProposal)
}

func TestShowCmd_Defaults(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := executeCmd(t, env.app, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Nova")
	assert.Contains(t, out, "No turns yet")
	assert.Contains(t, out, "GOALS")
	assert.Contains(t, out, "CHECKLIST")
}

func TestSignalsCmd(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := executeCmd(t, env.app, "say", "I love how simple the onboarding looks")
	require.NoError(t, err)

	out, _, err := executeCmd(t, env.app, "signals")
	require.NoError(t, err)
	assert.Contains(t, out, "Customer sentiment")
	assert.Contains(t, out, "▲")
}

func TestResetCmd_NonInteractiveNeedsYes(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := executeCmd(t, env.app, "say", "hello there")
	require.NoError(t, err)

	_, _, err = executeCmd(t, env.app, "reset")
	assert.ErrorIs(t, err, errResetNeedsYes)
	assert.Len(t, env.coach.State().History, 1)

	out, _, err := executeCmd(t, env.app, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Conversation reset.")
	assert.Empty(t, env.coach.State().History)

	_, err = env.repo.Load(context.Background(), repository.StorageKey(""))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestResetCmd_InteractiveConfirm(t *testing.T) {
	env := newTestEnv(t)
	env.app.IsInteractive = func() bool { return true }
	answer := false
	var asked string
	env.app.Confirm = func(title string) (bool, error) {
		asked = title
		return answer, nil
	}
	_, _, err := executeCmd(t, env.app, "say", "hello there")
	require.NoError(t, err)

	out, _, err := executeCmd(t, env.app, "reset")
	require.NoError(t, err)
	assert.NotEmpty(t, asked)
	assert.Contains(t, out, "Reset cancelled.")
	assert.Len(t, env.coach.State().History, 1)

	answer = true
	_, _, err = executeCmd(t, env.app, "reset")
	require.NoError(t, err)
	assert.Empty(t, env.coach.State().History)
}

func TestExportCmd(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := executeCmd(t, env.app, "say", "hello there")
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	out, _, err := executeCmd(t, env.app, "export", "--dir", dir)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.True(t, strings.HasPrefix(e.Name(), "vnote-conversation-"))
		assert.Contains(t, out, e.Name())
	}
}

func TestExportCmd_DefaultDir(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := executeCmd(t, env.app, "export")
	require.NoError(t, err)

	entries, err := os.ReadDir(env.app.ExportDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestTranscriptCmd_Raw(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := executeCmd(t, env.app, "say", "hello there")
	require.NoError(t, err)

	out, _, err := executeCmd(t, env.app, "transcript")
	require.NoError(t, err)
	assert.Contains(t, out, "# VNote Conversation Transcript")
	assert.Contains(t, out, "**Customer (")
	assert.Contains(t, out, "hello there")
}

func TestProjectsCmd(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := executeCmd(t, env.app, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "No stored conversations")

	_, _, err = executeCmd(t, env.app, "-p", "acme", "say", "hello there")
	require.NoError(t, err)

	out, _, err = executeCmd(t, env.app, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "PROJECT")
}

func TestTranscriptCmd_InteractiveRendersMarkdown(t *testing.T) {
	env := newTestEnv(t)
	env.app.IsInteractive = func() bool { return true }
	env.app.Width = func() int { return 60 }
	_, _, err := executeCmd(t, env.app, "say", "hello there")
	require.NoError(t, err)

	out, _, err := executeCmd(t, env.app, "transcript")
	require.NoError(t, err)
	assert.Contains(t, out, "VNote Conversation Transcript")
	assert.Contains(t, out, "hello there")
}
