package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vnote-labs/coach/internal/domain"
	"github.com/vnote-labs/coach/internal/knowledge"
	"github.com/vnote-labs/coach/internal/llm"
	"github.com/vnote-labs/coach/internal/repository"
)

// chatCall records one StreamChat invocation.
type chatCall struct {
	Messages []llm.Message
	Opts     llm.ChatOptions
}

// fakeChat replays scripted replies in order. The last reply repeats.
type fakeChat struct {
	mu      sync.Mutex
	replies []func(ctx context.Context) (string, error)
	calls   []chatCall
}

func (f *fakeChat) StreamChat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (string, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, chatCall{Messages: messages, Opts: opts})
	reply := f.replies[min(n, len(f.replies)-1)]
	f.mu.Unlock()

	text, err := reply(ctx)
	if err == nil && opts.OnToken != nil {
		opts.OnToken(text)
	}
	return text, err
}

func (f *fakeChat) Calls() []chatCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chatCall(nil), f.calls...)
}

func reply(text string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return text, nil }
}

func replyErr(err error) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return "", err }
}

func newFakeChat(replies ...func(context.Context) (string, error)) *fakeChat {
	return &fakeChat{replies: replies}
}

// memSnapshotRepo is an in-memory SnapshotRepo.
type memSnapshotRepo struct {
	mu      sync.Mutex
	data    map[string]domain.Snapshot
	saves   int
	loadErr error
}

func newMemSnapshotRepo() *memSnapshotRepo {
	return &memSnapshotRepo{data: make(map[string]domain.Snapshot)}
}

func (m *memSnapshotRepo) Load(_ context.Context, key string) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	s, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("snapshot %s: %w", key, repository.ErrNotFound)
	}
	c := s.Clone()
	return &c, nil
}

func (m *memSnapshotRepo) Save(_ context.Context, key string, s *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = s.Clone()
	m.saves++
	return nil
}

func (m *memSnapshotRepo) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memSnapshotRepo) ListKeys(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *memSnapshotRepo) List(ctx context.Context) ([]repository.SnapshotInfo, error) {
	keys, _ := m.ListKeys(ctx)
	infos := make([]repository.SnapshotInfo, len(keys))
	for i, k := range keys {
		infos[i] = repository.SnapshotInfo{Key: k}
	}
	return infos, nil
}

func (m *memSnapshotRepo) Get(key string) (domain.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[key]
	return s, ok
}

// fakeSink collects artifacts and fails for names listed in fail.
type fakeSink struct {
	mu    sync.Mutex
	files map[string][]byte
	fail  map[string]bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{files: make(map[string][]byte), fail: make(map[string]bool)}
}

func (s *fakeSink) Write(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for suffix := range s.fail {
		if len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix {
			return fmt.Errorf("write %s: sandboxed", name)
		}
	}
	s.files[name] = data
	return nil
}

var testNow = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

type testEngine struct {
	*Engine
	chat  *fakeChat
	store *memSnapshotRepo
	sink  *fakeSink
}

// newTestEngine builds an opened engine over the default knowledge with a
// ticking clock and sequential turn ids.
func newTestEngine(t *testing.T, chat *fakeChat, tweak ...func(*Deps, *Options)) *testEngine {
	t.Helper()
	k := knowledge.Default()

	var mu sync.Mutex
	tick, seq := 0, 0
	deps := Deps{
		Chat:  chat,
		Store: newMemSnapshotRepo(),
		Sink:  newFakeSink(),
		Clock: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick++
			return testNow.Add(time.Duration(tick) * time.Second)
		},
		IDs: func(role domain.Role) string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("%s-turn-%d", role, seq)
		},
	}
	if chat == nil {
		deps.Chat = nil
	}
	opts := Options{Plan: k.Plan, Playbook: k.Playbook}
	for _, fn := range tweak {
		fn(&deps, &opts)
	}

	e := New(deps, opts)
	if deps.Store != nil {
		if err := e.Open(context.Background(), "acme"); err != nil {
			t.Fatalf("open: %v", err)
		}
	}
	t.Cleanup(func() { _ = e.Close() })

	te := &testEngine{Engine: e, chat: chat}
	if s, ok := deps.Store.(*memSnapshotRepo); ok {
		te.store = s
	}
	if s, ok := deps.Sink.(*fakeSink); ok {
		te.sink = s
	}
	return te
}

func userMessage(call chatCall) string {
	return call.Messages[len(call.Messages)-1].Content
}
