package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/act-dev-25/agents/internal/domain"
	"github.com/act-dev-25/agents/internal/logging"
	"github.com/act-dev-25/agents/internal/store"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

type fixture struct {
	hist  *History
	kv    *store.MemoryKV
	mu    sync.Mutex
	clock time.Time
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		kv:    store.NewMemoryKV(),
		clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.hist = NewHistory(f.kv, ttl, testLogger())
	f.hist.SetNow(f.now)
	f.kv.SetNow(f.now)
	return f
}

func (f *fixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(d)
}

func userMsg(text string) domain.Message {
	return domain.Message{Role: domain.RoleUser, Content: text}
}

func TestHistory_CreateAndGet(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	rec, err := f.hist.Create(ctx, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, rec.ChatID)

	got, err := f.hist.Get(ctx, rec.ChatID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, 0, got.MessageCount)
}

func TestHistory_AppendUpdatesMetadata(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	rec, err := f.hist.Create(ctx, "u1")
	require.NoError(t, err)

	pos, err := f.hist.Append(ctx, rec.ChatID, userMsg("hello"))
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	f.advance(time.Minute)
	pos, err = f.hist.Append(ctx, rec.ChatID, userMsg("again"))
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	got, err := f.hist.Get(ctx, rec.ChatID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)
	assert.Equal(t, f.now(), got.UpdatedAt)
}

func TestHistory_AppendUnknownChat(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.hist.Append(context.Background(), "nope", userMsg("hello"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistory_AppendFillsMessageDefaults(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	rec, err := f.hist.Create(ctx, "u1")
	require.NoError(t, err)

	_, err = f.hist.Append(ctx, rec.ChatID, domain.Message{Role: domain.RoleUser, Content: "hi"})
	require.NoError(t, err)

	msgs, err := f.hist.Recent(ctx, rec.ChatID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.NotEmpty(t, msgs[0].ID)
	assert.Equal(t, f.now(), msgs[0].Timestamp)
}

func TestHistory_AppendTracksSpecialists(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	rec, err := f.hist.Create(ctx, "u1")
	require.NoError(t, err)

	reply := domain.Message{
		Role:     domain.SpecialistRole("veteran"),
		Content:  "here to help",
		Metadata: map[string]string{domain.MetadataSpecialist: "veteran"},
	}
	_, err = f.hist.Append(ctx, rec.ChatID, reply)
	require.NoError(t, err)

	got, err := f.hist.Get(ctx, rec.ChatID)
	require.NoError(t, err)
	assert.True(t, got.HasSpecialist("veteran"))

	// Appending the same specialist again does not duplicate it.
	_, err = f.hist.Append(ctx, rec.ChatID, reply)
	require.NoError(t, err)
	got, err = f.hist.Get(ctx, rec.ChatID)
	require.NoError(t, err)
	assert.Equal(t, []string{"veteran"}, got.ActiveSpecialists)
}

func TestHistory_RecentOrderAndLimit(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	rec, err := f.hist.Create(ctx, "u1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = f.hist.Append(ctx, rec.ChatID, userMsg(fmt.Sprintf("m%d", i)))
		require.NoError(t, err)
	}

	last3, err := f.hist.Recent(ctx, rec.ChatID, 3)
	require.NoError(t, err)
	require.Len(t, last3, 3)
	assert.Equal(t, "m2", last3[0].Content)
	assert.Equal(t, "m4", last3[2].Content)

	all, err := f.hist.Recent(ctx, rec.ChatID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestHistory_RecentEmptyChat(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	rec, err := f.hist.Create(ctx, "u1")
	require.NoError(t, err)

	msgs, err := f.hist.Recent(ctx, rec.ChatID, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestHistory_ActivityReArmsRetention(t *testing.T) {
	f := newFixture(t, 30*24*time.Hour)
	ctx := context.Background()

	rec, err := f.hist.Create(ctx, "u1")
	require.NoError(t, err)
	_, err = f.hist.Append(ctx, rec.ChatID, userMsg("first"))
	require.NoError(t, err)

	// Activity on day 29 keeps the chat through day 58.
	f.advance(29 * 24 * time.Hour)
	_, err = f.hist.Append(ctx, rec.ChatID, userMsg("still here"))
	require.NoError(t, err)

	f.advance(29 * 24 * time.Hour)
	msgs, err := f.hist.Recent(ctx, rec.ChatID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2, "transcript survives with metadata")
	_, err = f.hist.Get(ctx, rec.ChatID)
	require.NoError(t, err)

	f.advance(2 * 24 * time.Hour)
	_, err = f.hist.Get(ctx, rec.ChatID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistory_ListChatsPrunesStale(t *testing.T) {
	f := newFixture(t, 30*24*time.Hour)
	ctx := context.Background()

	old, err := f.hist.Create(ctx, "u1")
	require.NoError(t, err)

	f.advance(20 * 24 * time.Hour)
	fresh, err := f.hist.Create(ctx, "u1")
	require.NoError(t, err)

	f.advance(15 * 24 * time.Hour)
	live, err := f.hist.ListChats(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, fresh.ChatID, live[0].ChatID)

	ids, err := f.kv.Members(ctx, "user:u1:chats")
	require.NoError(t, err)
	assert.NotContains(t, ids, old.ChatID)
}

func TestHistory_ConcurrentAppendsConsistentCount(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	rec, err := f.hist.Create(ctx, "u1")
	require.NoError(t, err)

	const writers = 8
	const perWriter = 10

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := f.hist.Append(ctx, rec.ChatID, userMsg(fmt.Sprintf("w%d-%d", w, i)))
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	got, err := f.hist.Get(ctx, rec.ChatID)
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, got.MessageCount)

	msgs, err := f.hist.Recent(ctx, rec.ChatID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, writers*perWriter)
}
