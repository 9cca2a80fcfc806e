// Package chat persists conversation records and their message logs.
// Each chat holds two keys: chat:{id} for metadata and
// chat:{id}:messages for the append-only transcript, both on a shared
// retention TTL that re-arms whenever the chat sees activity.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/act-dev-25/agents/internal/domain"
	"github.com/act-dev-25/agents/internal/logging"
	"github.com/act-dev-25/agents/internal/store"
)

// DefaultTTL is how long an idle chat is retained.
const DefaultTTL = 30 * 24 * time.Hour

// History owns the chat keyspace on a KV store.
type History struct {
	kv  store.KV
	ttl time.Duration
	log *logging.Logger
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewHistory(kv store.KV, ttl time.Duration, log *logging.Logger) *History {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &History{
		kv:    kv,
		ttl:   ttl,
		log:   log.Sub("chat"),
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// SetNow overrides the history's clock. Tests only.
func (h *History) SetNow(now func() time.Time) { h.now = now }

func chatKey(id string) string     { return "chat:" + id }
func messagesKey(id string) string { return "chat:" + id + ":messages" }
func userChatsKey(uid string) string {
	return "user:" + uid + ":chats"
}

// chatLock serializes appends to one chat so the read-modify-write of
// its metadata cannot interleave.
func (h *History) chatLock(chatID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		h.locks[chatID] = l
	}
	return l
}

// Create starts a new chat for userID and indexes it.
func (h *History) Create(ctx context.Context, userID string) (*domain.ChatRecord, error) {
	now := h.now()
	rec := &domain.ChatRecord{
		ChatID:    uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.save(ctx, rec); err != nil {
		return nil, err
	}
	if err := h.kv.AddToSet(ctx, userChatsKey(userID), rec.ChatID); err != nil {
		return nil, fmt.Errorf("index chat: %w", err)
	}
	h.log.Debug().Str("chat_id", rec.ChatID).Str("user_id", userID).Msg("chat created")
	return rec, nil
}

// Get loads chat metadata. Expired and unknown chats both return
// ErrNotFound.
func (h *History) Get(ctx context.Context, chatID string) (*domain.ChatRecord, error) {
	raw, ok, err := h.kv.Get(ctx, chatKey(chatID))
	if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	var rec domain.ChatRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode chat %s: %w", chatID, err)
	}
	return &rec, nil
}

// Append adds msg to the chat's transcript and updates the metadata in
// step: MessageCount, UpdatedAt, and any specialist named in the
// message's metadata. Both keys get the retention TTL re-armed.
// Returns the message's position in the transcript.
func (h *History) Append(ctx context.Context, chatID string, msg domain.Message) (int, error) {
	lock := h.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := h.Get(ctx, chatID)
	if err != nil {
		return 0, err
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = h.now()
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("encode message: %w", err)
	}

	pos, err := h.kv.Append(ctx, messagesKey(chatID), raw, h.ttl)
	if err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}

	rec.MessageCount++
	if now := h.now(); now.After(rec.UpdatedAt) {
		rec.UpdatedAt = now
	}
	if sp := msg.Specialist(); sp != "" {
		rec.AddSpecialist(sp)
	}
	if err := h.save(ctx, rec); err != nil {
		return 0, err
	}
	return pos, nil
}

// Recent returns the last n messages in conversation order, oldest
// first. n <= 0 returns the whole transcript.
func (h *History) Recent(ctx context.Context, chatID string, n int) ([]domain.Message, error) {
	raws, err := h.kv.Tail(ctx, messagesKey(chatID), n)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	msgs := make([]domain.Message, 0, len(raws))
	for _, raw := range raws {
		var msg domain.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("decode message in chat %s: %w", chatID, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// ListChats returns the user's live chats. Index entries whose records
// have expired are pruned as a side effect.
func (h *History) ListChats(ctx context.Context, userID string) ([]*domain.ChatRecord, error) {
	ids, err := h.kv.Members(ctx, userChatsKey(userID))
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	live := make([]*domain.ChatRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := h.Get(ctx, id)
		if err == domain.ErrNotFound {
			if err := h.kv.RemoveFromSet(ctx, userChatsKey(userID), id); err != nil {
				return nil, fmt.Errorf("prune chat index: %w", err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		live = append(live, rec)
	}
	return live, nil
}

func (h *History) save(ctx context.Context, rec *domain.ChatRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode chat: %w", err)
	}
	if err := h.kv.Set(ctx, chatKey(rec.ChatID), raw, h.ttl); err != nil {
		return fmt.Errorf("store chat: %w", err)
	}
	return nil
}
