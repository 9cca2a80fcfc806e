package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// entry is a single keyed slot. Exactly one of value, list, set, or count
// is populated, mirroring the one-structure-per-key rule.
type entry struct {
	value     []byte
	list      [][]byte
	set       map[string]struct{}
	count     int64
	isCounter bool
	expiresAt time.Time // zero means no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryKV is an in-process KV implementation. Expired entries are evicted
// lazily on access. It is safe for concurrent use and never returns
// UnavailableError.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// SetNow replaces the store's clock. Tests use this to simulate expiry
// without sleeping.
func (m *MemoryKV) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// live returns the entry for key, evicting it first if expired.
// Caller must hold m.mu.
func (m *MemoryKV) live(key string) (*entry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return nil, false
	}
	return e, true
}

func (m *MemoryKV) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.entries[key] = &entry{value: v, expiresAt: m.expiry(ttl)}
	return nil
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok || e.value == nil {
		return nil, false, nil
	}
	v := make([]byte, len(e.value))
	copy(v, e.value)
	return v, true, nil
}

func (m *MemoryKV) Extend(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return false, nil
	}
	e.expiresAt = m.expiry(ttl)
	return true, nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryKV) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		// First increment in the window arms the TTL; later increments
		// leave it untouched so the window does not slide.
		e = &entry{isCounter: true, expiresAt: m.expiry(ttl)}
		m.entries[key] = e
	}
	e.count++
	return e.count, nil
}

func (m *MemoryKV) Append(_ context.Context, key string, value []byte, ttl time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	v := make([]byte, len(value))
	copy(v, value)
	e.list = append(e.list, v)
	e.expiresAt = m.expiry(ttl)
	return len(e.list) - 1, nil
}

func (m *MemoryKV) Tail(_ context.Context, key string, limit int) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return nil, nil
	}
	start := 0
	if limit > 0 && len(e.list) > limit {
		start = len(e.list) - limit
	}
	out := make([][]byte, 0, len(e.list)-start)
	for _, v := range e.list[start:] {
		c := make([]byte, len(v))
		copy(c, v)
		out = append(out, c)
	}
	return out, nil
}

func (m *MemoryKV) AddToSet(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		e = &entry{set: make(map[string]struct{})}
		m.entries[key] = e
	}
	if e.set == nil {
		e.set = make(map[string]struct{})
	}
	e.set[member] = struct{}{}
	return nil
}

func (m *MemoryKV) RemoveFromSet(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok || e.set == nil {
		return nil
	}
	delete(e.set, member)
	if len(e.set) == 0 {
		delete(m.entries, key)
	}
	return nil
}

func (m *MemoryKV) Members(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok || e.set == nil {
		return nil, nil
	}
	members := make([]string, 0, len(e.set))
	for member := range e.set {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (m *MemoryKV) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var keys []string
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
