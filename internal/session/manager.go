// Package session manages authenticated session lifecycles: sliding-TTL
// session records, per-user session indexes, login-attempt rate limiting,
// and single-use verification codes.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/act-dev-25/agents/internal/domain"
	"github.com/act-dev-25/agents/internal/logging"
	"github.com/act-dev-25/agents/internal/store"
)

// Config carries the session manager's time policies.
type Config struct {
	TTL              time.Duration // sliding session lifetime
	LoginWindow      time.Duration // login-attempt counting window
	MaxLoginAttempts int64         // attempts allowed per window
	CodeTTL          time.Duration // verification code lifetime
}

// DefaultConfig returns the stock policy: 7-day sessions, 5 login
// attempts per 10 minutes, 15-minute verification codes.
func DefaultConfig() Config {
	return Config{
		TTL:              7 * 24 * time.Hour,
		LoginWindow:      10 * time.Minute,
		MaxLoginAttempts: 5,
		CodeTTL:          15 * time.Minute,
	}
}

// requestWindow is the granularity of the per-session activity counter
// kept on each record.
const requestWindow = time.Minute

// Manager owns the session keyspace on a KV store.
type Manager struct {
	kv  store.KV
	cfg Config
	log *logging.Logger
	now func() time.Time
}

func NewManager(kv store.KV, cfg Config, log *logging.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.LoginWindow <= 0 {
		cfg.LoginWindow = DefaultConfig().LoginWindow
	}
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = DefaultConfig().MaxLoginAttempts
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultConfig().CodeTTL
	}
	return &Manager{
		kv:  kv,
		cfg: cfg,
		log: log.Sub("session"),
		now: time.Now,
	}
}

// SetNow overrides the manager's clock. Tests only.
func (m *Manager) SetNow(now func() time.Time) { m.now = now }

func sessionKey(id string) string       { return "session:" + id }
func userSessionsKey(uid string) string { return "user:" + uid + ":sessions" }
func loginAttemptKey(email, ip string) string {
	return fmt.Sprintf("auth:login_attempt:%s:%s", email, ip)
}
func verificationKey(email string) string { return "auth:verification:" + email }

// Create mints a new session for userID and indexes it under the user.
func (m *Manager) Create(ctx context.Context, userID string, prefs map[string]any) (*domain.SessionRecord, error) {
	now := m.now()
	rec := &domain.SessionRecord{
		SessionID:    uuid.NewString(),
		UserID:       userID,
		CreatedAt:    now,
		LastActiveAt: now,
		Preferences:  prefs,
		RateLimit:    domain.RateLimitState{WindowStart: now, Count: 0},
	}
	if err := m.save(ctx, rec); err != nil {
		return nil, err
	}
	if err := m.kv.AddToSet(ctx, userSessionsKey(userID), rec.SessionID); err != nil {
		return nil, fmt.Errorf("index session: %w", err)
	}
	m.log.Debug().Str("session_id", rec.SessionID).Str("user_id", userID).Msg("session created")
	return rec, nil
}

// Get loads a live session without extending it.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	raw, ok, err := m.kv.Get(ctx, sessionKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &rec, nil
}

// Touch marks activity on a session: LastActiveAt is updated, the
// per-session rate-limit window is advanced, and the sliding TTL is
// re-armed for the full lifetime. Expired and unknown sessions are
// indistinguishable, both return ErrNotFound.
func (m *Manager) Touch(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	rec, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	rec.LastActiveAt = now
	if now.Sub(rec.RateLimit.WindowStart) >= requestWindow {
		rec.RateLimit = domain.RateLimitState{WindowStart: now, Count: 1}
	} else {
		rec.RateLimit.Count++
	}
	if err := m.save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Logout removes the session record and its index entry. Logging out an
// already-expired session is not an error.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	rec, err := m.Get(ctx, sessionID)
	if err == domain.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if err := m.kv.Delete(ctx, sessionKey(sessionID)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := m.kv.RemoveFromSet(ctx, userSessionsKey(rec.UserID), sessionID); err != nil {
		return fmt.Errorf("unindex session: %w", err)
	}
	m.log.Debug().Str("session_id", sessionID).Msg("session logged out")
	return nil
}

// Sessions returns the user's live sessions. Index entries whose
// records have expired are pruned as a side effect.
func (m *Manager) Sessions(ctx context.Context, userID string) ([]*domain.SessionRecord, error) {
	ids, err := m.kv.Members(ctx, userSessionsKey(userID))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	live := make([]*domain.SessionRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := m.Get(ctx, id)
		if err == domain.ErrNotFound {
			if err := m.kv.RemoveFromSet(ctx, userSessionsKey(userID), id); err != nil {
				return nil, fmt.Errorf("prune session index: %w", err)
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

func (m *Manager) save(ctx context.Context, rec *domain.SessionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.kv.Set(ctx, sessionKey(rec.SessionID), raw, m.cfg.TTL); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Attempt is the outcome of recording one login attempt.
type Attempt struct {
	Allowed   bool  // false once the window's budget is spent
	Remaining int64 // attempts left in the current window
}

// RecordLoginAttempt counts a failed login for the email/IP pair. The
// counting window is fixed: it opens on the first attempt and does not
// slide, so a locked-out caller stays locked out until it lapses.
func (m *Manager) RecordLoginAttempt(ctx context.Context, email, ip string) (Attempt, error) {
	n, err := m.kv.Incr(ctx, loginAttemptKey(email, ip), m.cfg.LoginWindow)
	if err != nil {
		return Attempt{}, fmt.Errorf("count login attempt: %w", err)
	}
	remaining := m.cfg.MaxLoginAttempts - n
	if remaining < 0 {
		remaining = 0
	}
	if n > m.cfg.MaxLoginAttempts {
		m.log.Warn().Str("email", email).Str("ip", ip).Int64("attempts", n).Msg("login attempts exceeded")
		return Attempt{Allowed: false, Remaining: 0}, nil
	}
	return Attempt{Allowed: true, Remaining: remaining}, nil
}

// ClearLoginAttempts resets the counter, typically after a successful
// login inside the window.
func (m *Manager) ClearLoginAttempts(ctx context.Context, email, ip string) error {
	if err := m.kv.Delete(ctx, loginAttemptKey(email, ip)); err != nil {
		return fmt.Errorf("clear login attempts: %w", err)
	}
	return nil
}

// IssueVerificationCode generates a fresh 6-digit code for the email,
// replacing any outstanding one.
func (m *Manager) IssueVerificationCode(ctx context.Context, email string) (string, error) {
	code, err := randomCode(6)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	if err := m.kv.Set(ctx, verificationKey(email), []byte(code), m.cfg.CodeTTL); err != nil {
		return "", fmt.Errorf("store verification code: %w", err)
	}
	m.log.Debug().Str("email", email).Msg("verification code issued")
	return code, nil
}

// ConsumeVerificationCode checks code against the stored one and, on
// match, deletes it so it cannot be replayed. Wrong, expired, and
// never-issued codes all fail identically with ErrInvalidOrExpired.
func (m *Manager) ConsumeVerificationCode(ctx context.Context, email, code string) error {
	stored, ok, err := m.kv.Get(ctx, verificationKey(email))
	if err != nil {
		return fmt.Errorf("load verification code: %w", err)
	}
	if !ok || !safeEqual(string(stored), code) {
		return domain.ErrInvalidOrExpired
	}
	if err := m.kv.Delete(ctx, verificationKey(email)); err != nil {
		return fmt.Errorf("consume verification code: %w", err)
	}
	return nil
}

// safeEqual compares two strings in constant time.
func safeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// randomCode returns n decimal digits from crypto/rand.
func randomCode(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits), nil
}
