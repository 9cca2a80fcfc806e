// Package domain defines the data contracts shared by the session, chat,
// knowledge, and routing managers.
package domain

import "time"

// RateLimitState is a per-session fixed request window. The core maintains
// the counters; enforcement policy belongs to the caller.
type RateLimitState struct {
	WindowStart time.Time `json:"windowStart"`
	Count       int       `json:"count"`
}

// SessionRecord is the stored state for an authenticated session.
// LastActiveAt never exceeds the current time; the record's TTL is re-armed
// to the full session TTL from LastActiveAt on every touch.
type SessionRecord struct {
	SessionID    string         `json:"sessionId"`
	UserID       string         `json:"userId"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastActiveAt time.Time      `json:"lastActiveAt"`
	Preferences  map[string]any `json:"preferences,omitempty"`
	RateLimit    RateLimitState `json:"rateLimit"`
}
