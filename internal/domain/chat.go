package domain

import "time"

// ChatRecord is the stored metadata for a conversation. UpdatedAt is
// monotonically non-decreasing; the chat's TTL is re-armed from UpdatedAt on
// every append. ActiveSpecialists accumulates every specialist that has
// produced a message in this chat and drives sticky routing.
type ChatRecord struct {
	ChatID            string    `json:"chatId"`
	UserID            string    `json:"userId"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	MessageCount      int       `json:"messageCount"`
	ActiveSpecialists []string  `json:"activeSpecialists,omitempty"`
}

// HasSpecialist reports whether the named specialist has been active in
// this chat.
func (c *ChatRecord) HasSpecialist(name string) bool {
	for _, s := range c.ActiveSpecialists {
		if s == name {
			return true
		}
	}
	return false
}

// AddSpecialist records a specialist as active, ignoring duplicates.
func (c *ChatRecord) AddSpecialist(name string) {
	if name == "" || c.HasSpecialist(name) {
		return
	}
	c.ActiveSpecialists = append(c.ActiveSpecialists, name)
}
