package domain

import (
	"strings"
	"time"
)

// Message roles form a closed set. Specialist roles are prefixed so the
// producing specialist travels with the message.
const (
	RoleUser       = "user"
	RoleSupervisor = "supervisor"
	RoleSystem     = "system"

	specialistRolePrefix = "specialist:"
)

// SpecialistRole builds the role string for a named specialist.
func SpecialistRole(name string) string {
	return specialistRolePrefix + name
}

// SpecialistFromRole extracts the specialist name from a specialist role,
// or returns "" for any other role.
func SpecialistFromRole(role string) string {
	if !strings.HasPrefix(role, specialistRolePrefix) {
		return ""
	}
	return strings.TrimPrefix(role, specialistRolePrefix)
}

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleSupervisor, RoleSystem:
		return true
	}
	return SpecialistFromRole(role) != ""
}

// Message is a single turn in a chat. Messages are appended, never mutated;
// list position, not timestamp, is the authoritative order.
type Message struct {
	ID        string            `json:"id,omitempty"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// MetadataSpecialist is the metadata key naming the specialist that produced
// (or should handle) a message.
const MetadataSpecialist = "specialist"

// Specialist returns the specialist named by the message, from its role or
// its metadata, or "".
func (m *Message) Specialist() string {
	if s := SpecialistFromRole(m.Role); s != "" {
		return s
	}
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[MetadataSpecialist]
}
