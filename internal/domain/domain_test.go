package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpecialistRole(t *testing.T) {
	assert.Equal(t, "specialist:veteran", SpecialistRole("veteran"))
	assert.Equal(t, "veteran", SpecialistFromRole("specialist:veteran"))
	assert.Empty(t, SpecialistFromRole("user"))
	assert.Empty(t, SpecialistFromRole("supervisor"))
}

func TestValidRole(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{"user", true},
		{"supervisor", true},
		{"system", true},
		{"specialist:ej", true},
		{"specialist:veteran", true},
		{"assistant", false},
		{"specialist:", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidRole(tt.role))
		})
	}
}

func TestMessageSpecialist(t *testing.T) {
	byRole := Message{Role: "specialist:international"}
	assert.Equal(t, "international", byRole.Specialist())

	byMeta := Message{Role: "supervisor", Metadata: map[string]string{MetadataSpecialist: "career"}}
	assert.Equal(t, "career", byMeta.Specialist())

	none := Message{Role: "user"}
	assert.Empty(t, none.Specialist())
}

func TestChatRecordSpecialists(t *testing.T) {
	rec := &ChatRecord{ChatID: "c1"}
	assert.False(t, rec.HasSpecialist("veteran"))

	rec.AddSpecialist("veteran")
	rec.AddSpecialist("veteran") // duplicate ignored
	rec.AddSpecialist("")        // empty ignored

	assert.Equal(t, []string{"veteran"}, rec.ActiveSpecialists)
	assert.True(t, rec.HasSpecialist("veteran"))
}

func TestRoutingDecisionMetadata(t *testing.T) {
	d := RoutingDecision{
		Handler:    "veteran",
		State:      StateSpecialist,
		ReasonTags: []string{"military", "veteran"},
		Scores:     map[string]float64{"veteran": 1.0},
	}

	md := d.Metadata()
	assert.Equal(t, "veteran", md["handler"])
	assert.Equal(t, "specialist", md["routing_state"])
	assert.Equal(t, "veteran", md[MetadataSpecialist])
	assert.Equal(t, "military,veteran", md["reason_tags"])
	assert.Equal(t, "1.00", md["score:veteran"])
}

func TestRoutingDecisionSupervisor(t *testing.T) {
	d := RoutingDecision{Handler: HandlerSupervisor, State: StateSupervisor}
	assert.False(t, d.IsSpecialist())

	md := d.Metadata()
	_, hasSpecialist := md[MetadataSpecialist]
	assert.False(t, hasSpecialist)
}
