package domain

import (
	"fmt"
	"sort"
	"strings"
)

// RoutingState labels where a turn sits in the supervisor's per-turn state
// machine. Routing is stateless across turns; state is derived from stored
// chat context each time.
type RoutingState string

const (
	StateAssessment  RoutingState = "assessment"
	StateSupervisor  RoutingState = "supervisor"
	StateSpecialist  RoutingState = "specialist"
	StateIntegration RoutingState = "integration"
)

// HandlerSupervisor is the handler id for turns the supervisor keeps.
const HandlerSupervisor = "supervisor"

// RoutingDecision records who handles a turn and why. It is ephemeral:
// never stored on its own, only attached as message metadata.
type RoutingDecision struct {
	Handler    string             `json:"handler"`
	State      RoutingState       `json:"state"`
	ReasonTags []string           `json:"reasonTags,omitempty"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}

// IsSpecialist reports whether the decision hands the turn to a specialist.
func (d RoutingDecision) IsSpecialist() bool {
	return d.Handler != HandlerSupervisor && d.Handler != ""
}

// Metadata renders the decision as message metadata.
func (d RoutingDecision) Metadata() map[string]string {
	md := map[string]string{
		"handler":       d.Handler,
		"routing_state": string(d.State),
	}
	if d.IsSpecialist() {
		md[MetadataSpecialist] = d.Handler
	}
	if len(d.ReasonTags) > 0 {
		tags := append([]string(nil), d.ReasonTags...)
		sort.Strings(tags)
		md["reason_tags"] = strings.Join(tags, ",")
	}
	for dom, score := range d.Scores {
		md["score:"+dom] = fmt.Sprintf("%.2f", score)
	}
	return md
}
