// Package routing decides which handler takes each chat turn. A
// supervisor scores the incoming message against the specialist
// domains, prefers a specialist already engaged on the chat, and keeps
// ambiguous turns for itself.
package routing

import (
	"context"
	"fmt"

	"github.com/act-dev-25/agents/internal/domain"
	"github.com/act-dev-25/agents/internal/logging"
)

// DefaultThreshold is the minimum signal score that routes a turn to a
// specialist.
const DefaultThreshold = 0.5

// Supervisor routes turns using a SignalSource and the chat's routing
// memory.
type Supervisor struct {
	source    SignalSource
	threshold float64
	log       *logging.Logger
}

func NewSupervisor(source SignalSource, threshold float64, log *logging.Logger) *Supervisor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Supervisor{
		source:    source,
		threshold: threshold,
		log:       log.Sub("routing"),
	}
}

// Decide picks the handler for one turn:
//
//   - exactly one domain clearing the threshold wins, switching away
//     from an engaged specialist if the domain differs;
//   - ambiguous turns (nothing clears, or several do) stay with an
//     engaged specialist, so follow-ups like "what about pay?" don't
//     bounce back to the supervisor;
//   - with no specialist engaged, ambiguity keeps the turn at the
//     supervisor.
func (s *Supervisor) Decide(ctx context.Context, rec *domain.ChatRecord, message string) (domain.RoutingDecision, error) {
	signals, err := s.source.Score(ctx, message)
	if err != nil {
		return domain.RoutingDecision{}, fmt.Errorf("score message: %w", err)
	}

	decision := s.decide(rec, signals)
	s.log.Debug().
		Str("chat_id", rec.ChatID).
		Str("handler", decision.Handler).
		Str("state", string(decision.State)).
		Strs("reasons", decision.ReasonTags).
		Msg("turn routed")
	return decision, nil
}

func (s *Supervisor) decide(rec *domain.ChatRecord, signals Signals) domain.RoutingDecision {
	var cleared []string
	for _, dom := range signals.Domains() {
		if signals[dom] >= s.threshold {
			cleared = append(cleared, dom)
		}
	}

	specialist := func(dom, reason string) domain.RoutingDecision {
		return domain.RoutingDecision{
			Handler:    dom,
			State:      domain.StateSpecialist,
			ReasonTags: []string{reason},
			Scores:     signals,
		}
	}

	switch len(cleared) {
	case 1:
		if rec.HasSpecialist(cleared[0]) {
			return specialist(cleared[0], "sticky")
		}
		return specialist(cleared[0], "signal")

	case 0:
		// Sticky routing: an ambiguous follow-up stays with the most
		// recently engaged specialist instead of re-deciding.
		if n := len(rec.ActiveSpecialists); n > 0 {
			return specialist(rec.ActiveSpecialists[n-1], "sticky")
		}
		return domain.RoutingDecision{
			Handler:    domain.HandlerSupervisor,
			State:      domain.StateAssessment,
			ReasonTags: []string{"no_signal"},
			Scores:     signals,
		}

	default:
		// Several domains cleared: an engaged one keeps the turn,
		// otherwise the supervisor asks a clarifying question instead
		// of guessing between domains.
		for _, dom := range signals.Domains() {
			if rec.HasSpecialist(dom) {
				return specialist(dom, "sticky")
			}
		}
		return domain.RoutingDecision{
			Handler:    domain.HandlerSupervisor,
			State:      domain.StateSupervisor,
			ReasonTags: []string{"ambiguous"},
			Scores:     signals,
		}
	}
}
