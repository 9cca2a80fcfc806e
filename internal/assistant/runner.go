// Package assistant runs the per-turn pipeline: validate the session,
// persist the user's message, route the turn, gather supporting
// knowledge, and persist exactly one reply.
package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/act-dev-25/agents/internal/chat"
	"github.com/act-dev-25/agents/internal/domain"
	"github.com/act-dev-25/agents/internal/knowledge"
	"github.com/act-dev-25/agents/internal/logging"
	"github.com/act-dev-25/agents/internal/routing"
	"github.com/act-dev-25/agents/internal/session"
)

// DefaultContextMessages is how much recent transcript a responder sees.
const DefaultContextMessages = 20

// Request is everything a responder gets to compose one reply.
type Request struct {
	Decision  domain.RoutingDecision
	Message   string           // the user's current message
	History   []domain.Message // recent transcript, oldest first
	Knowledge []byte           // supporting material, nil when unavailable
}

// Responder composes the reply text for a routed turn. Implementations
// live outside this module (language-model clients, canned responders);
// the pipeline only cares that exactly one reply comes back.
type Responder interface {
	Respond(ctx context.Context, req Request) (string, error)
}

// ResponderFunc adapts a function into a Responder.
type ResponderFunc func(ctx context.Context, req Request) (string, error)

func (f ResponderFunc) Respond(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Runner executes turns against the session, chat, knowledge, and
// routing managers.
type Runner struct {
	sessions   *session.Manager
	chats      *chat.History
	cache      *knowledge.Cache
	supervisor *routing.Supervisor
	responder  Responder
	contextN   int
	log        *logging.Logger
}

func NewRunner(
	sessions *session.Manager,
	chats *chat.History,
	cache *knowledge.Cache,
	supervisor *routing.Supervisor,
	responder Responder,
	contextN int,
	log *logging.Logger,
) *Runner {
	if contextN <= 0 {
		contextN = DefaultContextMessages
	}
	return &Runner{
		sessions:   sessions,
		chats:      chats,
		cache:      cache,
		supervisor: supervisor,
		responder:  responder,
		contextN:   contextN,
		log:        log.Sub("assistant"),
	}
}

// Turn is the outcome of one handled user message.
type Turn struct {
	Reply    domain.Message
	Decision domain.RoutingDecision
}

// HandleTurn processes one user message end to end. The session must be
// live (it is touched, sliding its TTL); the user's message is persisted
// before routing so a failure further down never loses input. Knowledge
// retrieval failing entirely degrades the turn instead of aborting it.
func (r *Runner) HandleTurn(ctx context.Context, sessionID, chatID, text string) (*Turn, error) {
	if _, err := r.sessions.Touch(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	userMsg := domain.Message{Role: domain.RoleUser, Content: text}
	if _, err := r.chats.Append(ctx, chatID, userMsg); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	rec, err := r.chats.Get(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	history, err := r.chats.Recent(ctx, chatID, r.contextN)
	if err != nil {
		return nil, fmt.Errorf("load context: %w", err)
	}

	decision, err := r.supervisor.Decide(ctx, rec, text)
	if err != nil {
		return nil, fmt.Errorf("route turn: %w", err)
	}

	var support []byte
	if decision.IsSpecialist() {
		res, err := r.cache.GetOrCompute(ctx, decision.Handler, text)
		switch {
		case err == nil:
			support = res.Payload
			decision.State = domain.StateIntegration
		case errors.Is(err, domain.ErrRetrievalExhausted):
			// Specialists answer from conversation context alone when
			// every knowledge source is down.
			decision.ReasonTags = append(decision.ReasonTags, "knowledge_unavailable")
			r.log.Warn().Str("chat_id", chatID).Str("handler", decision.Handler).
				Msg("answering without knowledge support")
		default:
			return nil, fmt.Errorf("knowledge lookup: %w", err)
		}
	}

	replyText, err := r.responder.Respond(ctx, Request{
		Decision:  decision,
		Message:   text,
		History:   history,
		Knowledge: support,
	})
	if err != nil {
		return nil, fmt.Errorf("compose reply: %w", err)
	}

	role := domain.RoleSupervisor
	if decision.IsSpecialist() {
		role = domain.SpecialistRole(decision.Handler)
	}
	reply := domain.Message{
		Role:     role,
		Content:  replyText,
		Metadata: decision.Metadata(),
	}
	if _, err := r.chats.Append(ctx, chatID, reply); err != nil {
		return nil, fmt.Errorf("persist reply: %w", err)
	}

	return &Turn{Reply: reply, Decision: decision}, nil
}
