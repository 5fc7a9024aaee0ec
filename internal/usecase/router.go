package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"inventory-agent/internal/domain"
)

const fallbackResponse = "Sorry, I didn't understand that. Type 'help' to see what I can do."

// DeliverySender pushes a reply back to the correspondent's chat.
type DeliverySender interface {
	SendMessage(ctx context.Context, phone string, isGroup bool, text string) error
}

// ConversationAppender records one handled exchange.
type ConversationAppender interface {
	AppendTurn(ctx context.Context, correspondent, inbound, reply string) error
}

// ReasoningEngine turns a free-form message into a reply, possibly by
// running tools.
type ReasoningEngine interface {
	Respond(ctx context.Context, correspondent, text string) (string, error)
}

type routeRule struct {
	name  string
	apply func(ctx context.Context, msg domain.InboundMessage) (string, bool, error)
}

// MessageService routes each inbound message through a fixed rule
// table and guarantees exactly one reply: the first rule that claims
// the message wins, and nothing claiming it yields the fallback.
type MessageService struct {
	intents       *IntentMatcher
	pending       PendingStore
	assembler     *Assembler
	agent         ReasoningEngine
	delivery      DeliverySender
	conversations ConversationAppender
	rules         []routeRule
	log           *slog.Logger
}

// NewMessageService creates a MessageService.
func NewMessageService(
	intents *IntentMatcher,
	pending PendingStore,
	assembler *Assembler,
	agent ReasoningEngine,
	delivery DeliverySender,
	conversations ConversationAppender,
	log *slog.Logger,
) (*MessageService, error) {
	if intents == nil {
		return nil, errors.New("usecase: intent matcher must not be nil")
	}
	if pending == nil {
		return nil, errors.New("usecase: pending store must not be nil")
	}
	if assembler == nil {
		return nil, errors.New("usecase: assembler must not be nil")
	}
	if agent == nil {
		return nil, errors.New("usecase: reasoning engine must not be nil")
	}
	if delivery == nil {
		return nil, errors.New("usecase: delivery sender must not be nil")
	}
	if conversations == nil {
		return nil, errors.New("usecase: conversation log must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	s := &MessageService{
		intents:       intents,
		pending:       pending,
		assembler:     assembler,
		agent:         agent,
		delivery:      delivery,
		conversations: conversations,
		log:           log,
	}
	s.rules = []routeRule{
		{name: "canned", apply: s.applyCanned},
		{name: "pending", apply: s.applyPending},
		{name: "reasoning", apply: s.applyReasoning},
	}
	return s, nil
}

// Process routes the message, sends the reply and logs the turn.
// Delivery and logging failures are recorded but never bubble up; the
// webhook caller has nothing useful to do with them.
func (s *MessageService) Process(ctx context.Context, msg domain.InboundMessage) string {
	reply := s.Route(ctx, msg)

	if err := s.delivery.SendMessage(ctx, msg.Sender, msg.IsGroup, reply); err != nil {
		s.log.Error("failed to deliver reply", "correspondent", msg.Sender, "err", err)
	}
	if err := s.conversations.AppendTurn(ctx, msg.Sender, msg.Text, reply); err != nil {
		s.log.Error("failed to append conversation turn", "correspondent", msg.Sender, "err", err)
	}
	return reply
}

// Route walks the rule table in order and returns the reply of the
// first rule that claims the message. Every path yields a non-empty
// reply.
func (s *MessageService) Route(ctx context.Context, msg domain.InboundMessage) string {
	if strings.TrimSpace(msg.Text) == "" {
		return fallbackResponse
	}
	for _, rule := range s.rules {
		reply, claimed, err := rule.apply(ctx, msg)
		if err != nil {
			s.log.Warn("route rule failed",
				"rule", rule.name, "correspondent", msg.Sender, "err", err)
			return userMessage(err)
		}
		if claimed && strings.TrimSpace(reply) != "" {
			s.log.Info("message routed", "rule", rule.name, "correspondent", msg.Sender)
			return reply
		}
	}
	return fallbackResponse
}

// applyCanned answers small-talk from the intent matcher.
func (s *MessageService) applyCanned(_ context.Context, msg domain.InboundMessage) (string, bool, error) {
	reply, ok := s.intents.Match(msg.Text)
	return reply, ok, nil
}

// applyPending claims the message when the correspondent has an
// operation in flight; the text then continues that flow instead of
// going back through the model.
func (s *MessageService) applyPending(ctx context.Context, msg domain.InboundMessage) (string, bool, error) {
	for _, kind := range domain.KnownKinds {
		op, err := s.pending.Get(ctx, msg.Sender, kind)
		if err != nil {
			return "", false, newError(ErrorInternal, "pending_get_error", err)
		}
		if op == nil {
			continue
		}
		reply, err := s.assembler.Continue(ctx, msg.Sender, kind, msg.Text)
		return reply, true, err
	}
	return "", false, nil
}

func (s *MessageService) applyReasoning(ctx context.Context, msg domain.InboundMessage) (string, bool, error) {
	reply, err := s.agent.Respond(ctx, msg.Sender, msg.Text)
	if err != nil {
		return "", false, err
	}
	return reply, strings.TrimSpace(reply) != "", nil
}

// userMessage converts a pipeline error into the sentence sent back to
// the correspondent. Internal detail stays in the logs.
func userMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "Sorry, something went wrong on my side. Please try again."
	}
	switch e.Code {
	case ErrorParse:
		if e.Subject != "" {
			return fmt.Sprintf("Sorry, I couldn't make sense of %q. Try \"item quantity price\", e.g. \"pen 5 10\".", e.Subject)
		}
		return "Sorry, I couldn't make sense of that. Try \"item quantity price\", e.g. \"pen 5 10\"."
	case ErrorNotFound:
		if e.Reason == "no_pending_operation" {
			return "There's nothing in progress to finalize. Start a sale or purchase order first."
		}
		if e.Subject != "" {
			return fmt.Sprintf("I couldn't find %q in the records. Check the name and try again.", e.Subject)
		}
		return "I couldn't find that in the records. Check the name and try again."
	case ErrorInsufficientStock:
		if e.Subject != "" {
			return fmt.Sprintf("There isn't enough stock of %q for that quantity. Lower the quantity or cancel.", e.Subject)
		}
		return "There isn't enough stock for that quantity. Lower the quantity or cancel."
	case ErrorTransport:
		return "Sorry, I'm having trouble reaching my assistant right now. Please try again in a moment."
	case ErrorInvalidInput:
		return fallbackResponse
	default:
		return "Sorry, something went wrong on my side. Please try again."
	}
}
