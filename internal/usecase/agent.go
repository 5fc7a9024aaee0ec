package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"inventory-agent/internal/domain"
)

const maxToolRounds = 5

// ParamGetter reads configuration values from the parameter store.
type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// LLMClient is the chat-completion contract consumed by the agent.
type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage, tools []domain.ToolSpec) (domain.ChatMessage, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Agent is the reasoning engine: it hands free-form messages to the
// model together with the tool registry's specs and executes the tool
// calls the model requests, feeding results back until the model
// produces a plain text reply.
type Agent struct {
	params      ParamGetter
	llm         LLMClient
	tools       *ToolRegistry
	paramPrefix string
	log         *slog.Logger

	cacheMu     sync.RWMutex
	cacheLoaded bool
	openaiModel string
}

// NewAgent creates an Agent. paramPrefix is the SSM path under which
// config/openai_model lives.
func NewAgent(p ParamGetter, llm LLMClient, tools *ToolRegistry, paramPrefix string, log *slog.Logger) (*Agent, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if tools == nil {
		return nil, errors.New("usecase: tool registry must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Agent{
		params:      p,
		llm:         llm,
		tools:       tools,
		paramPrefix: paramPrefix,
		log:         log,
	}, nil
}

// Respond runs the tool-dispatch loop for one inbound message and
// returns the model's final text. The loop is bounded; a model that
// keeps requesting tools past the limit is treated as an upstream
// fault rather than allowed to spin.
func (a *Agent) Respond(ctx context.Context, correspondent, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", newError(ErrorInvalidInput, "empty_message", nil)
	}
	if err := a.ensureConfig(ctx); err != nil {
		return "", newError(ErrorInternal, "ssm_load_error", err)
	}

	messages := buildAgentMessages(text)
	specs := a.tools.Specs()

	for round := 0; round < maxToolRounds; round++ {
		reply, err := a.llm.Chat(ctx, a.openaiModel, messages, specs)
		if err != nil {
			if status, ok := upstreamStatusCode(err); ok && status == 429 {
				return "", newError(ErrorTransport, "openai_rate_limited", err)
			}
			return "", newError(ErrorTransport, "openai_error", err)
		}
		if len(reply.ToolCalls) == 0 {
			return strings.TrimSpace(reply.Content), nil
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			a.log.Info("dispatching tool call",
				"tool", call.Function.Name, "correspondent", correspondent)
			messages = append(messages, domain.ChatMessage{
				Role:       "tool",
				Content:    a.tools.Dispatch(ctx, correspondent, call),
				ToolCallID: call.ID,
			})
		}
	}
	return "", newError(ErrorTransport, "tool_round_limit", nil)
}

func (a *Agent) ensureConfig(ctx context.Context) error {
	a.cacheMu.RLock()
	if a.cacheLoaded {
		a.cacheMu.RUnlock()
		return nil
	}
	a.cacheMu.RUnlock()

	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	if a.cacheLoaded {
		return nil
	}

	model, err := a.params.GetParameter(ctx, a.paramPrefix+"/config/openai_model")
	if err != nil {
		return err
	}
	a.openaiModel = strings.TrimSpace(model)
	a.cacheLoaded = true
	return nil
}

func upstreamStatusCode(err error) (int, bool) {
	var coder httpStatusCoder
	if errors.As(err, &coder) {
		return coder.HTTPStatusCode(), true
	}
	return 0, false
}
