package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"inventory-agent/internal/domain"
)

// webhookEvent is the WPPConnect webhook payload subset the pipeline
// consumes.
type webhookEvent struct {
	Event      string `json:"event"`
	From       string `json:"from"`
	Body       string `json:"body"`
	IsGroupMsg bool   `json:"isGroupMsg"`
}

type ackResponse struct {
	Status   string `json:"status"`
	Received bool   `json:"received"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MessageProcessor routes one inbound message and returns the reply
// that was sent.
type MessageProcessor interface {
	Process(ctx context.Context, msg domain.InboundMessage) string
}

// Handler is the Lambda entrypoint for WPPConnect webhook deliveries.
// It acknowledges every authenticated delivery with 200 regardless of
// pipeline outcome; WPPConnect retries non-2xx responses and a retry
// of a handled message would double-process it.
type Handler struct {
	processor  MessageProcessor
	webhookKey string
	log        *slog.Logger
}

// NewHandler creates a Handler. webhookKey is the shared secret each
// delivery must carry in its path.
func NewHandler(processor MessageProcessor, webhookKey string, log *slog.Logger) (*Handler, error) {
	if processor == nil {
		return nil, errors.New("handler: processor must not be nil")
	}
	webhookKey = strings.TrimSpace(webhookKey)
	if webhookKey == "" {
		return nil, errors.New("handler: webhook key must not be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{processor: processor, webhookKey: webhookKey, log: log}, nil
}

// Handle processes one API Gateway proxy event.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if !strings.EqualFold(req.HTTPMethod, http.MethodPost) {
		return jsonResponse(http.StatusMethodNotAllowed, errorResponse{Status: "error", Message: "method not allowed"}), nil
	}
	if subtle.ConstantTimeCompare([]byte(requestKey(req)), []byte(h.webhookKey)) != 1 {
		return jsonResponse(http.StatusForbidden, errorResponse{Status: "error", Message: "invalid webhook key"}), nil
	}

	var event webhookEvent
	if err := json.Unmarshal([]byte(req.Body), &event); err != nil {
		return jsonResponse(http.StatusBadRequest, errorResponse{Status: "error", Message: "invalid payload"}), nil
	}

	msg, ok := inboundMessage(event)
	if !ok {
		// Status events, acks and messages without a sender are
		// acknowledged and dropped.
		h.log.Info("webhook event ignored", "event", event.Event)
		return jsonResponse(http.StatusOK, ackResponse{Status: "success", Received: true}), nil
	}

	h.processor.Process(ctx, msg)
	return jsonResponse(http.StatusOK, ackResponse{Status: "success", Received: true}), nil
}

// requestKey extracts the webhook key from the path parameter, falling
// back to the last path segment for non-proxy route setups.
func requestKey(req events.APIGatewayProxyRequest) string {
	if key := strings.TrimSpace(req.PathParameters["key"]); key != "" {
		return key
	}
	path := strings.TrimRight(req.Path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return ""
}

// inboundMessage normalizes the webhook payload, reporting false for
// events the pipeline does not consume.
func inboundMessage(event webhookEvent) (domain.InboundMessage, bool) {
	if event.Event != "onmessage" {
		return domain.InboundMessage{}, false
	}
	sender := cleanPhone(event.From)
	if sender == "" {
		return domain.InboundMessage{}, false
	}
	return domain.InboundMessage{
		Sender:  sender,
		Text:    strings.TrimSpace(event.Body),
		IsGroup: event.IsGroupMsg,
		Event:   event.Event,
	}, true
}

// cleanPhone strips WhatsApp JID suffixes such as @c.us and @lid.
func cleanPhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "@"); i >= 0 {
		return raw[:i]
	}
	return raw
}

func jsonResponse(status int, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"status":"error","message":"internal error"}`,
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}
