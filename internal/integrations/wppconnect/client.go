package wppconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// sendMessageRequest is the request shape of the send-message endpoint.
type sendMessageRequest struct {
	Phone        string `json:"phone"`
	IsGroup      bool   `json:"isGroup"`
	IsNewsletter bool   `json:"isNewsletter"`
	Message      string `json:"message"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("wppconnect: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client sends outbound WhatsApp messages through a WPPConnect server.
// Endpoints are session-scoped: POST {base}/api/{session}/send-message
// with a Bearer session token.
type Client struct {
	baseURL     string
	session     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string

	tokenOnce sync.Once
	token     string
	tokenErr  error
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client for the given WPPConnect server and
// session. The session token is fetched from SSM on the first send and
// reused for the lifetime of the process.
func NewClient(ps Getter, paramPrefix, baseURL, session string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("wppconnect: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("wppconnect: parameter prefix must not be empty")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("wppconnect: base URL must not be empty")
	}
	session = strings.TrimSpace(session)
	if session == "" {
		return nil, errors.New("wppconnect: session must not be empty")
	}
	c := &Client{
		baseURL:     baseURL,
		session:     session,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendMessage delivers one text message to the phone or group chat.
func (c *Client) SendMessage(ctx context.Context, phone string, isGroup bool, message string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return errors.New("wppconnect: phone must not be empty")
	}
	if strings.TrimSpace(message) == "" {
		return errors.New("wppconnect: message must not be empty")
	}

	token, err := c.resolveToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(sendMessageRequest{
		Phone:   phone,
		IsGroup: isGroup,
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("wppconnect: marshal request: %w", err)
	}

	url := c.endpointURL("send-message")

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return fmt.Errorf("wppconnect: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return fmt.Errorf("wppconnect: request failed: %w", doErr)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}
	return nil
}

func (c *Client) endpointURL(endpoint string) string {
	return c.baseURL + "/api/" + c.session + "/" + endpoint
}

// resolveToken fetches the session token from SSM on the first call
// and returns the cached result afterwards.
func (c *Client) resolveToken(ctx context.Context) (string, error) {
	c.tokenOnce.Do(func() {
		raw, err := c.getter.GetParameter(ctx, c.paramPrefix+"/wpp-session-token")
		if err != nil {
			c.tokenErr = fmt.Errorf("wppconnect: fetch token from paramstore: %w", err)
			return
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			c.tokenErr = errors.New("wppconnect: session token is empty")
			return
		}
		c.token = raw
	})
	return c.token, c.tokenErr
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
