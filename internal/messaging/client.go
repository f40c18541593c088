package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/havenhealth/member-chat-platform/pkg/logging"
)

// Config controls how the messaging backend client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Client is the HTTP implementation of Backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
	tracer     trace.Tracer
}

var _ Backend = (*Client)(nil)

// StatusError reports a non-2xx response from the messaging backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("messaging: backend returned status %d: %s", e.StatusCode, e.Body)
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("messaging: base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger.Component("messaging"),
		tracer:     otel.Tracer("memberchat.internal.messaging"),
	}, nil
}

// StartSession opens a live-chat session. Retrying with the same session id
// returns the already-open session rather than opening a second one.
func (c *Client) StartSession(ctx context.Context, req StartSessionRequest) (*SessionInfo, error) {
	var info SessionInfo
	if err := c.post(ctx, "messaging.start_session", "/v1/sessions", req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SendMessage delivers one message into an open session, idempotent by
// message id.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*MessageReceipt, error) {
	path := fmt.Sprintf("/v1/sessions/%s/messages", req.SessionID)
	var receipt MessageReceipt
	if err := c.post(ctx, "messaging.send_message", path, req, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// EndSession terminates a session. Ending an already-ended session succeeds.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	return c.post(ctx, "messaging.end_session", fmt.Sprintf("/v1/sessions/%s/end", sessionID), nil, nil)
}

// StartCobrowse begins a cobrowse leg on an open session.
func (c *Client) StartCobrowse(ctx context.Context, sessionID string) error {
	return c.post(ctx, "messaging.start_cobrowse", fmt.Sprintf("/v1/sessions/%s/cobrowse/start", sessionID), nil, nil)
}

// EndCobrowse stops the cobrowse leg, leaving the chat session open.
func (c *Client) EndCobrowse(ctx context.Context, sessionID string) error {
	return c.post(ctx, "messaging.end_cobrowse", fmt.Sprintf("/v1/sessions/%s/cobrowse/end", sessionID), nil, nil)
}

func (c *Client) post(ctx context.Context, spanName, path string, payload, out any) error {
	ctx, span := c.tracer.Start(ctx, spanName)
	defer span.End()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("messaging: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("messaging: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("messaging: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		span.RecordError(err)
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		return fmt.Errorf("messaging: decode response: %w", err)
	}
	return nil
}
