// Package members provides the client for the member eligibility service.
package members

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/havenhealth/member-chat-platform/internal/eligibility"
	"github.com/havenhealth/member-chat-platform/pkg/logging"
)

// StatusError reports a non-2xx response from the eligibility service.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("members: eligibility service returned status %d", e.StatusCode)
}

// Client fetches member eligibility snapshots, with an optional redis-backed
// cache in front of the upstream service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *SnapshotCache
	logger     *logging.Logger
	tracer     trace.Tracer
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.Component("members")
	}
}

// WithCache adds a snapshot cache consulted before the upstream call.
func WithCache(cache *SnapshotCache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// NewClient creates an eligibility service client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logging.Default().Component("members"),
		tracer: otel.Tracer("memberchat.internal.members"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchEligibility returns the eligibility snapshot for a member and group.
// The snapshot is validated at the boundary: records missing the member
// identifier are rejected rather than trusted.
func (c *Client) FetchEligibility(ctx context.Context, memberID, groupID string) (*eligibility.UserEligibility, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, fmt.Errorf("members: memberID required")
	}

	ctx, span := c.tracer.Start(ctx, "members.fetch_eligibility")
	defer span.End()

	if cached, err := c.cache.Get(ctx, memberID, groupID); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		c.logger.Warn("eligibility cache read failed", "member_id", memberID, "error", err)
	}

	url := fmt.Sprintf("%s/v1/eligibility/%s?group=%s", c.baseURL, memberID, groupID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("members: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("members: fetch eligibility: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		err := &StatusError{StatusCode: resp.StatusCode}
		span.RecordError(err)
		return nil, err
	}

	var snapshot eligibility.UserEligibility
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("members: decode eligibility: %w", err)
	}
	if snapshot.MemberID == "" {
		return nil, fmt.Errorf("members: eligibility payload missing member_id")
	}

	if err := c.cache.Put(ctx, memberID, groupID, &snapshot); err != nil {
		c.logger.Warn("eligibility cache write failed", "member_id", memberID, "error", err)
	}
	return &snapshot, nil
}

// InvalidateEligibility drops the cached snapshot so the next fetch goes to
// the upstream service. Safe without a cache configured.
func (c *Client) InvalidateEligibility(ctx context.Context, memberID, groupID string) error {
	return c.cache.Invalidate(ctx, memberID, groupID)
}
