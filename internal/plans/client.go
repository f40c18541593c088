package plans

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/havenhealth/member-chat-platform/internal/hours"
	"github.com/havenhealth/member-chat-platform/pkg/logging"
)

// planRecord is the wire shape of one plan from the plan service. Hours come
// either structured (business_hours) or as a legacy encoded string
// (chat_hours); the legacy string wins only when the record is absent.
type planRecord struct {
	PlanID         string               `json:"plan_id"`
	PlanName       string               `json:"plan_name"`
	ChatEnabled    bool                 `json:"chat_enabled"`
	LineOfBusiness string               `json:"line_of_business"`
	Active         bool                 `json:"active"`
	Timezone       string               `json:"timezone"`
	ChatHours      string               `json:"chat_hours"`
	BusinessHours  *hours.BusinessHours `json:"business_hours"`
	Terms          string               `json:"terms"`
	MemberName     string               `json:"member_name"`
	MemberNumber   string               `json:"member_number"`
	GroupNumber    string               `json:"group_number"`
	Coverage       CoverageFlags        `json:"coverage"`
}

type plansResponse struct {
	Plans []planRecord `json:"plans"`
}

// StatusError reports a non-2xx response from the plan service.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("plans: plan service returned status %d", e.StatusCode)
}

// Client fetches a member's plans and business hours from the plan service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	parser     *hours.Parser
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
		c.logger = logger.Component("plans")
	}
}

// NewClient creates a plan service client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logging.Default().Component("plans"),
		tracer: otel.Tracer("memberchat.internal.plans"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = hours.NewParser(c.logger)
	return c
}

// FetchPlans returns the plans available to a member, with business hours
// normalized regardless of which encoding the service sent.
func (c *Client) FetchPlans(ctx context.Context, memberID string) ([]PlanInfo, error) {
	ctx, span := c.tracer.Start(ctx, "plans.fetch")
	defer span.End()

	url := fmt.Sprintf("%s/v1/members/%s/plans", c.baseURL, memberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("plans: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("plans: fetch plans: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		err := &StatusError{StatusCode: resp.StatusCode}
		span.RecordError(err)
		return nil, err
	}

	var payload plansResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("plans: decode response: %w", err)
	}

	out := make([]PlanInfo, 0, len(payload.Plans))
	for _, rec := range payload.Plans {
		if rec.PlanID == "" {
			c.logger.Warn("skipping plan record without id", "name", rec.PlanName)
			continue
		}
		out = append(out, c.toPlanInfo(rec))
	}
	return out, nil
}

func (c *Client) toPlanInfo(rec planRecord) PlanInfo {
	var bh hours.BusinessHours
	if rec.BusinessHours != nil {
		normalized, err := c.parser.ParseRecord(*rec.BusinessHours)
		if err != nil {
			c.logger.Warn("invalid structured hours, falling back to encoded string",
				"plan_id", rec.PlanID, "error", err)
			normalized = c.parser.Parse(rec.ChatHours)
		}
		bh = normalized
	} else {
		bh = c.parser.Parse(rec.ChatHours)
	}

	return PlanInfo{
		ID:              rec.PlanID,
		Name:            rec.PlanName,
		EligibleForChat: rec.ChatEnabled,
		BusinessHours:   bh,
		LineOfBusiness:  LineOfBusiness(rec.LineOfBusiness),
		Active:          rec.Active,
		Timezone:        rec.Timezone,
		Terms:           rec.Terms,
		MemberName:      rec.MemberName,
		MemberNumber:    rec.MemberNumber,
		GroupNumber:     rec.GroupNumber,
		Coverage:        rec.Coverage,
	}
}
