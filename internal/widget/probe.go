// Package widget checks availability of the third-party chat widget script
// and renders the embed snippet handed to the host page.
package widget

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/havenhealth/member-chat-platform/pkg/logging"
)

// Probe verifies the widget script URL is reachable before the chat entry
// point is offered. A failed probe degrades the UI; it never blocks the
// eligibility decision.
type Probe struct {
	scriptURL  string
	httpClient *http.Client
	logger     *logging.Logger
}

// ProbeOption configures a Probe.
type ProbeOption func(*Probe)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ProbeOption {
	return func(p *Probe) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *logging.Logger) ProbeOption {
	return func(p *Probe) {
		if l != nil {
			p.logger = l.Component("widget")
		}
	}
}

func NewProbe(scriptURL string, opts ...ProbeOption) *Probe {
	p := &Probe{
		scriptURL:  scriptURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.Default().Component("widget"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check issues a HEAD request against the script URL. Any non-2xx status or
// transport error fails the probe.
func (p *Probe) Check(ctx context.Context) error {
	if p == nil || p.scriptURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.scriptURL, nil)
	if err != nil {
		return fmt.Errorf("widget: build probe request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("widget: probe script: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("widget: script returned status %d", resp.StatusCode)
	}
	p.logger.Debug("widget script reachable", "url", p.scriptURL)
	return nil
}

// Embed renders the script tag the host page injects once the bootstrap
// completes. The session token, when present, is attached as a data
// attribute the widget reads on load.
func Embed(scriptURL, sessionToken string) string {
	if scriptURL == "" {
		return ""
	}
	if sessionToken == "" {
		return fmt.Sprintf(`<script src=%q async></script>`, scriptURL)
	}
	return fmt.Sprintf(`<script src=%q data-session-token=%q async></script>`, scriptURL, sessionToken)
}
