// Package slack posts messages to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Notifier delivers plain-text messages to a webhook URL. An empty URL
// disables delivery without error.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// Option configures the notifier.
type Option func(*Notifier)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *Notifier) {
		n.client = hc
	}
}

// NewNotifier creates a Notifier for the given webhook URL.
func NewNotifier(webhookURL string, opts ...Option) *Notifier {
	n := &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

// Notify posts the text as a Slack message. A no-op when no webhook URL
// is configured.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if !n.Enabled() {
		zap.L().Debug("slack: webhook not configured, skipping notification")
		return nil
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return eris.Wrap(err, "slack: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "slack: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "slack: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("slack: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
