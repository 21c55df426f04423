package notice

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/juju/errors"
)

// WebhookNotifier posts embeds to a Discord-compatible webhook URL.
type WebhookNotifier struct {
	url        string
	username   string
	httpClient *http.Client
}

// NewWebhookNotifier constructs a notifier for url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		username:   "matchwatch",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []Embed `json:"embeds"`
}

// Send delivers embed.
func (n *WebhookNotifier) Send(ctx context.Context, embed Embed) error {
	body, err := json.Marshal(webhookPayload{Username: n.username, Embeds: []Embed{embed}})
	if err != nil {
		return errors.Trace(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return errors.Trace(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return errors.Annotate(err, "posting webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return nil
}
