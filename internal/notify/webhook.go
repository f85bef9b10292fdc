package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// webhookPayload is the JSON body POSTed for each recipient.
type webhookPayload struct {
	Event       string  `json:"event"`
	RecipientID string  `json:"recipient_id"`
	Subject     string  `json:"subject"`
	Task        Message `json:"task"`
}

// WebhookTransport POSTs one JSON payload per recipient to a URL.
type WebhookTransport struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewWebhookTransport creates a transport for url. A non-empty token is
// sent as a bearer credential.
func NewWebhookTransport(url, token string) *WebhookTransport {
	return &WebhookTransport{
		url:        url,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *WebhookTransport) Name() string { return "webhook" }

func (t *WebhookTransport) Send(ctx context.Context, recipientID string, msg Message) error {
	data, err := json.Marshal(webhookPayload{
		Event:       "task_created",
		RecipientID: recipientID,
		Subject:     msg.Subject(),
		Task:        msg,
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Taskcast-Event", "task_created")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
