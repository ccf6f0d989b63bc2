package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"saas-auth-server/config"
	"saas-auth-server/internal/model"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout = 5 * time.Second
	retryBase      = 200 * time.Millisecond
)

// WebhookNotifier : POSTs a JSON DeviceEvent; 5xx and transport errors are retried with exponential backoff
type WebhookNotifier struct {
	url        string
	client     *http.Client
	maxRetries uint64
	base       time.Duration
}

func NewWebhookNotifier(cfg *config.WebhookConfig) *WebhookNotifier {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = defaultTimeout
	}

	return &WebhookNotifier{
		url:        cfg.URL,
		client:     &http.Client{Timeout: timeout},
		maxRetries: cfg.MaxRetries,
		base:       retryBase,
	}
}

func (n *WebhookNotifier) NotifyNewDevice(ctx context.Context, event model.DeviceEvent) error {
	if n.url == "" {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook payload encoding failed: %w", err)
	}

	backoff := retry.WithMaxRetries(n.maxRetries, retry.NewExponential(n.base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		return n.post(ctx, body)
	})
}

func (n *WebhookNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request build failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Printf("[Webhook] delivery failed: %v", err)
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("webhook responded %d", resp.StatusCode))
	case resp.StatusCode >= 300:
		return fmt.Errorf("webhook rejected event: %d", resp.StatusCode)
	}
	return nil
}
