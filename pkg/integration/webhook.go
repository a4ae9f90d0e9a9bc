package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"assessment-sync-be/internal/pkg/logger"
	"assessment-sync-be/pkg/events"

	"github.com/cenkalti/backoff/v5"
)

// WebhookPublisher pushes change events to an external integration endpoint.
// 4xx responses are treated as permanent and not retried; 5xx and transport
// failures are retried with exponential backoff up to the attempt cap.
type WebhookPublisher struct {
	url         string
	maxAttempts int
	client      *http.Client
	logger      logger.ILogger
}

func NewWebhookPublisher(url string, timeout time.Duration, maxAttempts int, log logger.ILogger) *WebhookPublisher {
	return &WebhookPublisher{
		url:         url,
		maxAttempts: maxAttempts,
		client:      &http.Client{Timeout: timeout},
		logger:      log,
	}
}

// Notify delivers one event. It blocks through the retry schedule, so run it
// off the fan-out path.
func (p *WebhookPublisher) Notify(ctx context.Context, ev events.ChangeEvent) error {
	body, err := json.Marshal(ev.Payload())
	if err != nil {
		return fmt.Errorf("marshal webhook body: %w", err)
	}

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Sync-Event", ev.EventType())

		resp, err := p.client.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("webhook request: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode < 300:
			return struct{}{}, nil
		case resp.StatusCode >= 500:
			return struct{}{}, fmt.Errorf("webhook returned %d", resp.StatusCode)
		default:
			return struct{}{}, backoff.Permanent(fmt.Errorf("webhook returned %d", resp.StatusCode))
		}
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(p.maxAttempts)),
	)
	if err != nil {
		p.logger.Error("Integration", "Webhook delivery failed", map[string]interface{}{"event": ev.EventType(), "error": err.Error()})
		return err
	}
	return nil
}
