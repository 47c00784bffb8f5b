package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// DefaultWebhookTimeout bounds a single delivery.
const DefaultWebhookTimeout = 30 * time.Second

// WebhookNotifier POSTs envelopes to a Power Automate HTTP trigger.
// Only a 200 response counts as delivered.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewWebhookNotifier(url string, timeout time.Duration, logger *slog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.With("component", "webhook_notifier"),
		now:    time.Now,
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Deliver(ctx context.Context, action domain.AutomationAction, payload domain.AutomationPayload) domain.DeliveryResult {
	result := domain.DeliveryResult{Sink: w.Name()}

	body, err := NewEnvelope(action, payload, w.now()).Marshal()
	if err != nil {
		result.Err = fmt.Errorf("encode envelope: %w", err)
		return result
	}

	status, err := w.post(ctx, body)
	result.StatusCode = status
	if err != nil {
		result.Err = err
		w.logger.Error("Webhook delivery failed", "workflow", action.Workflow(), "error", err)
		return result
	}

	result.Delivered = true
	w.logger.Info("Workflow triggered", "workflow", action.Workflow(), "device_id", payload.DeviceID)
	return result
}

// TestConnection sends a marker message. Startup logs the outcome and
// continues either way.
func (w *WebhookNotifier) TestConnection(ctx context.Context) error {
	body := fmt.Appendf(nil, `{"test":true,"timestamp":%q,"message":"Connection test from %s"}`,
		w.now().UTC().Format(time.RFC3339), Source)
	_, err := w.post(ctx, body)
	return err
}

func (w *WebhookNotifier) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, fmt.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
