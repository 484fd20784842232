package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// webhookTimeout bounds one request, response body included.
const webhookTimeout = 30 * time.Second

// WebhookDriver issues a single GET or POST to a configured URL.
type WebhookDriver struct {
	client *http.Client
}

// NewWebhookDriver creates a webhook driver with its own pooled client.
func NewWebhookDriver() *WebhookDriver {
	return &WebhookDriver{
		client: &http.Client{Timeout: webhookTimeout},
	}
}

type webhookConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    *string           `json:"body"`
}

// Execute performs the request. Any 2xx is success and the response body is
// captured as stdout; everything else, transport failures included, is an
// error carrying the status and body.
func (d *WebhookDriver) Execute(ctx context.Context, configJSON string) (Result, error) {
	var cfg webhookConfig
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return Result{}, fmt.Errorf("Failed to parse webhook config: %v", err)
	}

	method := strings.ToUpper(cfg.Method)
	if method != http.MethodGet && method != http.MethodPost {
		return Result{}, fmt.Errorf("Unsupported HTTP method: %s", cfg.Method)
	}

	var body io.Reader
	if cfg.Body != nil {
		body = strings.NewReader(*cfg.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, body)
	if err != nil {
		return Result{}, fmt.Errorf("Failed to execute webhook: %v", err)
	}
	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}
	if cfg.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, errors.New("Webhook timeout (30s)")
		}
		return Result{}, fmt.Errorf("Failed to execute webhook: %v", err)
	}
	defer resp.Body.Close()

	respBody := "(failed to read body)"
	if b, err := io.ReadAll(resp.Body); err == nil {
		respBody = string(b)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("Webhook failed with HTTP %d: %s", resp.StatusCode, respBody)
	}
	return Result{
		Stdout: fmt.Sprintf("Webhook executed successfully (HTTP %d)", resp.StatusCode),
		Stderr: respBody,
	}, nil
}
