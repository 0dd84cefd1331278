// Package astro is the REST client for the external astrology backend,
// which owns chart computation, AI completion and knowledge retrieval.
// This gateway only calls it and interprets its responses.
package astro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Per-endpoint deadlines. Chat gets the longest window because the backend
// runs a retrieval-augmented completion; the form submission is
// fire-and-forget and gives up quickly.
const (
	chatTimeout  = 40 * time.Second
	chartTimeout = 30 * time.Second
	formTimeout  = 15 * time.Second
)

// BirthDetails is the request body shared by the kundli, chart and
// form-submit endpoints.
type BirthDetails struct {
	Name     string `json:"name"`
	DOB      string `json:"dob"`
	TOB      string `json:"tob"`
	Place    string `json:"place"`
	Timezone string `json:"timezone"`
}

// ChatRequest is the body of POST /api/chat. ChartData is optional; the
// backend must tolerate its absence.
type ChatRequest struct {
	Message   string          `json:"message"`
	ChartData json.RawMessage `json:"chart_data,omitempty"`
}

// ChatResponse is the part of the chat reply this gateway consumes.
type ChatResponse struct {
	Response string `json:"response"`
}

// HealthStatus mirrors the backend's liveness/feature-flag probe.
type HealthStatus struct {
	Status   string          `json:"status"`
	Features map[string]bool `json:"features,omitempty"`
}

type chartEnvelope struct {
	Success   bool            `json:"success"`
	ChartData json.RawMessage `json:"chart_data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Client is the backend surface the rest of the gateway depends on.
type Client interface {
	// Chat sends a user message with optional chart context. On the first
	// failure it retries exactly once with the chart context dropped.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// Kundli requests the raw chart-data payload.
	Kundli(ctx context.Context, details BirthDetails) (json.RawMessage, error)

	// Chart requests the renderable visual-chart payload.
	Chart(ctx context.Context, details BirthDetails) (json.RawMessage, error)

	// SubmitForm records a form submission. Failures are logged and
	// swallowed here; the caller never sees them.
	SubmitForm(ctx context.Context, details BirthDetails)

	// Health probes backend liveness and feature flags.
	Health(ctx context.Context) (HealthStatus, error)
}

// HTTPClient implements Client against a base URL.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a backend client. Deadlines are applied per call,
// not on the shared http.Client.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// Chat implements the chat call with its single reduced-payload retry.
func (c *HTTPClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var out ChatResponse
	err := c.post(ctx, "/api/chat", chatTimeout, req, &out)
	if err == nil {
		return out, nil
	}

	slog.Warn("chat request failed, retrying with reduced payload", "error", err)
	req.ChartData = nil
	if err := c.post(ctx, "/api/chat", chatTimeout, req, &out); err != nil {
		return ChatResponse{}, fmt.Errorf("chat request: %w", err)
	}
	return out, nil
}

// Kundli implements the chart-data call. No automatic retry.
func (c *HTTPClient) Kundli(ctx context.Context, details BirthDetails) (json.RawMessage, error) {
	return c.chartCall(ctx, "/api/kundli", details)
}

// Chart implements the visual-chart call. No automatic retry.
func (c *HTTPClient) Chart(ctx context.Context, details BirthDetails) (json.RawMessage, error) {
	return c.chartCall(ctx, "/api/chart", details)
}

func (c *HTTPClient) chartCall(ctx context.Context, path string, details BirthDetails) (json.RawMessage, error) {
	var env chartEnvelope
	if err := c.post(ctx, path, chartTimeout, details, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !env.Success || len(env.ChartData) == 0 {
		// Remote error bodies are for the logs, never for the widget.
		slog.Error("backend reported chart failure", "path", path, "remote_error", env.Error)
		return nil, fmt.Errorf("%s: backend reported failure", path)
	}
	return env.ChartData, nil
}

// SubmitForm fires the form submission and swallows any failure.
func (c *HTTPClient) SubmitForm(ctx context.Context, details BirthDetails) {
	var ack struct {
		Success bool `json:"success"`
	}
	if err := c.post(ctx, "/api/form-submit", formTimeout, details, &ack); err != nil {
		slog.Warn("form submission failed, continuing without it", "error", err)
	}
}

// Health implements the liveness probe.
func (c *HTTPClient) Health(ctx context.Context) (HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, formTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("health request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return HealthStatus{}, fmt.Errorf("decode health response: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, timeout time.Duration, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Debug("backend returned non-2xx", "path", path, "status", resp.StatusCode, "body", string(raw))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
