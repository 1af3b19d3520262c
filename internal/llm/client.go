package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"mailpilot/pkg/circuitbreaker"
	"mailpilot/pkg/metrics"
	"mailpilot/pkg/trace"
)

const generateEndpoint = "/generate"

// ClientConfig configures the HTTP generation client.
type ClientConfig struct {
	BaseURL        string                `yaml:"base_url"`
	Timeout        time.Duration         `yaml:"timeout"`
	CircuitBreaker circuitbreaker.Config `yaml:"circuit_breaker"`
}

// Client calls the agent service's structured generation endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

type generateRequest struct {
	System     string             `json:"system"`
	Prompt     string             `json:"prompt"`
	Schema     *jsonschema.Schema `json:"schema"`
	UsageLabel string             `json:"usage_label,omitempty"`
	UserEmail  string             `json:"user_email,omitempty"`
}

type generateResponse struct {
	Object json.RawMessage `json:"object"`
}

// NewClient creates a client. A zero timeout means 30s.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		cb:         circuitbreaker.NewCircuitBreaker(cfg.CircuitBreaker),
		logger:     logger,
	}
}

// Generate implements Generator. It makes at most one HTTP attempt; callers
// own any retry policy.
func (c *Client) Generate(ctx context.Context, req Request, out any) error {
	var raw json.RawMessage

	err := c.cb.Execute(func() error {
		var callErr error
		raw, callErr = c.call(ctx, req)
		return callErr
	})
	if err != nil {
		return err
	}

	// Invalid output is the model's fault, not the service's, so it is checked
	// outside the breaker.
	return DecodeObject(raw, req.Schema, out)
}

func (c *Client) call(ctx context.Context, req Request) (json.RawMessage, error) {
	start := time.Now()
	status := "success"
	defer func() {
		metrics.RecordAgentCallLatency(generateEndpoint, status, time.Since(start))
	}()

	body, err := json.Marshal(generateRequest{
		System:     req.System,
		Prompt:     req.Prompt,
		Schema:     req.Schema,
		UsageLabel: req.UsageLabel,
		UserEmail:  req.UserEmail,
	})
	if err != nil {
		status = "error"
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generateEndpoint, bytes.NewReader(body))
	if err != nil {
		status = "error"
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if traceID := trace.FromContext(ctx); traceID != "" {
		httpReq.Header.Set(trace.HeaderName, traceID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		status = "error"
		return nil, fmt.Errorf("failed to call agent service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		status = "5xx"
		return nil, fmt.Errorf("agent service returned error: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		status = strconv.Itoa(resp.StatusCode)
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("agent service returned error: %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		status = "bad_body"
		return nil, fmt.Errorf("failed to decode agent response: %w", err)
	}
	if len(gr.Object) == 0 {
		status = "bad_body"
		return nil, fmt.Errorf("%w: response has no object", ErrSchemaValidation)
	}

	c.logger.Debug("Generation call completed",
		zap.String("usage_label", req.UsageLabel),
		zap.Duration("took", time.Since(start)),
	)
	return gr.Object, nil
}
