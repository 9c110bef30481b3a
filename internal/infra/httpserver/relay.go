package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "github.com/bryanwahyu/paperlens/internal/domain/analysis"
	"github.com/bryanwahyu/paperlens/internal/middleware"
)

const (
	relayAnthropicHost    = "api.anthropic.com"
	relayAnthropicVersion = "2023-06-01"
	relayMaxBody          = 1 << 20
)

// relayRequest is the proxied provider call: the browser never holds the
// upstream connection, only this server does.
type relayRequest struct {
	Endpoint string         `json:"endpoint"`
	APIKey   string         `json:"api_key"`
	Model    string         `json:"model"`
	Messages []relayMessage `json:"messages"`
}

type relayMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// relayError carries an explicit HTTP status chosen by the relay itself.
type relayError struct {
	Status int
	Reason string
}

func (e *relayError) Error() string { return e.Reason }

type relayClient struct {
	allowed map[string]bool // origin (scheme://host) -> permitted
	client  *http.Client
}

func newRelayClient(allowedOrigins []string, timeout time.Duration) *relayClient {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &relayClient{
		allowed: allowed,
		client:  &http.Client{Timeout: timeout},
	}
}

// Forward validates the target against the configured allow-list and proxies
// the call. Upstream failures come back as 502 with the upstream body so the
// caller can see what the provider said.
func (c *relayClient) Forward(ctx context.Context, req relayRequest) (int, []byte, error) {
	if req.Endpoint == "" || req.Model == "" || len(req.Messages) == 0 {
		return 0, nil, &relayError{Status: http.StatusBadRequest, Reason: "endpoint, model and messages are required"}
	}
	if err := middleware.ValidateEndpointURL(req.Endpoint); err != nil {
		return 0, nil, &relayError{Status: http.StatusBadRequest, Reason: err.Error()}
	}
	origin, err := middleware.OriginOf(req.Endpoint)
	if err != nil {
		return 0, nil, &relayError{Status: http.StatusBadRequest, Reason: err.Error()}
	}
	if !c.allowed[origin] {
		return 0, nil, &relayError{Status: http.StatusForbidden, Reason: "endpoint origin not in allow-list: " + origin}
	}

	payload, err := json.Marshal(map[string]any{
		"model":    req.Model,
		"messages": req.Messages,
	})
	if err != nil {
		return 0, nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, &relayError{Status: http.StatusBadRequest, Reason: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Anthropic wants its own header pair; everyone else takes a bearer token.
	if httpReq.URL.Hostname() == relayAnthropicHost {
		httpReq.Header.Set("X-Api-Key", req.APIKey)
		httpReq.Header.Set("Anthropic-Version", relayAnthropicVersion)
	} else if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return 0, nil, &domain.NetworkError{Err: fmt.Errorf("relay to %s: %w", origin, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, relayMaxBody))
	if err != nil {
		return 0, nil, &domain.NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return http.StatusBadGateway, body, nil
	}
	return http.StatusOK, body, nil
}
