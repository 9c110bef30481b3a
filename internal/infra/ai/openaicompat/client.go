package openaicompat

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/paperlens/internal/domain/analysis"
)

// anthropicVersion is the fixed protocol version header value Anthropic
// requires alongside x-api-key.
const anthropicVersion = "2023-06-01"

// anthropicHost marks the one vendor that rejects bearer auth. The exception
// is keyed on endpoint host, not protocol: the body shape is identical.
const anthropicHost = "api.anthropic.com"

// Client wraps any {base}/chat/completions compatible backend.
type Client struct {
	api *openai.Client
}

// headerRewriteTransport swaps the default bearer header for the
// x-api-key/anthropic-version pair on requests to the Anthropic host.
type headerRewriteTransport struct {
	apiKey string
	base   http.RoundTripper
}

func (t *headerRewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.EqualFold(req.URL.Host, anthropicHost) {
		req = req.Clone(req.Context())
		req.Header.Del("Authorization")
		req.Header.Set("x-api-key", t.apiKey)
		req.Header.Set("anthropic-version", anthropicVersion)
	}
	return t.base.RoundTrip(req)
}

func NewClient(endpointBase, apiKey string, timeout time.Duration) (*Client, error) {
	if endpointBase == "" {
		return nil, &analysis.ConfigurationError{Reason: "provider endpoint is empty"}
	}
	if apiKey == "" {
		return nil, &analysis.ConfigurationError{Reason: "provider api key is empty"}
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(endpointBase, "/")
	cfg.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &headerRewriteTransport{
			apiKey: apiKey,
			base:   http.DefaultTransport,
		},
	}
	return &Client{api: openai.NewClientWithConfig(cfg)}, nil
}

// Complete sends one system+user message pair to {base}/chat/completions.
func (c *Client) Complete(ctx context.Context, req analysis.CompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &analysis.UpstreamError{Status: http.StatusOK, Blocked: true}
	}
	return resp.Choices[0].Message.Content, nil
}

// classify separates HTTP-layer provider failures from network-layer ones so
// the caller can present an actionable message.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &analysis.UpstreamError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &analysis.UpstreamError{Status: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &analysis.NetworkError{Err: urlErr}
	}
	return &analysis.NetworkError{Err: err}
}
