package native

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bryanwahyu/paperlens/internal/domain/analysis"
)

// Client speaks the native generateContent protocol: one POST per request,
// the API key in the URL query string, response text at a fixed nested path
// in the envelope (first candidate, first content part).
type Client struct {
	endpointBase string
	apiKey       string
	httpc        *http.Client
}

func NewClient(endpointBase, apiKey string, timeout time.Duration) (*Client, error) {
	if endpointBase == "" {
		return nil, &analysis.ConfigurationError{Reason: "native provider endpoint is empty"}
	}
	if apiKey == "" {
		return nil, &analysis.ConfigurationError{Reason: "native provider api key is empty"}
	}
	return &Client{
		endpointBase: endpointBase,
		apiKey:       apiKey,
		httpc:        &http.Client{Timeout: timeout},
	}, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float32 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Complete executes one provider call. Transport failures map to
// NetworkError, non-2xx to UpstreamError, and an envelope with no candidates
// to the distinct blocked-output condition.
func (c *Client) Complete(ctx context.Context, req analysis.CompletionRequest) (string, error) {
	text := req.Prompt
	if req.SystemPrompt != "" {
		text = req.SystemPrompt + "\n\n" + req.Prompt
	}
	body := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: text}}}},
		GenerationConfig: generationConfig{Temperature: req.Temperature},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	apiURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpointBase, req.Model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return "", &analysis.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &analysis.UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}

	var envelope generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", &analysis.UpstreamError{Status: resp.StatusCode, Body: "malformed response envelope"}
	}
	if len(envelope.Candidates) == 0 {
		return "", &analysis.UpstreamError{Status: resp.StatusCode, Blocked: true}
	}
	parts := envelope.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", &analysis.UpstreamError{Status: resp.StatusCode, Blocked: true}
	}
	return parts[0].Text, nil
}
