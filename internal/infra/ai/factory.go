package ai

import (
	"time"

	"github.com/bryanwahyu/paperlens/internal/domain/analysis"
	"github.com/bryanwahyu/paperlens/internal/infra/ai/native"
	"github.com/bryanwahyu/paperlens/internal/infra/ai/openaicompat"
)

// NewClient resolves a provider id and builds the transport for its protocol.
// endpointOverride replaces the descriptor's endpoint base; the custom
// provider requires it.
func NewClient(providerID, apiKey, endpointOverride string, timeout time.Duration) (analysis.CompletionClient, error) {
	d, err := Resolve(providerID)
	if err != nil {
		return nil, err
	}

	endpoint := d.EndpointBase
	if endpointOverride != "" {
		endpoint = endpointOverride
	}
	if endpoint == "" {
		return nil, &analysis.ConfigurationError{Reason: "provider " + providerID + " requires an endpoint override"}
	}

	switch d.Protocol {
	case ProtocolNative:
		return native.NewClient(endpoint, apiKey, timeout)
	default:
		return openaicompat.NewClient(endpoint, apiKey, timeout)
	}
}

// DefaultModel returns the descriptor's default model, or "" for unknown ids.
func DefaultModel(providerID string) string {
	d, err := Resolve(providerID)
	if err != nil {
		return ""
	}
	return d.DefaultModel
}
