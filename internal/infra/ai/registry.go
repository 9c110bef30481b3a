package ai

import "github.com/bryanwahyu/paperlens/internal/domain/analysis"

// Protocol selects the wire shape of a provider backend.
type Protocol string

const (
	// ProtocolNative is the Gemini-style generateContent API: key in the URL
	// query string, text at candidates[0].content.parts.
	ProtocolNative Protocol = "native"
	// ProtocolOpenAI is any {base}/chat/completions compatible API.
	ProtocolOpenAI Protocol = "openai-compatible"
)

// Auth schemes for OpenAI-compatible providers. Anthropic is special-cased by
// endpoint host, not protocol: same body shape, different header pair.
const (
	AuthBearer    = "bearer"
	AuthAnthropic = "anthropic"
)

// ProviderCustom accepts any endpoint/model supplied by the caller.
const ProviderCustom = "custom"

// Descriptor is a static description of one provider backend.
type Descriptor struct {
	ID           string
	EndpointBase string
	Protocol     Protocol
	DefaultModel string
	AuthScheme   string
}

var descriptors = map[string]Descriptor{
	"gemini": {
		ID:           "gemini",
		EndpointBase: "https://generativelanguage.googleapis.com/v1beta",
		Protocol:     ProtocolNative,
		DefaultModel: "gemini-2.0-flash",
	},
	"openai": {
		ID:           "openai",
		EndpointBase: "https://api.openai.com/v1",
		Protocol:     ProtocolOpenAI,
		DefaultModel: "gpt-4o-mini",
		AuthScheme:   AuthBearer,
	},
	"anthropic": {
		ID:           "anthropic",
		EndpointBase: "https://api.anthropic.com/v1",
		Protocol:     ProtocolOpenAI,
		DefaultModel: "claude-3-5-sonnet-latest",
		AuthScheme:   AuthAnthropic,
	},
	"deepseek": {
		ID:           "deepseek",
		EndpointBase: "https://api.deepseek.com/v1",
		Protocol:     ProtocolOpenAI,
		DefaultModel: "deepseek-chat",
		AuthScheme:   AuthBearer,
	},
	"openrouter": {
		ID:           "openrouter",
		EndpointBase: "https://openrouter.ai/api/v1",
		Protocol:     ProtocolOpenAI,
		DefaultModel: "openrouter/auto",
		AuthScheme:   AuthBearer,
	},
}

// Resolve returns the descriptor for a provider id. The generic "custom"
// variant resolves to an OpenAI-compatible descriptor with no endpoint; the
// caller must supply one.
func Resolve(id string) (Descriptor, error) {
	if id == ProviderCustom {
		return Descriptor{ID: ProviderCustom, Protocol: ProtocolOpenAI, AuthScheme: AuthBearer}, nil
	}
	d, ok := descriptors[id]
	if !ok {
		return Descriptor{}, &analysis.ConfigurationError{Reason: "unknown provider: " + id}
	}
	return d, nil
}

// Providers lists the registered provider ids.
func Providers() []string {
	names := make([]string, 0, len(descriptors)+1)
	for name := range descriptors {
		names = append(names, name)
	}
	names = append(names, ProviderCustom)
	return names
}
