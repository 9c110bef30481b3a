package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/paperlens/internal/domain/analysis"
)

func TestResolveKnownProviders(t *testing.T) {
	tests := []struct {
		id       string
		protocol Protocol
	}{
		{"gemini", ProtocolNative},
		{"openai", ProtocolOpenAI},
		{"anthropic", ProtocolOpenAI},
		{"deepseek", ProtocolOpenAI},
		{"openrouter", ProtocolOpenAI},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			d, err := Resolve(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.id, d.ID)
			assert.Equal(t, tt.protocol, d.Protocol)
			assert.NotEmpty(t, d.EndpointBase)
			assert.NotEmpty(t, d.DefaultModel)
		})
	}
}

func TestResolveCustom(t *testing.T) {
	d, err := Resolve(ProviderCustom)
	require.NoError(t, err)
	assert.Equal(t, ProtocolOpenAI, d.Protocol)
	assert.Empty(t, d.EndpointBase, "caller must supply the endpoint")
	assert.Empty(t, d.DefaultModel)
}

func TestResolveUnknown(t *testing.T) {
	_, err := Resolve("nonexistent")
	var cfgErr *analysis.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestProvidersIncludesCustom(t *testing.T) {
	assert.Contains(t, Providers(), ProviderCustom)
	assert.Contains(t, Providers(), "gemini")
}

func TestNewClientCustomRequiresEndpoint(t *testing.T) {
	_, err := NewClient(ProviderCustom, "key", "", time.Second)
	var cfgErr *analysis.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	client, err := NewClient(ProviderCustom, "key", "https://llm.internal/v1", time.Second)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewCriticRequiresModelForCustom(t *testing.T) {
	_, err := NewCritic(Spec{Provider: ProviderCustom, APIKey: "k", Endpoint: "https://llm.internal/v1"}, time.Second)
	var cfgErr *analysis.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	critic, err := NewCritic(Spec{Provider: ProviderCustom, APIKey: "k", Endpoint: "https://llm.internal/v1", Model: "m"}, time.Second)
	require.NoError(t, err)
	assert.NotNil(t, critic)
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash", DefaultModel("gemini"))
	assert.Empty(t, DefaultModel("nonexistent"))
}
