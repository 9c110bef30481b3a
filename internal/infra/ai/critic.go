package ai

import (
	"context"
	"time"

	"github.com/bryanwahyu/paperlens/internal/domain/analysis"
	"github.com/bryanwahyu/paperlens/internal/infra/ai/normalize"
	"github.com/bryanwahyu/paperlens/internal/infra/ai/prompt"
)

const systemPreamble = "You are a meticulous research methodology reviewer."

// Critic composes the prompt builder, one transport adapter and the
// normalizer into a single critique cycle.
type Critic struct {
	client  analysis.CompletionClient
	model   string
	variant prompt.Variant
}

// Spec selects the backend for one critique.
type Spec struct {
	Provider string
	APIKey   string
	Endpoint string // override; required for the custom provider
	Model    string
	Variant  prompt.Variant
}

func NewCritic(spec Spec, timeout time.Duration) (*Critic, error) {
	client, err := NewClient(spec.Provider, spec.APIKey, spec.Endpoint, timeout)
	if err != nil {
		return nil, err
	}
	model := spec.Model
	if model == "" {
		model = DefaultModel(spec.Provider)
	}
	if model == "" {
		return nil, &analysis.ConfigurationError{Reason: "provider " + spec.Provider + " requires a model"}
	}
	return &Critic{client: client, model: model, variant: spec.Variant}, nil
}

// Critique runs transport then normalization, strictly in that order. Both
// failure kinds surface verbatim; there is no retry.
func (c *Critic) Critique(ctx context.Context, documentText string, temperature float32) (*analysis.Result, error) {
	raw, err := c.client.Complete(ctx, analysis.CompletionRequest{
		SystemPrompt: systemPreamble,
		Prompt:       prompt.Build(documentText, c.variant),
		Model:        c.model,
		Temperature:  temperature,
	})
	if err != nil {
		return nil, err
	}
	return normalize.Normalize(raw)
}
