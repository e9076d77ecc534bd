// Package llm provides the fallback text-generation providers invoked when
// neither the pathway store nor the response cache can answer a request.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider-level errors.
var (
	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrProviderUnavailable indicates no provider could generate a response.
	ErrProviderUnavailable = errors.New("llm provider unavailable")
)

// Provider defines the interface for fallback text generation.
type Provider interface {
	// Generate produces a response for the given prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Name returns the provider identifier (e.g. "openai", "stub").
	Name() string
}

// ProviderConfig holds configuration for creating an LLM provider.
type ProviderConfig struct {
	// Provider is the provider type: "openai" or "stub".
	Provider string `koanf:"provider"`

	// Model is the model name.
	Model string `koanf:"model"`

	// BaseURL is the API endpoint; any OpenAI-compatible server works.
	BaseURL string `koanf:"base_url"`

	// APIKey is the API key, if the endpoint requires one.
	APIKey string `koanf:"api_key"`
}

// NewProvider creates an LLM provider from configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(cfg)
	case "stub":
		return NewStubProvider(""), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
