// Package embeddings provides embedding generation behind a gateway that
// degrades gracefully when no provider is reachable.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider-level errors.
var (
	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrProviderUnavailable indicates the provider could not produce a vector.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
)

// Provider generates vector embeddings from text.
type Provider interface {
	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension for the configured model.
	Dimension() int

	// Name returns the provider identifier (e.g. "openai", "ollama").
	Name() string

	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider type: "openai", "ollama" or "static".
	Provider string `koanf:"provider"`

	// Model is the embedding model name.
	Model string `koanf:"model"`

	// BaseURL is the API endpoint. For "openai" this may point at any
	// OpenAI-compatible server, including a local TEI instance.
	BaseURL string `koanf:"base_url"`

	// APIKey is the API key, if the endpoint requires one.
	APIKey string `koanf:"api_key"`
}

// NewProvider creates an embedding provider from configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(cfg)
	case "ollama":
		return NewOllamaProvider(cfg)
	case "static":
		return NewStaticProvider(nil), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// detectDimension returns the embedding dimension for a model name.
// Falls back to 384, the dimension of the default small models.
func detectDimension(model string) int {
	switch {
	case strings.Contains(model, "large"):
		return 1024
	case strings.Contains(model, "base"):
		return 768
	default:
		return 384
	}
}
