package llm

import (
	"context"

	"go.uber.org/zap"
)

// Manager iterates providers in configured priority order and returns the
// first successful generation. The core functions with zero providers: the
// manager then reports unavailability and callers degrade to "no answer".
type Manager struct {
	providers []Provider
	logger    *zap.Logger
}

// NewManager creates a manager over providers, tried in the given order.
func NewManager(providers []Provider, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		providers: providers,
		logger:    logger,
	}
}

// Generate produces a response for the prompt via the first available
// provider. Returns ErrProviderUnavailable when every provider fails or
// none is configured.
func (m *Manager) Generate(ctx context.Context, prompt string) (string, error) {
	for _, p := range m.providers {
		out, err := p.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		m.logger.Debug("llm provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.Error(err))
	}
	return "", ErrProviderUnavailable
}
