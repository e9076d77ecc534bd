package embeddings

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single provider call. Embedding is an
// optimization; a slow provider must not stall request handling.
const DefaultTimeout = 300 * time.Millisecond

// Gateway wraps a priority-ordered list of embedding providers.
//
// Embed never returns an error: provider failures and timeouts yield a nil
// vector, and callers fall back to lexical similarity. This is the graceful
// degradation contract the cache and consolidator rely on.
type Gateway struct {
	providers []Provider
	timeout   time.Duration
	logger    *zap.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithTimeout sets the per-provider call timeout.
func WithTimeout(timeout time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.timeout = timeout
	}
}

// NewGateway creates a gateway over providers, tried in the given order.
func NewGateway(providers []Provider, logger *zap.Logger, opts ...GatewayOption) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gateway{
		providers: providers,
		timeout:   DefaultTimeout,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Embed returns an embedding for text, or nil if no provider can produce
// one. Timeouts count as unavailability, never as fatal errors.
func (g *Gateway) Embed(ctx context.Context, text string) []float32 {
	for _, p := range g.providers {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		vec, err := p.EmbedQuery(callCtx, text)
		cancel()

		if err == nil && len(vec) > 0 {
			embedRequests.WithLabelValues(p.Name(), "ok").Inc()
			return vec
		}

		embedRequests.WithLabelValues(p.Name(), "unavailable").Inc()
		g.logger.Debug("embedding provider unavailable",
			zap.String("provider", p.Name()),
			zap.Error(err))
	}
	return nil
}

// Available reports whether any provider currently yields a vector for a
// cheap probe text. Used for diagnostics only.
func (g *Gateway) Available(ctx context.Context) bool {
	return g.Embed(ctx, "ping") != nil
}

// Close releases all providers.
func (g *Gateway) Close() error {
	var firstErr error
	for _, p := range g.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
