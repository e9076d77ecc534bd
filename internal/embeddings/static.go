package embeddings

import (
	"context"
	"fmt"
)

// StaticProvider returns pre-seeded vectors for known texts. It exists for
// tests and offline development; unknown texts yield ErrProviderUnavailable
// so callers exercise the lexical fallback path.
type StaticProvider struct {
	vectors   map[string][]float32
	dimension int
}

// NewStaticProvider creates a static provider with the given text→vector map.
func NewStaticProvider(vectors map[string][]float32) *StaticProvider {
	dim := 3
	for _, v := range vectors {
		dim = len(v)
		break
	}
	return &StaticProvider{
		vectors:   vectors,
		dimension: dim,
	}
}

// EmbedQuery returns the seeded vector for text.
func (p *StaticProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := p.vectors[text]; ok {
		return vec, nil
	}
	return nil, fmt.Errorf("%w: no static vector for text", ErrProviderUnavailable)
}

// Dimension returns the vector dimension.
func (p *StaticProvider) Dimension() int {
	return p.dimension
}

// Name returns the provider identifier.
func (p *StaticProvider) Name() string {
	return "static"
}

// Close is a no-op.
func (p *StaticProvider) Close() error {
	return nil
}
