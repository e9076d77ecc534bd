package embeddings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// slowProvider blocks until its context is cancelled.
type slowProvider struct{}

func (slowProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowProvider) Dimension() int { return 3 }
func (slowProvider) Name() string   { return "slow" }
func (slowProvider) Close() error   { return nil }

func TestGatewayReturnsVector(t *testing.T) {
	static := NewStaticProvider(map[string][]float32{
		"hello": {1, 0, 0},
	})
	g := NewGateway([]Provider{static}, zap.NewNop())

	vec := g.Embed(context.Background(), "hello")
	require.NotNil(t, vec)
	assert.Equal(t, []float32{1, 0, 0}, vec)
}

func TestGatewayReturnsNilWhenAllProvidersFail(t *testing.T) {
	static := NewStaticProvider(nil)
	g := NewGateway([]Provider{static}, zap.NewNop())

	assert.Nil(t, g.Embed(context.Background(), "anything"))
}

func TestGatewayReturnsNilWithNoProviders(t *testing.T) {
	g := NewGateway(nil, zap.NewNop())
	assert.Nil(t, g.Embed(context.Background(), "anything"))
}

func TestGatewayFallsThroughToNextProvider(t *testing.T) {
	failing := NewStaticProvider(nil)
	working := NewStaticProvider(map[string][]float32{
		"q": {0, 1, 0},
	})
	g := NewGateway([]Provider{failing, working}, zap.NewNop())

	vec := g.Embed(context.Background(), "q")
	assert.Equal(t, []float32{0, 1, 0}, vec)
}

func TestGatewayTimeoutTreatedAsUnavailable(t *testing.T) {
	g := NewGateway([]Provider{slowProvider{}}, zap.NewNop(), WithTimeout(10*time.Millisecond))

	start := time.Now()
	vec := g.Embed(context.Background(), "q")
	assert.Nil(t, vec)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewProviderUnknownType(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Provider: "carrier-pigeon"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDetectDimension(t *testing.T) {
	assert.Equal(t, 384, detectDimension("bge-small-en-v1.5"))
	assert.Equal(t, 768, detectDimension("gte-base-en-v1.5"))
	assert.Equal(t, 1024, detectDimension("bge-large-en-v1.5"))
	assert.Equal(t, 384, detectDimension("mystery-model"))
}
