package feedback

import (
	"context"
	"math"
	"testing"

	"github.com/fyrsmithlabs/autoreply/internal/anomaly"
	"github.com/fyrsmithlabs/autoreply/internal/cache"
	"github.com/fyrsmithlabs/autoreply/internal/embeddings"
	"github.com/fyrsmithlabs/autoreply/internal/pathway"
	"github.com/fyrsmithlabs/autoreply/internal/record"
	"github.com/fyrsmithlabs/autoreply/internal/tier"
	"github.com/fyrsmithlabs/autoreply/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	cache    *cache.Store
	pathways *pathway.Store
	proc     *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	vs, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{Path: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	gateway := embeddings.NewGateway(
		[]embeddings.Provider{embeddings.NewStaticProvider(nil)},
		zap.NewNop(),
	)
	filter := anomaly.NewFilter(anomaly.Config{}, zap.NewNop())

	cacheStore, err := cache.NewStore(t.TempDir(), vs, gateway, filter, cache.Config{}, zap.NewNop())
	require.NoError(t, err)

	pathways, err := pathway.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	return &fixture{
		cache:    cacheStore,
		pathways: pathways,
		proc:     NewProcessor(cacheStore, pathways, tier.NewManager(zap.NewNop()), zap.NewNop()),
	}
}

func TestApplyRejectsInvalidEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.proc.Apply(ctx, Event{Query: "q", Verdict: "great"})
	assert.ErrorIs(t, err, ErrInvalidVerdict)

	_, err = f.proc.Apply(ctx, Event{Query: "q", Verdict: VerdictPositive, Score: 1.5})
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = f.proc.Apply(ctx, Event{Query: "nobody cached this", Verdict: VerdictPositive})
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestPositiveFeedbackRaisesConfidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.cache.Put(ctx, "how to exit vim", "Press Esc then :q.", "llm")
	require.NoError(t, err)

	outcome, err := f.proc.Apply(ctx, Event{Query: "how to exit vim", Verdict: VerdictPositive})
	require.NoError(t, err)
	assert.Equal(t, "cache", outcome.Target)
	assert.Equal(t, entry.ID, outcome.EntryID)
	assert.InDelta(t, 0.6, outcome.Confidence, 1e-9)

	got, err := f.cache.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.SuccessCount)
}

func TestThreePositivesPromoteColdToWarm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cache.Put(ctx, "how to exit vim", "Press Esc then :q.", "llm")
	require.NoError(t, err)

	var outcome *Outcome
	for i := 0; i < 3; i++ {
		outcome, err = f.proc.Apply(ctx, Event{Query: "how to exit vim", Verdict: VerdictPositive})
		require.NoError(t, err)
	}
	assert.Equal(t, string(record.TierWarm), outcome.Tier)
	assert.InDelta(t, 0.8, outcome.Confidence, 1e-9)
}

func TestTenSuccessesReachHot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cache.Put(ctx, "how to exit vim", "Press Esc then :q.", "llm")
	require.NoError(t, err)

	var outcome *Outcome
	for i := 0; i < 10; i++ {
		outcome, err = f.proc.Apply(ctx, Event{Query: "how to exit vim", Verdict: VerdictPositive})
		require.NoError(t, err)
	}
	assert.Equal(t, string(record.TierHot), outcome.Tier)
	assert.Equal(t, 1.0, outcome.Confidence)
}

func TestConfidenceStaysWithinBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cache.Put(ctx, "how to exit vim", "Press Esc then :q.", "llm")
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		outcome, err := f.proc.Apply(ctx, Event{Query: "how to exit vim", Verdict: VerdictPositive})
		require.NoError(t, err)
		assert.LessOrEqual(t, outcome.Confidence, 1.0)
		assert.GreaterOrEqual(t, outcome.Confidence, 0.0)
	}
}

func TestSustainedNegativesRemoveEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.cache.Put(ctx, "how to exit vim", "wrong answer", "llm")
	require.NoError(t, err)

	removed := false
	for i := 0; i < 10 && !removed; i++ {
		outcome, err := f.proc.Apply(ctx, Event{Query: "how to exit vim", Verdict: VerdictNegative})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, outcome.Confidence, 0.0)
		removed = outcome.Removed
	}
	assert.True(t, removed)

	_, err = f.cache.Get(entry.ID)
	assert.ErrorIs(t, err, cache.ErrEntryNotFound)
}

func TestNeutralFeedbackLeavesStatsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.cache.Put(ctx, "how to exit vim", "Press Esc then :q.", "llm")
	require.NoError(t, err)

	outcome, err := f.proc.Apply(ctx, Event{Query: "how to exit vim", Verdict: VerdictNeutral})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, outcome.Confidence, 1e-9)

	got, err := f.cache.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stats.SuccessCount)
	assert.Equal(t, 0, got.Stats.FailCount)
}

func TestThreeDistinctSessionsGeneralizeIntoPathway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cache.Put(ctx, "how to exit vim", "Press Esc then :q.", "llm")
	require.NoError(t, err)

	for i, session := range []string{"s1", "s2"} {
		outcome, err := f.proc.Apply(ctx, Event{
			Query:     "how to exit vim",
			Verdict:   VerdictPositive,
			SessionID: session,
		})
		require.NoError(t, err, "event %d", i)
		assert.False(t, outcome.Generalized)
	}
	assert.Equal(t, 0, f.pathways.Len())

	outcome, err := f.proc.Apply(ctx, Event{
		Query:     "how to exit vim",
		Verdict:   VerdictPositive,
		SessionID: "s3",
	})
	require.NoError(t, err)
	assert.True(t, outcome.Generalized)
	require.NotEmpty(t, outcome.PathwayID)

	generalized, err := f.pathways.Get(outcome.PathwayID)
	require.NoError(t, err)
	assert.Equal(t, "Press Esc then :q.", generalized.Template)
	assert.True(t, generalized.Matches("how to exit vim"))
}

func TestRepeatSessionDoesNotGeneralize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cache.Put(ctx, "how to exit vim", "Press Esc then :q.", "llm")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		outcome, err := f.proc.Apply(ctx, Event{
			Query:     "how to exit vim",
			Verdict:   VerdictPositive,
			SessionID: "same-session",
		})
		require.NoError(t, err)
		assert.False(t, outcome.Generalized)
	}
	assert.Equal(t, 0, f.pathways.Len())
}

func TestFeedbackTargetsPathwayWhenCacheMisses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := pathway.NewEntry([]string{"deploy checklist"}, "1. Tag. 2. Push. 3. Verify.")
	require.NoError(t, f.pathways.Put(entry))

	outcome, err := f.proc.Apply(ctx, Event{
		Query:   "show me the deploy checklist",
		Verdict: VerdictPositive,
	})
	require.NoError(t, err)
	assert.Equal(t, "pathway", outcome.Target)
	assert.Equal(t, entry.ID, outcome.EntryID)
	assert.InDelta(t, 0.6, outcome.Confidence, 1e-9)
}

func TestPathwayEvictedOnCollapsedConfidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := pathway.NewEntry([]string{"deploy checklist"}, "stale instructions")
	require.NoError(t, f.pathways.Put(entry))

	// High success count keeps the removal heuristic out of the way so the
	// collapse path is what evicts.
	_, err := f.pathways.Update(entry.ID, func(e *pathway.Entry) error {
		e.Stats.SuccessCount = 100
		return nil
	})
	require.NoError(t, err)

	removed := false
	for i := 0; i < 10 && !removed; i++ {
		outcome, err := f.proc.Apply(ctx, Event{
			Query:   "deploy checklist",
			Verdict: VerdictNegative,
		})
		require.NoError(t, err)
		removed = outcome.Removed
	}
	assert.True(t, removed)
	assert.Equal(t, 0, f.pathways.Len())
}

func TestFeedbackReachesSimilarityServedEntry(t *testing.T) {
	stored := "how do i rename a git branch"
	similar := "git branch renaming steps"

	// cosine(storedVec, similarVec) = 0.9, above the 0.85 lookup threshold.
	vs, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{Path: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	gateway := embeddings.NewGateway(
		[]embeddings.Provider{embeddings.NewStaticProvider(map[string][]float32{
			stored:  {1, 0, 0},
			similar: {0.9, float32(math.Sqrt(1 - 0.81)), 0},
		})},
		zap.NewNop(),
	)
	filter := anomaly.NewFilter(anomaly.Config{}, zap.NewNop())
	cacheStore, err := cache.NewStore(t.TempDir(), vs, gateway, filter, cache.Config{}, zap.NewNop())
	require.NoError(t, err)
	pathways, err := pathway.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	proc := NewProcessor(cacheStore, pathways, tier.NewManager(zap.NewNop()), zap.NewNop())

	ctx := context.Background()
	entry, err := cacheStore.Put(ctx, stored, "Use git branch -m.", "llm")
	require.NoError(t, err)

	served := cacheStore.Find(ctx, similar)
	require.NotNil(t, served)
	require.Equal(t, entry.ID, served.ID)

	// Feedback carries the wording the user actually typed, not the
	// stored query. It must still land on the entry that served.
	outcome, err := proc.Apply(ctx, Event{
		Query:     similar,
		Verdict:   VerdictPositive,
		SessionID: "session-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cache", outcome.Target)
	assert.Equal(t, entry.ID, outcome.EntryID)

	got, err := cacheStore.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.SuccessCount)
	assert.InDelta(t, 0.6, got.Stats.Confidence, 1e-9)
}

func TestFeedbackReachesLexicallySimilarEntry(t *testing.T) {
	// No embedding provider: target resolution degrades to Jaccard, the
	// same way lookups do.
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.cache.Put(ctx, "how do i rename a git branch", "Use git branch -m.", "llm")
	require.NoError(t, err)

	outcome, err := f.proc.Apply(ctx, Event{
		Query:     "how do i rename a git branch quickly",
		Verdict:   VerdictNegative,
		SessionID: "session-1",
	})
	require.NoError(t, err)
	assert.Equal(t, entry.ID, outcome.EntryID)

	got, err := f.cache.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.FailCount)
	assert.InDelta(t, 0.4, got.Stats.Confidence, 1e-9)
}

func TestEventDefaults(t *testing.T) {
	e := Event{Verdict: VerdictPositive}
	e.ApplyDefaults()
	assert.Equal(t, 1.0, e.Score)
	assert.False(t, e.Timestamp.IsZero())
	require.NoError(t, e.Validate())
}
