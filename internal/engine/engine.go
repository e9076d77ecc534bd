// Package engine is the resolution core: it answers requests from learned
// pathways first, then the response cache, and only then invokes a
// language model.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fyrsmithlabs/autoreply/internal/cache"
	"github.com/fyrsmithlabs/autoreply/internal/llm"
	"github.com/fyrsmithlabs/autoreply/internal/pathway"
	"github.com/fyrsmithlabs/autoreply/internal/record"
	"go.uber.org/zap"
)

// Source names where an answer came from.
const (
	SourcePathway = "pathway"
	SourceCache   = "cache"
	SourceLLM     = "llm"
)

// ErrNoAnswer indicates no learned entry matched and no language model
// was available to generate a response.
var ErrNoAnswer = errors.New("no learned answer and no model available")

// Resolution is the outcome of resolving one request.
type Resolution struct {
	// Answer is the response text.
	Answer string `json:"answer"`

	// Source is where the answer came from: pathway, cache, or llm.
	Source string `json:"source"`

	// EntryID identifies the learned entry that served or absorbed the
	// answer, when one exists.
	EntryID string `json:"entry_id,omitempty"`

	// Tier is the serving entry's confidence tier, when one exists.
	Tier string `json:"tier,omitempty"`

	// Elapsed is how long resolution took.
	Elapsed time.Duration `json:"elapsed"`
}

// Stats is a point-in-time snapshot of engine activity.
type Stats struct {
	// TotalRequests counts resolutions since startup.
	TotalRequests int64 `json:"total_requests"`

	// PathwayHits counts requests served from the pathway table.
	PathwayHits int64 `json:"pathway_hits"`

	// CacheHits counts requests served from the response cache.
	CacheHits int64 `json:"cache_hits"`

	// AutonomyRate is the fraction of requests answered without invoking
	// a model.
	AutonomyRate float64 `json:"autonomy_rate"`

	// TotalEntries counts live entries across both stores.
	TotalEntries int `json:"total_entries"`

	// TierCounts counts entries per tier across both stores.
	TierCounts map[string]int `json:"tier_counts"`

	// CacheEntries counts live response cache entries.
	CacheEntries int `json:"cache_entries"`

	// PathwayEntries counts live pathway entries.
	PathwayEntries int `json:"pathway_entries"`

	// CacheTiers counts cache entries per tier.
	CacheTiers map[string]int `json:"cache_tiers"`

	// PathwayTiers counts pathway entries per tier.
	PathwayTiers map[string]int `json:"pathway_tiers"`
}

// Engine resolves requests against the learned stores with model
// fallback.
type Engine struct {
	cache    *cache.Store
	pathways *pathway.Store
	models   *llm.Manager
	logger   *zap.Logger

	totalRequests atomic.Int64
	pathwayHits   atomic.Int64
	cacheHits     atomic.Int64
}

// New creates an engine over the learned stores and the model manager.
func New(cacheStore *cache.Store, pathways *pathway.Store, models *llm.Manager, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cache:    cacheStore,
		pathways: pathways,
		models:   models,
		logger:   logger,
	}
}

// Resolve answers a request.
//
// Resolution order: pathway trigger match, then cache similarity lookup,
// then model generation. A generated answer is offered to the cache so
// the next occurrence is served autonomously; anomaly rejection of the
// offer does not fail the resolution.
func (e *Engine) Resolve(ctx context.Context, query string) (*Resolution, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	e.totalRequests.Add(1)
	requestsTotal.Inc()

	if hit := e.pathways.Find(query); hit != nil {
		e.recordPathwayHit(hit.ID)
		e.pathwayHits.Add(1)
		resolutionsTotal.WithLabelValues(SourcePathway).Inc()
		return &Resolution{
			Answer:  render(hit.Template, hit.Variables),
			Source:  SourcePathway,
			EntryID: hit.ID,
			Tier:    string(hit.Tier),
			Elapsed: time.Since(start),
		}, nil
	}

	if hit := e.cache.Find(ctx, query); hit != nil {
		e.cacheHits.Add(1)
		resolutionsTotal.WithLabelValues(SourceCache).Inc()
		return &Resolution{
			Answer:  hit.Answer,
			Source:  SourceCache,
			EntryID: hit.ID,
			Tier:    string(hit.Tier),
			Elapsed: time.Since(start),
		}, nil
	}

	answer, err := e.models.Generate(ctx, query)
	if err != nil {
		if errors.Is(err, llm.ErrProviderUnavailable) {
			return nil, ErrNoAnswer
		}
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	resolutionsTotal.WithLabelValues(SourceLLM).Inc()

	resolution := &Resolution{
		Answer: answer,
		Source: SourceLLM,
	}
	entry, err := e.cache.Put(ctx, query, answer, SourceLLM)
	switch {
	case err == nil:
		resolution.EntryID = entry.ID
		resolution.Tier = string(entry.Tier)
	case errors.Is(err, cache.ErrAnomalyRejected):
		e.logger.Debug("generated answer not cached",
			zap.String("query", query),
			zap.Error(err))
	default:
		e.logger.Warn("failed to cache generated answer",
			zap.Error(err))
	}
	resolution.Elapsed = time.Since(start)
	return resolution, nil
}

// Snapshot returns current engine statistics.
func (e *Engine) Snapshot() Stats {
	total := e.totalRequests.Load()
	pathwayHits := e.pathwayHits.Load()
	cacheHits := e.cacheHits.Load()

	rate := 0.0
	if total > 0 {
		rate = float64(pathwayHits+cacheHits) / float64(total)
	}
	autonomyRate.Set(rate)

	cacheTiers := tierNames(e.cache.TierCounts())
	pathwayTiers := tierNames(e.pathways.TierCounts())

	return Stats{
		TotalRequests:  total,
		PathwayHits:    pathwayHits,
		CacheHits:      cacheHits,
		AutonomyRate:   rate,
		TotalEntries:   e.cache.Len() + e.pathways.Len(),
		TierCounts:     sumTiers(cacheTiers, pathwayTiers),
		CacheEntries:   e.cache.Len(),
		PathwayEntries: e.pathways.Len(),
		CacheTiers:     cacheTiers,
		PathwayTiers:   pathwayTiers,
	}
}

func sumTiers(a, b map[string]int) map[string]int {
	out := make(map[string]int, len(a)+len(b))
	for name, n := range a {
		out[name] += n
	}
	for name, n := range b {
		out[name] += n
	}
	return out
}

func (e *Engine) recordPathwayHit(id string) {
	_, err := e.pathways.Update(id, func(entry *pathway.Entry) error {
		entry.Stats.Hits++
		entry.Stats.LastUsedAt = time.Now()
		return nil
	})
	if err != nil {
		e.logger.Warn("failed to record pathway hit",
			zap.String("id", id),
			zap.Error(err))
	}
}

// render substitutes {{name}} placeholders in a pathway template.
func render(template string, variables map[string]string) string {
	if len(variables) == 0 {
		return template
	}
	pairs := make([]string, 0, len(variables)*2)
	for name, value := range variables {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func tierNames(counts map[record.Tier]int) map[string]int {
	named := make(map[string]int, len(counts))
	for t, n := range counts {
		named[string(t)] = n
	}
	return named
}
