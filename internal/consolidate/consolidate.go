// Package consolidate merges near-duplicate cache entries so repeated
// phrasings of one request collapse into a single strengthened entry.
package consolidate

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/autoreply/internal/cache"
	"github.com/fyrsmithlabs/autoreply/internal/similarity"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultThreshold is the minimum similarity for two entries to share a
// cluster.
const DefaultThreshold = 0.85

// Report summarizes one consolidation pass.
type Report struct {
	// Scanned is how many entries the pass examined.
	Scanned int `json:"scanned"`

	// Clusters is how many multi-entry clusters were found.
	Clusters int `json:"clusters"`

	// Merged is how many entries were absorbed into survivors.
	Merged int `json:"merged"`

	// Duration is how long the pass took.
	Duration time.Duration `json:"duration"`
}

// Consolidator runs similarity clustering over the response cache.
//
// Concurrent Run calls coalesce into a single pass; every caller gets
// that pass's report.
type Consolidator struct {
	cache     *cache.Store
	threshold float64
	logger    *zap.Logger
	group     singleflight.Group
}

// NewConsolidator creates a consolidator over the response cache. A zero
// threshold uses DefaultThreshold.
func NewConsolidator(cacheStore *cache.Store, threshold float64, logger *zap.Logger) *Consolidator {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consolidator{
		cache:     cacheStore,
		threshold: threshold,
		logger:    logger,
	}
}

// Run executes one consolidation pass and returns its report.
//
// Entries are clustered greedily in creation order: each unassigned entry
// seeds a cluster and absorbs every later unassigned entry within the
// similarity threshold. The oldest entry of a cluster survives; it takes
// the most recently used answer text, the summed usage counts, and the
// union of consolidation refs. Survivor confidence becomes
// min(1, max + 0.1·(n−1)) for a cluster of n. Running again on already
// consolidated data is a no-op.
func (c *Consolidator) Run(ctx context.Context) (Report, error) {
	v, err, _ := c.group.Do("consolidate", func() (any, error) {
		return c.run(ctx)
	})
	if err != nil {
		return Report{}, err
	}
	return v.(Report), nil
}

func (c *Consolidator) run(ctx context.Context) (Report, error) {
	start := time.Now()
	entries := c.cache.All()

	report := Report{Scanned: len(entries)}
	assigned := make(map[string]bool, len(entries))

	for i, seed := range entries {
		if assigned[seed.ID] {
			continue
		}
		cluster := []*cache.Entry{seed}
		for _, candidate := range entries[i+1:] {
			if assigned[candidate.ID] {
				continue
			}
			if c.score(seed, candidate) >= c.threshold {
				cluster = append(cluster, candidate)
				assigned[candidate.ID] = true
			}
		}
		assigned[seed.ID] = true
		if len(cluster) < 2 {
			continue
		}

		if err := c.merge(ctx, cluster); err != nil {
			return report, err
		}
		report.Clusters++
		report.Merged += len(cluster) - 1
	}

	report.Duration = time.Since(start)
	runsTotal.Inc()
	mergedTotal.Add(float64(report.Merged))
	if report.Merged > 0 {
		c.logger.Info("consolidation pass complete",
			zap.Int("scanned", report.Scanned),
			zap.Int("clusters", report.Clusters),
			zap.Int("merged", report.Merged),
			zap.Duration("duration", report.Duration))
	}
	return report, nil
}

// score computes similarity between two entries: cosine when both carry
// embeddings, token-set Jaccard of the query texts otherwise.
func (c *Consolidator) score(a, b *cache.Entry) float64 {
	if len(a.Embedding) > 0 && len(b.Embedding) > 0 {
		return similarity.Cosine(a.Embedding, b.Embedding)
	}
	return similarity.Jaccard(a.Query, b.Query)
}

// merge folds the cluster into its oldest entry and deletes the rest.
func (c *Consolidator) merge(ctx context.Context, cluster []*cache.Entry) error {
	survivor := cluster[0]
	absorbed := cluster[1:]

	freshest := survivor
	maxConfidence := survivor.Stats.Confidence
	for _, entry := range absorbed {
		if lastActivity(entry).After(lastActivity(freshest)) {
			freshest = entry
		}
		if entry.Stats.Confidence > maxConfidence {
			maxConfidence = entry.Stats.Confidence
		}
	}

	_, err := c.cache.Update(survivor.ID, func(e *cache.Entry) error {
		e.Answer = freshest.Answer
		e.Stats.Confidence = maxConfidence + 0.1*float64(len(cluster)-1)
		for _, entry := range absorbed {
			e.Stats.Hits += entry.Stats.Hits
			e.Stats.SuccessCount += entry.Stats.SuccessCount
			e.Stats.FailCount += entry.Stats.FailCount
			if entry.Stats.LastUsedAt.After(e.Stats.LastUsedAt) {
				e.Stats.LastUsedAt = entry.Stats.LastUsedAt
			}
			e.Refs = appendUnique(e.Refs, entry.ID)
			for _, ref := range entry.Refs {
				e.Refs = appendUnique(e.Refs, ref)
			}
			for _, session := range entry.Sessions {
				e.Sessions = appendUnique(e.Sessions, session)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("merging cluster into %s: %w", survivor.ID, err)
	}

	for _, entry := range absorbed {
		if err := c.cache.Delete(ctx, entry.ID); err != nil {
			return fmt.Errorf("removing absorbed entry %s: %w", entry.ID, err)
		}
	}

	c.logger.Debug("cluster merged",
		zap.String("survivor", survivor.ID),
		zap.Int("absorbed", len(absorbed)))
	return nil
}

func lastActivity(e *cache.Entry) time.Time {
	if e.Stats.LastUsedAt.After(e.UpdatedAt) {
		return e.Stats.LastUsedAt
	}
	return e.UpdatedAt
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
