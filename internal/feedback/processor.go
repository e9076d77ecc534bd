package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/autoreply/internal/cache"
	"github.com/fyrsmithlabs/autoreply/internal/pathway"
	"github.com/fyrsmithlabs/autoreply/internal/record"
	"github.com/fyrsmithlabs/autoreply/internal/tier"
	"go.uber.org/zap"
)

// Processor applies feedback events to learned entries.
//
// Each event runs exactly one tier evaluation on its target. Once an
// event is accepted it runs to completion even if the caller's context is
// canceled mid-application.
type Processor struct {
	cache    *cache.Store
	pathways *pathway.Store
	tiers    *tier.Manager
	logger   *zap.Logger
}

// NewProcessor creates a feedback processor over the two learned stores.
func NewProcessor(cacheStore *cache.Store, pathways *pathway.Store, tiers *tier.Manager, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		cache:    cacheStore,
		pathways: pathways,
		tiers:    tiers,
		logger:   logger,
	}
}

// Apply resolves the event's target entry and applies the verdict:
// successes raise confidence by score·0.1, failures lower it by the same
// step. Confidence collapsing to zero evicts the entry immediately;
// otherwise the tier machine runs once and its decision is applied. A
// cache entry confirmed positively by three distinct sessions is
// generalized into a pathway.
func (p *Processor) Apply(ctx context.Context, event Event) (*Outcome, error) {
	event.ApplyDefaults()
	if err := event.Validate(); err != nil {
		return nil, err
	}

	// Accepted feedback must not be half-applied; detach from the
	// caller's cancellation.
	ctx = context.WithoutCancel(ctx)

	// Structured logs are the audit trail for feedback events.
	p.logger.Debug("feedback event accepted",
		zap.String("verdict", string(event.Verdict)),
		zap.Float64("score", event.Score),
		zap.String("session_id", event.SessionID),
		zap.String("source", event.Source))

	entry, err := p.cache.GetByQuery(event.Query)
	switch {
	case err == nil:
		return p.applyToCache(ctx, event, entry.ID)
	case errors.Is(err, cache.ErrEntryNotFound):
		// Fall through to the pathway table.
	default:
		return nil, err
	}

	if hit := p.pathways.Find(event.Query); hit != nil {
		return p.applyToPathway(ctx, event, hit.ID)
	}

	// The query may have been served by similarity rather than verbatim;
	// resolve it the same way lookups do.
	if match := p.cache.Match(ctx, event.Query); match != nil {
		return p.applyToCache(ctx, event, match.ID)
	}
	return nil, ErrTargetNotFound
}

func (p *Processor) applyToCache(ctx context.Context, event Event, id string) (*Outcome, error) {
	confirmations := 0
	collapsed := false
	updated, err := p.cache.Update(id, func(e *cache.Entry) error {
		adjust(&e.Stats, event)
		collapsed = e.Stats.Confidence <= 0
		if event.Verdict == VerdictPositive {
			confirmations = e.ConfirmedBy(event.SessionID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("applying feedback to cache entry: %w", err)
	}
	eventsApplied.WithLabelValues(string(event.Verdict), "cache").Inc()

	outcome := &Outcome{
		Target:     "cache",
		EntryID:    updated.ID,
		Tier:       string(updated.Tier),
		Confidence: updated.Stats.Confidence,
	}

	if event.Verdict == VerdictNegative && collapsed {
		if err := p.cache.Delete(ctx, id); err != nil {
			return nil, err
		}
		p.logger.Info("cache entry evicted on collapsed confidence",
			zap.String("id", id))
		outcome.Removed = true
		return outcome, nil
	}

	decision := p.tiers.Evaluate(updated.Tier, updated.Stats)
	if decision.Remove {
		if err := p.cache.Delete(ctx, id); err != nil {
			return nil, err
		}
		outcome.Removed = true
		return outcome, nil
	}
	if decision.Tier != updated.Tier {
		updated, err = p.cache.Update(id, func(e *cache.Entry) error {
			e.Tier = decision.Tier
			return nil
		})
		if err != nil {
			return nil, err
		}
		outcome.Tier = string(updated.Tier)
	}

	if event.Verdict == VerdictPositive && confirmations >= GeneralizeAfter {
		pathwayID, err := p.generalize(updated)
		if err != nil {
			return nil, err
		}
		if pathwayID != "" {
			outcome.Generalized = true
			outcome.PathwayID = pathwayID
		}
	}
	return outcome, nil
}

func (p *Processor) applyToPathway(ctx context.Context, event Event, id string) (*Outcome, error) {
	collapsed := false
	updated, err := p.pathways.Update(id, func(e *pathway.Entry) error {
		adjust(&e.Stats, event)
		collapsed = e.Stats.Confidence <= 0
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("applying feedback to pathway entry: %w", err)
	}
	eventsApplied.WithLabelValues(string(event.Verdict), "pathway").Inc()

	outcome := &Outcome{
		Target:     "pathway",
		EntryID:    updated.ID,
		Tier:       string(updated.Tier),
		Confidence: updated.Stats.Confidence,
	}

	if event.Verdict == VerdictNegative && collapsed {
		if err := p.pathways.Delete(id); err != nil {
			return nil, err
		}
		p.logger.Info("pathway evicted on collapsed confidence",
			zap.String("id", id))
		outcome.Removed = true
		return outcome, nil
	}

	decision := p.tiers.Evaluate(updated.Tier, updated.Stats)
	if decision.Remove {
		if err := p.pathways.Delete(id); err != nil {
			return nil, err
		}
		outcome.Removed = true
		return outcome, nil
	}
	if decision.Tier != updated.Tier {
		updated, err = p.pathways.Update(id, func(e *pathway.Entry) error {
			e.Tier = decision.Tier
			return nil
		})
		if err != nil {
			return nil, err
		}
		outcome.Tier = string(updated.Tier)
	}
	return outcome, nil
}

// generalize promotes a repeatedly confirmed cache entry into a pathway
// keyed on its query text. Returns empty if an equivalent pathway already
// exists.
func (p *Processor) generalize(entry *cache.Entry) (string, error) {
	trigger := strings.ToLower(strings.TrimSpace(entry.Query))
	if existing := p.pathways.Find(trigger); existing != nil {
		return "", nil
	}

	generalized := pathway.NewEntry([]string{trigger}, entry.Answer)
	generalized.Tier = entry.Tier
	generalized.Stats = entry.Stats
	if err := p.pathways.Put(generalized); err != nil {
		return "", fmt.Errorf("generalizing cache entry %s: %w", entry.ID, err)
	}

	generalizations.Inc()
	p.logger.Info("cache entry generalized into pathway",
		zap.String("cache_id", entry.ID),
		zap.String("pathway_id", generalized.ID),
		zap.Int("sessions", len(entry.Sessions)))
	return generalized.ID, nil
}

// adjust applies the verdict to usage statistics. The store clamps
// confidence into [0, 1] on persist.
func adjust(stats *record.Stats, event Event) {
	stats.LastUsedAt = event.Timestamp
	switch event.Verdict {
	case VerdictPositive:
		stats.SuccessCount++
		stats.Confidence += event.Score * ConfidenceStep
	case VerdictNegative:
		stats.FailCount++
		stats.Confidence -= event.Score * ConfidenceStep
	}
}
