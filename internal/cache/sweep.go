package cache

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// StartSweeper runs the periodic eviction sweep until Stop is called.
//
// Size and age limits are enforced here rather than synchronously per
// write so write latency stays bounded.
func (s *Store) StartSweeper() {
	go func() {
		ticker := time.NewTicker(s.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.sweep(context.Background())
			}
		}
	}()
}

// Stop halts the sweeper. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// sweep evicts entries past the age limit, then the least recently used
// entries beyond the size cap.
func (s *Store) sweep(ctx context.Context) {
	entries := s.All()
	now := time.Now()

	evict := make(map[string]string, 4)

	if s.config.MaxAge > 0 {
		cutoff := now.Add(-s.config.MaxAge)
		for _, entry := range entries {
			if lastActivity(entry).Before(cutoff) {
				evict[entry.ID] = "age"
			}
		}
	}

	live := len(entries) - len(evict)
	if over := live - s.config.MaxEntries; over > 0 {
		remaining := make([]*Entry, 0, live)
		for _, entry := range entries {
			if _, gone := evict[entry.ID]; !gone {
				remaining = append(remaining, entry)
			}
		}
		sort.Slice(remaining, func(i, j int) bool {
			return lastActivity(remaining[i]).Before(lastActivity(remaining[j]))
		})
		for i := 0; i < over && i < len(remaining); i++ {
			evict[remaining[i].ID] = "lru"
		}
	}

	for id, reason := range evict {
		if err := s.Delete(ctx, id); err != nil {
			s.logger.Warn("sweep failed to evict entry",
				zap.String("id", id),
				zap.Error(err))
			continue
		}
		evictions.WithLabelValues(reason).Inc()
	}

	if len(evict) > 0 {
		s.logger.Info("eviction sweep completed",
			zap.Int("evicted", len(evict)),
			zap.Int("remaining", s.Len()))
	}
}

// lastActivity is the LRU timestamp: last use if the entry was ever
// served, creation time otherwise.
func lastActivity(e *Entry) time.Time {
	if e.Stats.LastUsedAt.IsZero() {
		return e.CreatedAt
	}
	return e.Stats.LastUsedAt
}
