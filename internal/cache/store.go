package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fyrsmithlabs/autoreply/internal/anomaly"
	"github.com/fyrsmithlabs/autoreply/internal/embeddings"
	"github.com/fyrsmithlabs/autoreply/internal/record"
	"github.com/fyrsmithlabs/autoreply/internal/similarity"
	"github.com/fyrsmithlabs/autoreply/internal/vectorstore"
	"go.uber.org/zap"
)

// Config holds response cache configuration.
type Config struct {
	// SimilarityThreshold is the minimum similarity for a lookup hit.
	// Applies to both cosine and the lexical fallback.
	SimilarityThreshold float64 `koanf:"similarity_threshold"`

	// MaxEntries caps the number of live entries; the sweep evicts the
	// least recently used beyond it.
	MaxEntries int `koanf:"max_entries"`

	// MaxAge evicts entries not used for this long. Zero disables.
	MaxAge time.Duration `koanf:"max_age"`

	// SweepInterval is how often the eviction sweep runs.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// SearchK is how many vector candidates a lookup considers.
	SearchK int `koanf:"search_k"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.85
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = 10000
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = time.Minute
	}
	if c.SearchK == 0 {
		c.SearchK = 5
	}
}

// Store is the response cache: an in-memory table backed by the record
// log, with a chromem index over entries that have embeddings.
//
// Lookups prefer cosine similarity; when the embedding gateway yields no
// vector they fall back to token-set Jaccard with the same threshold.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	locks   record.Striped
	log     *record.FileLog
	vectors vectorstore.Store
	gateway *embeddings.Gateway
	filter  *anomaly.Filter
	config  Config
	logger  *zap.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewStore creates a response cache persisted under dir.
//
// Durable records are loaded immediately and the vector index is rebuilt
// from entries that carry embeddings. Version-incompatible records are
// quarantined and skipped.
func NewStore(dir string, vectors vectorstore.Store, gateway *embeddings.Gateway, filter *anomaly.Filter, config Config, logger *zap.Logger) (*Store, error) {
	if vectors == nil {
		return nil, fmt.Errorf("vector store cannot be nil")
	}
	if gateway == nil {
		return nil, fmt.Errorf("embedding gateway cannot be nil")
	}
	if filter == nil {
		return nil, fmt.Errorf("anomaly filter cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()

	log, err := record.NewFileLog(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening cache log: %w", err)
	}

	s := &Store{
		entries: make(map[string]*Entry),
		log:     log,
		vectors: vectors,
		gateway: gateway,
		filter:  filter,
		config:  config,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	payloads, err := s.log.LoadAll()
	if err != nil {
		return fmt.Errorf("loading cache records: %w", err)
	}

	docs := make([]vectorstore.Document, 0, len(payloads))
	for id, payload := range payloads {
		var entry Entry
		if err := json.Unmarshal(payload, &entry); err != nil {
			s.logger.Warn("quarantining undecodable cache record",
				zap.String("id", id),
				zap.Error(err))
			record.QuarantinedRecords.Inc()
			continue
		}
		if err := record.ValidateVersion(entry.FormatVersion); err != nil {
			s.logger.Warn("quarantining cache record",
				zap.String("id", id),
				zap.Error(err))
			record.QuarantinedRecords.Inc()
			continue
		}
		s.entries[entry.ID] = &entry
		if len(entry.Embedding) > 0 {
			docs = append(docs, vectorstore.Document{
				ID:        entry.ID,
				Content:   entry.Query,
				Embedding: entry.Embedding,
			})
		}
	}

	// The record log is the source of truth; the vector index is derived.
	ctx := context.Background()
	if err := s.vectors.Reset(ctx); err != nil {
		return fmt.Errorf("resetting vector index: %w", err)
	}
	if len(docs) > 0 {
		if err := s.vectors.AddDocuments(ctx, docs); err != nil {
			return fmt.Errorf("rebuilding vector index: %w", err)
		}
	}

	entriesGauge.Set(float64(len(s.entries)))
	s.logger.Info("response cache loaded",
		zap.Int("entries", len(s.entries)),
		zap.Int("indexed", len(docs)))
	return nil
}

// Put inserts an answer for a query, gated by the anomaly filter.
//
// If an existing entry is already similar above the lookup threshold the
// hit is recorded and that entry is returned instead of a duplicate.
// Accepted new entries start at tier cold with confidence 0.5.
func (s *Store) Put(ctx context.Context, query, answer, source string) (*Entry, error) {
	if rejected, reason := s.filter.Check(query, time.Now()); rejected {
		return nil, fmt.Errorf("%w: %s", ErrAnomalyRejected, reason)
	}

	// Embed before taking any entry lock; the gateway owns its timeout.
	vec := s.gateway.Embed(ctx, query)

	if existing := s.lookup(ctx, query, vec); existing != nil {
		if updated := s.recordHit(existing.ID); updated != nil {
			return updated, nil
		}
		// Evicted between lookup and hit recording; the matched clone
		// still answers.
		return existing, nil
	}

	entry := NewEntry(query, answer, source)
	entry.Embedding = vec
	entry.Fingerprint = Fingerprint(query, vec)

	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("validating cache entry: %w", err)
	}

	unlock := s.locks.Lock(entry.ID)
	defer unlock()

	if err := s.persist(entry); err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		doc := vectorstore.Document{ID: entry.ID, Content: entry.Query, Embedding: vec}
		if err := s.vectors.AddDocuments(ctx, []vectorstore.Document{doc}); err != nil {
			// Degraded but not fatal: the entry stays lexically findable.
			s.logger.Warn("failed to index cache entry",
				zap.String("id", entry.ID),
				zap.Error(err))
		}
	}

	s.mu.Lock()
	s.entries[entry.ID] = entry
	entriesGauge.Set(float64(len(s.entries)))
	s.mu.Unlock()

	s.logger.Debug("cache entry stored",
		zap.String("id", entry.ID),
		zap.String("fingerprint", entry.Fingerprint),
		zap.Bool("embedded", len(vec) > 0))
	return entry.clone(), nil
}

// Find returns the closest live entry above the similarity threshold, or
// nil on a miss. A hit updates the entry's usage statistics.
func (s *Store) Find(ctx context.Context, query string) *Entry {
	vec := s.gateway.Embed(ctx, query)

	hit := s.lookup(ctx, query, vec)
	if hit == nil {
		lookups.WithLabelValues("miss").Inc()
		return nil
	}

	lookups.WithLabelValues("hit").Inc()
	if updated := s.recordHit(hit.ID); updated != nil {
		return updated
	}
	return hit
}

// Match returns the closest live entry above the similarity threshold
// without recording usage, or nil on a miss.
//
// This is the lookup feedback uses to reach entries that were served by
// similarity rather than by their verbatim query text.
func (s *Store) Match(ctx context.Context, query string) *Entry {
	vec := s.gateway.Embed(ctx, query)
	return s.lookup(ctx, query, vec)
}

// lookup finds the best match without recording usage.
func (s *Store) lookup(ctx context.Context, query string, vec []float32) *Entry {
	if len(vec) > 0 {
		results, err := s.vectors.SearchByVector(ctx, vec, s.config.SearchK)
		if err != nil {
			s.logger.Warn("vector search failed, falling back to lexical",
				zap.Error(err))
		} else {
			for _, r := range results {
				if float64(r.Score) < s.config.SimilarityThreshold {
					continue
				}
				if entry := s.get(r.ID); entry != nil {
					return entry
				}
			}
			return nil
		}
	}

	// Lexical fallback: token-set Jaccard with the same threshold.
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Entry
	bestScore := -1.0
	for _, entry := range s.entries {
		score := similarity.Jaccard(query, entry.Query)
		if score < s.config.SimilarityThreshold {
			continue
		}
		if score > bestScore {
			best = entry
			bestScore = score
		}
	}
	if best == nil {
		return nil
	}
	return best.clone()
}

// GetByQuery returns the entry whose query text matches exactly, ignoring
// case and surrounding space.
func (s *Store) GetByQuery(query string) (*Entry, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.entries {
		if strings.ToLower(strings.TrimSpace(entry.Query)) == normalized {
			return entry.clone(), nil
		}
	}
	return nil, ErrEntryNotFound
}

// Get returns a copy of the entry with the given id.
func (s *Store) Get(id string) (*Entry, error) {
	if entry := s.get(id); entry != nil {
		return entry, nil
	}
	return nil, ErrEntryNotFound
}

func (s *Store) get(id string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.entries[id]; ok {
		return entry.clone()
	}
	return nil
}

// Update applies fn to the entry under its per-id lock and persists the
// result. fn receives a copy; returning an error aborts the update.
func (s *Store) Update(id string, fn func(*Entry) error) (*Entry, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.RLock()
	current, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrEntryNotFound
	}

	updated := current.clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	updated.Stats.Confidence = record.ClampConfidence(updated.Stats.Confidence)
	updated.UpdatedAt = time.Now()
	if err := updated.Validate(); err != nil {
		return nil, fmt.Errorf("validating updated entry: %w", err)
	}

	if err := s.persist(updated); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.entries[id] = updated
	s.mu.Unlock()

	return updated.clone(), nil
}

// Delete removes an entry from the table and the vector index. Deleting a
// missing entry is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.log.Delete(id); err != nil {
		return err
	}
	if err := s.vectors.DeleteDocuments(ctx, []string{id}); err != nil {
		s.logger.Warn("failed to unindex cache entry",
			zap.String("id", id),
			zap.Error(err))
	}

	s.mu.Lock()
	delete(s.entries, id)
	entriesGauge.Set(float64(len(s.entries)))
	s.mu.Unlock()

	s.logger.Debug("cache entry deleted", zap.String("id", id))
	return nil
}

// All returns a snapshot of every entry ordered by creation time.
func (s *Store) All() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry.clone())
	}
	sortByCreation(entries)
	return entries
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// TierCounts returns the number of entries per tier.
func (s *Store) TierCounts() map[record.Tier]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[record.Tier]int, 3)
	for _, entry := range s.entries {
		counts[entry.Tier]++
	}
	return counts
}

// recordHit bumps usage statistics and returns the updated entry, or nil
// when the entry is gone (evicted since the lookup).
func (s *Store) recordHit(id string) *Entry {
	updated, err := s.Update(id, func(entry *Entry) error {
		entry.Stats.Hits++
		entry.Stats.LastUsedAt = time.Now()
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to record cache hit",
			zap.String("id", id),
			zap.Error(err))
		return nil
	}
	return updated
}

func (s *Store) persist(entry *Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := s.log.Put(entry.ID, payload); err != nil {
		return fmt.Errorf("persisting cache entry: %w", err)
	}
	return nil
}

func sortByCreation(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
