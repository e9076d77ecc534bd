package pathway

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/autoreply/internal/record"
	"go.uber.org/zap"
)

// Store is the durable pathway table: an in-memory map backed by the
// record log. Reads work on snapshots; mutations to one id are serialized
// through striped locks.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	locks  record.Striped
	log    *record.FileLog
	logger *zap.Logger
}

// NewStore creates a pathway store persisted under dir.
//
// Existing records are loaded immediately; records with an incompatible
// format version are quarantined and skipped.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	log, err := record.NewFileLog(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening pathway log: %w", err)
	}

	s := &Store{
		entries: make(map[string]*Entry),
		log:     log,
		logger:  logger,
	}

	payloads, err := log.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading pathway records: %w", err)
	}

	for id, payload := range payloads {
		var entry Entry
		if err := json.Unmarshal(payload, &entry); err != nil {
			logger.Warn("quarantining undecodable pathway record",
				zap.String("id", id),
				zap.Error(err))
			record.QuarantinedRecords.Inc()
			continue
		}
		if err := record.ValidateVersion(entry.FormatVersion); err != nil {
			logger.Warn("quarantining pathway record",
				zap.String("id", id),
				zap.Error(err))
			record.QuarantinedRecords.Inc()
			continue
		}
		s.entries[entry.ID] = &entry
	}

	logger.Info("pathway store loaded", zap.Int("entries", len(s.entries)))
	return s, nil
}

// Put validates and stores an entry.
func (s *Store) Put(entry *Entry) error {
	if entry == nil {
		return ErrInvalidEntry
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validating pathway entry: %w", err)
	}

	unlock := s.locks.Lock(entry.ID)
	defer unlock()

	stored := entry.clone()
	if err := s.persist(stored); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[stored.ID] = stored
	s.mu.Unlock()

	s.logger.Debug("pathway entry stored",
		zap.String("id", stored.ID),
		zap.Strings("triggers", stored.Triggers),
		zap.String("tier", string(stored.Tier)))
	return nil
}

// Get returns a copy of the entry with the given id.
func (s *Store) Get(id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return entry.clone(), nil
}

// Find returns the best trigger match for a query, or nil on a miss.
//
// Matching is case-insensitive. Ties are broken by highest confidence,
// then by most recent use.
func (s *Store) Find(query string) *Entry {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Entry
	for _, entry := range s.entries {
		if !entry.Matches(normalized) {
			continue
		}
		if best == nil || betterMatch(entry, best) {
			best = entry
		}
	}
	if best == nil {
		return nil
	}
	return best.clone()
}

// betterMatch reports whether a should win over b.
func betterMatch(a, b *Entry) bool {
	if a.Stats.Confidence != b.Stats.Confidence {
		return a.Stats.Confidence > b.Stats.Confidence
	}
	return a.Stats.LastUsedAt.After(b.Stats.LastUsedAt)
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

// Delete removes an entry. Deleting a missing entry is not an error.
func (s *Store) Delete(id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.log.Delete(id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()

	s.logger.Debug("pathway entry deleted", zap.String("id", id))
	return nil
}

// All returns a snapshot of every entry.
func (s *Store) All() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry.clone())
	}
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

func (s *Store) persist(entry *Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding pathway entry: %w", err)
	}
	if err := s.log.Put(entry.ID, payload); err != nil {
		return fmt.Errorf("persisting pathway entry: %w", err)
	}
	return nil
}
