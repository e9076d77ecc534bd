package record

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const maxRecordSize = 10 * 1024 * 1024 // 10MB per record

// logEntry is the on-disk envelope for a persisted record.
type logEntry struct {
	ID       string
	Payload  []byte // JSON-encoded record
	Checksum []byte // SHA-256 of ID + payload
}

// FileLog is a durable record log: one checksummed gob file per record,
// written atomically. Corrupted or version-incompatible records are
// quarantined at load time instead of aborting the whole store.
type FileLog struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewFileLog creates a record log rooted at path.
func NewFileLog(path string, logger *zap.Logger) (*FileLog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return nil, fmt.Errorf("record log: path contains directory traversal: %s", path)
	}

	if err := os.MkdirAll(cleanPath, 0700); err != nil {
		return nil, fmt.Errorf("record log: creating directory: %w", err)
	}

	return &FileLog{
		path:   cleanPath,
		logger: logger,
	}, nil
}

// Put durably writes a record payload under the given id.
//
// The write goes to a temp file first and is renamed into place, so a
// crash never leaves a half-written record visible.
func (l *FileLog) Put(id string, payload []byte) error {
	if id == "" {
		return fmt.Errorf("record log: id cannot be empty")
	}
	if len(payload) > maxRecordSize {
		return fmt.Errorf("record log: record exceeds max size (%d > %d bytes)", len(payload), maxRecordSize)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := logEntry{
		ID:       id,
		Payload:  payload,
		Checksum: checksum(id, payload),
	}

	entryPath := filepath.Join(l.path, id+".rec")
	tmpPath := entryPath + ".tmp." + randomSuffix()

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("record log: creating record file: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(entry); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("record log: encoding record: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("record log: syncing record: %w", err)
	}
	f.Close()

	if err := os.Rename(tmpPath, entryPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("record log: finalizing record: %w", err)
	}

	return nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (l *FileLog) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := os.Remove(filepath.Join(l.path, id+".rec"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("record log: deleting record %s: %w", id, err)
	}
	return nil
}

// LoadAll reads every record from disk.
//
// Records that fail to decode or whose checksum does not match are
// quarantined: logged with a warning, counted, and skipped.
func (l *FileLog) LoadAll() (map[string][]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(l.path, "*.rec"))
	if err != nil {
		return nil, fmt.Errorf("record log: listing records: %w", err)
	}

	records := make(map[string][]byte, len(files))
	quarantined := 0

	for _, file := range files {
		entry, err := readEntry(file)
		if err != nil {
			l.logger.Warn("record log: quarantining corrupted record",
				zap.String("file", file),
				zap.Error(err))
			quarantined++
			continue
		}

		if subtle.ConstantTimeCompare(entry.Checksum, checksum(entry.ID, entry.Payload)) != 1 {
			l.logger.Warn("record log: quarantining record with invalid checksum",
				zap.String("file", file))
			quarantined++
			continue
		}

		records[entry.ID] = entry.Payload
	}

	if quarantined > 0 {
		l.logger.Warn("record log: load completed with quarantined records",
			zap.Int("loaded", len(records)),
			zap.Int("quarantined", quarantined))
		QuarantinedRecords.Add(float64(quarantined))
	}

	return records, nil
}

func readEntry(path string) (logEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return logEntry{}, err
	}
	defer f.Close()

	var entry logEntry
	if err := gob.NewDecoder(f).Decode(&entry); err != nil {
		return logEntry{}, err
	}
	return entry, nil
}

func checksum(id string, payload []byte) []byte {
	h := sha256.New()
	h.Write([]byte(id))
	h.Write(payload)
	return h.Sum(nil)
}

func randomSuffix() string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
