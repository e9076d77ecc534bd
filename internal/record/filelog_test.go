package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLog(t *testing.T) *FileLog {
	t.Helper()
	log, err := NewFileLog(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return log
}

func TestFileLogPutAndLoad(t *testing.T) {
	log := newTestLog(t)

	require.NoError(t, log.Put("a", []byte(`{"x":1}`)))
	require.NoError(t, log.Put("b", []byte(`{"x":2}`)))

	records, err := log.LoadAll()
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, []byte(`{"x":1}`), records["a"])
	assert.Equal(t, []byte(`{"x":2}`), records["b"])
}

func TestFileLogOverwrite(t *testing.T) {
	log := newTestLog(t)

	require.NoError(t, log.Put("a", []byte("old")))
	require.NoError(t, log.Put("a", []byte("new")))

	records, err := log.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), records["a"])
}

func TestFileLogDelete(t *testing.T) {
	log := newTestLog(t)

	require.NoError(t, log.Put("a", []byte("x")))
	require.NoError(t, log.Delete("a"))
	require.NoError(t, log.Delete("missing"))

	records, err := log.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileLogQuarantinesCorruptedRecord(t *testing.T) {
	dir := t.TempDir()
	log, err := NewFileLog(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, log.Put("good", []byte("payload")))

	// Truncated garbage that will not gob-decode.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.rec"), []byte("garbage"), 0600))

	records, err := log.LoadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Contains(t, records, "good")
}

func TestFileLogRejectsTraversalPath(t *testing.T) {
	_, err := NewFileLog("../outside", zap.NewNop())
	assert.Error(t, err)
}

func TestFileLogRejectsEmptyID(t *testing.T) {
	log := newTestLog(t)
	assert.Error(t, log.Put("", []byte("x")))
}
