package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_WriteEvent(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }

	path, err := w.WriteEvent(&EventRecord{
		Type:         "order_created",
		Account:      "0x00000000000000000000000000000000000000a1",
		OrderIndex:   0,
		ExecutionFee: "10000000000000000",
	})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Contains(t, filepath.Base(path), "event_20260801_120000_00001.json")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got EventRecord
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "order_created", got.Type)
	assert.Equal(t, "10000000000000000", got.ExecutionFee)
	assert.False(t, got.Timestamp.IsZero(), "writer stamps the record")
}

func TestWriter_SequencesFiles(t *testing.T) {
	w := NewWriter(t.TempDir())
	p1, err := w.WriteEvent(&EventRecord{Type: "order_created"})
	require.NoError(t, err)
	p2, err := w.WriteEvent(&EventRecord{Type: "order_cancelled"})
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2, "each event gets its own file")
}

func TestWriter_NilRecord(t *testing.T) {
	w := NewWriter(t.TempDir())
	_, err := w.WriteEvent(nil)
	assert.Error(t, err)
}
