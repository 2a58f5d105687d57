// Package journal persists order lifecycle events as JSON files for audit
// and offline analysis.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventRecord captures one lifecycle or configuration transition.
type EventRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
	Account    string    `json:"account,omitempty"`
	OrderIndex uint64    `json:"order_index"`
	Digest     string    `json:"digest,omitempty"`

	CollateralToken       string `json:"collateral_token,omitempty"`
	IndexToken            string `json:"index_token,omitempty"`
	CollateralDelta       string `json:"collateral_delta,omitempty"`
	SizeDelta             string `json:"size_delta,omitempty"`
	IsLong                bool   `json:"is_long,omitempty"`
	TriggerPrice          string `json:"trigger_price,omitempty"`
	TriggerAboveThreshold bool   `json:"trigger_above_threshold,omitempty"`
	ExecutionFee          string `json:"execution_fee,omitempty"`
	TrailingBPS           uint64 `json:"trailing_bps,omitempty"`

	ExecutionPrice string `json:"execution_price,omitempty"`
	FeeRecipient   string `json:"fee_recipient,omitempty"`

	Setting string `json:"setting,omitempty"`
	Value   string `json:"value,omitempty"`
}

// Writer persists event records to a directory as JSON files.
type Writer struct {
	dir   string
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer rooted at dir.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// WriteEvent writes one record to a timestamped JSON file and returns its path.
func (w *Writer) WriteEvent(rec *EventRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}
	w.seq++
	name := fmt.Sprintf("event_%s_%05d.json", rec.Timestamp.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
