package rowset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Gourab-18/olap_memtable/pkg/rowcodec"
)

// SegmentWriter is a concrete, file-backed rowset.Writer: one JSON object
// per row, newline-delimited, in the order AddRow is called. It follows the
// teacher's own on-disk idiom for SSTable-like output (sstable.go's
// encoding/json Encoder over one row per call) rather than inventing a new
// columnar format — the MemTable's ordering and aggregation guarantees are
// what this module is about, not a wire format.
type SegmentWriter struct {
	f   *os.File
	enc *json.Encoder
}

// NewSegmentWriter creates (or truncates) the segment file at path.
func NewSegmentWriter(path string) (*SegmentWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("rowset: create segment: %w", err)
	}
	return &SegmentWriter{f: f, enc: json.NewEncoder(f)}, nil
}

// AddRow exports row and appends it to the segment file.
func (w *SegmentWriter) AddRow(row rowcodec.View) error {
	if err := w.enc.Encode(row.Export()); err != nil {
		return fmt.Errorf("rowset: encode row: %w", err)
	}
	return nil
}

// Flush seals the segment by syncing it to stable storage.
func (w *SegmentWriter) Flush() error {
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("rowset: sync segment: %w", err)
	}
	return nil
}

// Close releases the underlying file handle. Safe to call after Flush.
func (w *SegmentWriter) Close() error { return w.f.Close() }

// ReadSegment reads every row written to a segment file, in order, as plain
// field maps. Used by tests to verify flush ordering and aggregated values
// without needing the MemTable's internal types.
func ReadSegment(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rowset: open segment: %w", err)
	}
	defer f.Close()

	var rows []map[string]any
	dec := json.NewDecoder(f)
	for {
		var row map[string]any
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("rowset: decode row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
