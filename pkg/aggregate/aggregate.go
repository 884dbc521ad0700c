// Package aggregate supplies the per-column consume/merge/finalize dispatch
// invoked on row insert and collision. Value columns in aggregating tables
// carry one Aggregator, chosen at schema-load time from the closed set of
// (column type, aggregation function) pairs the schema can name; key columns
// and DUP_KEYS/UNIQUE_KEYS value columns get the identity aggregator, since
// no merge ever reaches them.
package aggregate

import (
	"fmt"

	"github.com/Gourab-18/olap_memtable/pkg/rowcodec"
	"github.com/Gourab-18/olap_memtable/pkg/schema"
)

// Aggregator is the per-column dispatch the ingest/flush coordinator calls
// into. All three phases receive the column index so one Aggregator value
// can be shared across rows.
type Aggregator interface {
	// Consume initializes dst's cell for column col from a raw incoming
	// tuple value. raw is nil and isNull is true for a null value.
	Consume(dst rowcodec.View, col int, raw []byte, isNull bool) error
	// Update merges src's cell for column col into dst's cell, on an
	// AGG_KEYS collision. dst and src may be the same underlying buffer's
	// two different views only in degenerate tests; in production dst is
	// the existing row and src is the scratch buffer holding the new row.
	Update(dst rowcodec.View, col int, src rowcodec.View) error
	// Finalize converts any internal aggregate representation (e.g. an
	// HLL sketch object) into the serialized form the rowset writer
	// expects. Called once per cell during flush.
	Finalize(dst rowcodec.View, col int) error
}

// Dispatcher holds one Aggregator per schema column, built once when the
// MemTable is constructed.
type Dispatcher struct {
	perColumn []Aggregator
}

// NewDispatcher builds a Dispatcher for the given schema.
func NewDispatcher(s *schema.Schema) (*Dispatcher, error) {
	d := &Dispatcher{perColumn: make([]Aggregator, len(s.Columns))}
	for i, c := range s.Columns {
		agg, err := build(c)
		if err != nil {
			return nil, err
		}
		d.perColumn[i] = agg
	}
	return d, nil
}

// For returns the Aggregator bound to column i.
func (d *Dispatcher) For(i int) Aggregator { return d.perColumn[i] }

func build(c schema.Column) (Aggregator, error) {
	if (c.Type == schema.HLL && c.Agg != schema.AggHLLUnion) ||
		(c.Type == schema.Bitmap && c.Agg != schema.AggBitmapUnion) {
		return nil, fmt.Errorf("aggregate: column %q of type %s must use the matching union aggregation, got %s", c.Name, c.Type, c.Agg)
	}
	switch c.Agg {
	case schema.AggNone, schema.AggReplace:
		return replaceAggregator{typ: c.Type}, nil
	case schema.AggSum:
		return sumAggregator{typ: c.Type}, nil
	case schema.AggMin:
		return minMaxAggregator{typ: c.Type, min: true}, nil
	case schema.AggMax:
		return minMaxAggregator{typ: c.Type, min: false}, nil
	case schema.AggHLLUnion:
		if c.Type != schema.HLL {
			return nil, fmt.Errorf("aggregate: hll_union requires HLL column, got %s for %q", c.Type, c.Name)
		}
		return hllAggregator{}, nil
	case schema.AggBitmapUnion:
		if c.Type != schema.Bitmap {
			return nil, fmt.Errorf("aggregate: bitmap_union requires Bitmap column, got %s for %q", c.Type, c.Name)
		}
		return bitmapAggregator{}, nil
	default:
		return nil, fmt.Errorf("aggregate: unknown aggregation function %d for column %q", c.Agg, c.Name)
	}
}

// consumeScalar writes a raw tuple value into dst's cell, per the teacher's
// "the tuple hands us already-encoded slot bytes" assumption: raw is exactly
// the on-row payload encoding for fixed-width types, and the literal value
// bytes (not yet arena-resident) for Varchar.
func consumeScalar(typ schema.ColumnType, dst rowcodec.View, col int, raw []byte, isNull bool) error {
	if dst.Schema.Columns[col].Nullable {
		dst.SetNull(col, isNull)
	}
	if isNull {
		return nil
	}
	switch typ {
	case schema.Varchar:
		return dst.PutBytes(col, raw)
	default:
		copy(dst.RawPayload(col), raw)
		return nil
	}
}
