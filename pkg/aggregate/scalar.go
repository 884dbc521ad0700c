package aggregate

import (
	"fmt"

	"github.com/Gourab-18/olap_memtable/pkg/rowcodec"
	"github.com/Gourab-18/olap_memtable/pkg/schema"
)

// replaceAggregator backs AggNone (key columns, DUP_KEYS/UNIQUE_KEYS value
// columns) and AggReplace (AGG_KEYS "replace" columns): Update simply
// overwrites dst with src, same as Consume does on first insert.
type replaceAggregator struct{ typ schema.ColumnType }

func (a replaceAggregator) Consume(dst rowcodec.View, col int, raw []byte, isNull bool) error {
	return consumeScalar(a.typ, dst, col, raw, isNull)
}

func (a replaceAggregator) Update(dst rowcodec.View, col int, src rowcodec.View) error {
	return copyCell(a.typ, dst, col, src, col)
}

func (a replaceAggregator) Finalize(rowcodec.View, int) error { return nil }

// sumAggregator backs AggSum: Update adds src's value into dst's. Only
// numeric types are supported.
type sumAggregator struct{ typ schema.ColumnType }

func (a sumAggregator) Consume(dst rowcodec.View, col int, raw []byte, isNull bool) error {
	return consumeScalar(a.typ, dst, col, raw, isNull)
}

func (a sumAggregator) Update(dst rowcodec.View, col int, src rowcodec.View) error {
	if dst.IsNull(col) || src.IsNull(col) {
		// sum treats a null operand as absorbing: once either side is
		// null the merged cell stays whatever dst already holds, since a
		// missing measurement contributes nothing to the running total.
		return nil
	}
	switch a.typ {
	case schema.Int32:
		dst.PutInt32(col, dst.Int32(col)+src.Int32(col))
	case schema.Int64, schema.Decimal:
		dst.PutInt64(col, dst.Int64(col)+src.Int64(col))
	case schema.Float32:
		dst.PutFloat32(col, dst.Float32(col)+src.Float32(col))
	case schema.Float64:
		dst.PutFloat64(col, dst.Float64(col)+src.Float64(col))
	default:
		return fmt.Errorf("aggregate: sum not supported for type %s", a.typ)
	}
	return nil
}

func (a sumAggregator) Finalize(rowcodec.View, int) error { return nil }

// minMaxAggregator backs AggMin and AggMax.
type minMaxAggregator struct {
	typ schema.ColumnType
	min bool
}

func (a minMaxAggregator) Consume(dst rowcodec.View, col int, raw []byte, isNull bool) error {
	return consumeScalar(a.typ, dst, col, raw, isNull)
}

func (a minMaxAggregator) Update(dst rowcodec.View, col int, src rowcodec.View) error {
	if src.IsNull(col) {
		return nil
	}
	if dst.IsNull(col) {
		return copyCell(a.typ, dst, col, src, col)
	}

	var take bool
	switch a.typ {
	case schema.Int32:
		d, s := dst.Int32(col), src.Int32(col)
		take = (a.min && s < d) || (!a.min && s > d)
	case schema.Int64, schema.Decimal:
		d, s := dst.Int64(col), src.Int64(col)
		take = (a.min && s < d) || (!a.min && s > d)
	case schema.Float32:
		d, s := dst.Float32(col), src.Float32(col)
		take = (a.min && s < d) || (!a.min && s > d)
	case schema.Float64:
		d, s := dst.Float64(col), src.Float64(col)
		take = (a.min && s < d) || (!a.min && s > d)
	case schema.Varchar:
		d, s := dst.Bytes(col), src.Bytes(col)
		c := compareBytesExported(d, s)
		take = (a.min && c > 0) || (!a.min && c < 0)
	default:
		return fmt.Errorf("aggregate: min/max not supported for type %s", a.typ)
	}
	if take {
		return copyCell(a.typ, dst, col, src, col)
	}
	return nil
}

func (a minMaxAggregator) Finalize(rowcodec.View, int) error { return nil }

// copyCell copies src's column srcCol cell into dst's column col, honoring
// null flags and out-of-line payloads.
func copyCell(typ schema.ColumnType, dst rowcodec.View, col int, src rowcodec.View, srcCol int) error {
	if dst.Schema.Columns[col].Nullable {
		dst.SetNull(col, src.IsNull(srcCol))
	}
	if src.IsNull(srcCol) {
		return nil
	}
	if typ == schema.Varchar {
		return dst.PutBytes(col, src.Bytes(srcCol))
	}
	copy(dst.RawPayload(col), src.RawPayload(srcCol))
	return nil
}

func compareBytesExported(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
