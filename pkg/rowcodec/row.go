// Package rowcodec projects a contiguous byte buffer into the schema-driven
// cells of one row, and provides the key-prefix comparator the index and the
// flush path both rely on.
package rowcodec

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Gourab-18/olap_memtable/pkg/arena"
	"github.com/Gourab-18/olap_memtable/pkg/schema"
)

// View is a schema-driven window over one encoded row buffer. Variable-length
// cells (Varchar, HLL, Bitmap) store a handle into the owning arena's
// out-of-line payload table rather than an inline pointer, so a View also
// needs the arena to resolve them.
type View struct {
	Buf    []byte
	Schema *schema.Schema
	Arena  *arena.Arena
}

// IsNull reports whether column i's cell is null.
func (v View) IsNull(i int) bool {
	c := v.Schema.Columns[i]
	if !c.Nullable {
		return false
	}
	return v.Buf[v.Schema.Offset(i)] != 0
}

// SetNull marks column i's cell null or not. Only valid for nullable columns.
func (v View) SetNull(i int, null bool) {
	c := v.Schema.Columns[i]
	if !c.Nullable {
		panic(fmt.Sprintf("rowcodec: column %q is not nullable", c.Name))
	}
	if null {
		v.Buf[v.Schema.Offset(i)] = 1
	} else {
		v.Buf[v.Schema.Offset(i)] = 0
	}
}

// payloadOffset returns the byte offset of column i's payload, skipping the
// null flag byte if the column is nullable.
func (v View) payloadOffset(i int) int {
	off := v.Schema.Offset(i)
	if v.Schema.Columns[i].Nullable {
		off++
	}
	return off
}

func (v View) payload(i int) []byte {
	off := v.payloadOffset(i)
	return v.Buf[off : off+v.Schema.Columns[i].Type.Width()]
}

// RawPayload exposes column i's raw fixed-width payload bytes for generic,
// type-agnostic copying (used by the aggregate package to consume an
// already-encoded tuple slot without knowing the concrete Go type).
func (v View) RawPayload(i int) []byte { return v.payload(i) }

// Fixed-width scalar accessors. Callers are expected to check IsNull first;
// reading a null cell returns the zero value of its encoding.

func (v View) Bool(i int) bool { return v.payload(i)[0] != 0 }
func (v View) Int32(i int) int32 {
	return int32(binary.LittleEndian.Uint32(v.payload(i)))
}
func (v View) Int64(i int) int64 {
	return int64(binary.LittleEndian.Uint64(v.payload(i)))
}
func (v View) Float32(i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(v.payload(i)))
}
func (v View) Float64(i int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(v.payload(i)))
}

// Decimal returns the scaled integer value; the scale is schema.Column.DecimalSc.
func (v View) Decimal(i int) int64 { return v.Int64(i) }

// Date returns days since epoch.
func (v View) Date(i int) int32 { return v.Int32(i) }

// Datetime returns microseconds since epoch.
func (v View) Datetime(i int) int64 { return v.Int64(i) }

func (v View) PutBool(i int, b bool) {
	if b {
		v.payload(i)[0] = 1
	} else {
		v.payload(i)[0] = 0
	}
}
func (v View) PutInt32(i int, x int32) {
	binary.LittleEndian.PutUint32(v.payload(i), uint32(x))
}
func (v View) PutInt64(i int, x int64) {
	binary.LittleEndian.PutUint64(v.payload(i), uint64(x))
}
func (v View) PutFloat32(i int, x float32) {
	binary.LittleEndian.PutUint32(v.payload(i), math.Float32bits(x))
}
func (v View) PutFloat64(i int, x float64) {
	binary.LittleEndian.PutUint64(v.payload(i), math.Float64bits(x))
}
func (v View) PutDecimal(i int, scaled int64) { v.PutInt64(i, scaled) }
func (v View) PutDate(i int, days int32)      { v.PutInt32(i, days) }
func (v View) PutDatetime(i int, us int64)    { v.PutInt64(i, us) }

// varlen descriptor layout: 8-byte handle, 4-byte length.

func (v View) handle(i int) (uint64, uint32) {
	p := v.payload(i)
	return binary.LittleEndian.Uint64(p[:8]), binary.LittleEndian.Uint32(p[8:12])
}

func (v View) putHandle(i int, h uint64, length uint32) {
	p := v.payload(i)
	binary.LittleEndian.PutUint64(p[:8], h)
	binary.LittleEndian.PutUint32(p[8:12], length)
}

// Bytes returns the out-of-line payload bytes for a Varchar (or raw-bytes)
// column, resolving the cell's handle through the arena.
func (v View) Bytes(i int) []byte {
	h, length := v.handle(i)
	if length == 0 {
		return nil
	}
	return v.Arena.LoadBytes(h)
}

// PutBytes copies src into the arena and stores a handle to it in column i's
// cell.
func (v View) PutBytes(i int, src []byte) error {
	h, err := v.Arena.StoreBytes(src)
	if err != nil {
		return err
	}
	v.putHandle(i, h, uint32(len(src)))
	return nil
}

// Object returns the out-of-line aggregate object (HLL sketch, bitmap set)
// stored for column i, or nil if none has been stored yet.
func (v View) Object(i int) any {
	h, length := v.handle(i)
	if length == 0 {
		return nil
	}
	return v.Arena.LoadObject(h)
}

// PutObject stores obj as column i's out-of-line aggregate object.
func (v View) PutObject(i int, obj any) error {
	h, err := v.Arena.StoreObject(obj)
	if err != nil {
		return err
	}
	v.putHandle(i, h, 1)
	return nil
}

// Compare lexicographically compares the first keyCols columns of a and b,
// per schema, returning <0, 0, or >0. Nulls sort before non-nulls. Both
// views must share the same schema.
func Compare(a, b View, keyCols int) int {
	s := a.Schema
	for i := 0; i < keyCols; i++ {
		if c := compareCell(s.Columns[i], a, b, i); c != 0 {
			return c
		}
	}
	return 0
}

func compareCell(col schema.Column, a, b View, i int) int {
	aNull, bNull := a.IsNull(i), b.IsNull(i)
	switch {
	case aNull && bNull:
		return 0
	case aNull:
		return -1
	case bNull:
		return 1
	}

	switch col.Type {
	case schema.Bool:
		av, bv := a.Bool(i), b.Bool(i)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case schema.Int32, schema.Date:
		return cmp.Compare(a.Int32(i), b.Int32(i))
	case schema.Int64, schema.Decimal, schema.Datetime:
		return cmp.Compare(a.Int64(i), b.Int64(i))
	case schema.Float32:
		return cmp.Compare(a.Float32(i), b.Float32(i))
	case schema.Float64:
		return cmp.Compare(a.Float64(i), b.Float64(i))
	case schema.Varchar:
		return compareBytes(a.Bytes(i), b.Bytes(i))
	default:
		// HLL/Bitmap columns are not meaningful key columns; fall back to
		// comparing raw cell bytes so the comparator stays total.
		return compareBytes(a.payload(i), b.payload(i))
	}
}

func compareBytes(a, b []byte) int {
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

// Export materializes every column's value into a plain Go value, suitable
// for handing to a rowset writer that must not assume the view's backing
// buffer (or arena) outlives the call. Varlen columns are copied out as
// []byte; a null cell exports as nil.
func (v View) Export() map[string]any {
	out := make(map[string]any, len(v.Schema.Columns))
	for i, c := range v.Schema.Columns {
		if v.IsNull(i) {
			out[c.Name] = nil
			continue
		}
		switch c.Type {
		case schema.Bool:
			out[c.Name] = v.Bool(i)
		case schema.Int32, schema.Date:
			out[c.Name] = v.Int32(i)
		case schema.Int64, schema.Decimal, schema.Datetime:
			out[c.Name] = v.Int64(i)
		case schema.Float32:
			out[c.Name] = v.Float32(i)
		case schema.Float64:
			out[c.Name] = v.Float64(i)
		case schema.Varchar, schema.HLL, schema.Bitmap:
			b := v.Bytes(i)
			cp := make([]byte, len(b))
			copy(cp, b)
			out[c.Name] = cp
		default:
			panic(fmt.Sprintf("rowcodec: export: unknown column type %d", c.Type))
		}
	}
	return out
}
