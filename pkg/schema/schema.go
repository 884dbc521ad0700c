// Package schema describes the column catalog a MemTable is bound to: column
// types, widths, key-column count, and per-column aggregation functions. It is
// a read-only input, supplied once at MemTable construction time.
package schema

import "fmt"

// ColumnType is the logical type of a column's value.
type ColumnType int

const (
	Bool ColumnType = iota
	Int32
	Int64
	Float32
	Float64
	Decimal
	Date
	Datetime
	Varchar
	HLL
	Bitmap
)

// Width returns the fixed on-row byte width of the type, not counting the
// leading null-flag byte nullable cells carry. Varchar, HLL, and Bitmap cells
// hold a descriptor (arena handle + length); their actual payload lives
// out-of-line in the arena.
func (t ColumnType) Width() int {
	switch t {
	case Bool:
		return 1
	case Int32, Float32, Date:
		return 4
	case Int64, Float64, Decimal, Datetime:
		return 8
	case Varchar, HLL, Bitmap:
		return 12 // 8-byte arena handle + 4-byte length
	default:
		panic(fmt.Sprintf("schema: unknown column type %d", t))
	}
}

// IsVarlen reports whether the column's payload is stored out-of-line.
func (t ColumnType) IsVarlen() bool {
	switch t {
	case Varchar, HLL, Bitmap:
		return true
	default:
		return false
	}
}

func (t ColumnType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Decimal:
		return "decimal"
	case Date:
		return "date"
	case Datetime:
		return "datetime"
	case Varchar:
		return "varchar"
	case HLL:
		return "hll"
	case Bitmap:
		return "bitmap"
	default:
		return "unknown"
	}
}

// AggregationFunc is the fold applied to a non-key column's incoming value
// under AGG_KEYS when an insert collides on key with an existing row.
type AggregationFunc int

const (
	// AggNone is the identity; used for key columns and for every column
	// under DUP_KEYS and UNIQUE_KEYS, where no merge ever occurs.
	AggNone AggregationFunc = iota
	AggSum
	AggMin
	AggMax
	AggReplace
	AggHLLUnion
	AggBitmapUnion
)

func (f AggregationFunc) String() string {
	switch f {
	case AggNone:
		return "none"
	case AggSum:
		return "sum"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggReplace:
		return "replace"
	case AggHLLUnion:
		return "hll_union"
	case AggBitmapUnion:
		return "bitmap_union"
	default:
		return "unknown"
	}
}

// KeysType is the table's duplicate-handling mode.
type KeysType int

const (
	// DupKeys permits duplicate keys; no merging occurs on collision.
	DupKeys KeysType = iota
	// UniqueKeys replaces a prior row with an equal key on collision.
	UniqueKeys
	// AggKeys merges a colliding insert into the prior row, column by
	// column, via each column's AggregationFunc.
	AggKeys
)

func (k KeysType) String() string {
	switch k {
	case DupKeys:
		return "DUP_KEYS"
	case UniqueKeys:
		return "UNIQUE_KEYS"
	case AggKeys:
		return "AGG_KEYS"
	default:
		return "UNKNOWN_KEYS"
	}
}

// Column describes one column of the schema.
type Column struct {
	Name      string
	Index     int
	Type      ColumnType
	Nullable  bool
	IsKey     bool
	Agg       AggregationFunc
	DecimalSc int // scale, meaningful only for Decimal columns
}

// SlotWidth returns the column's total on-row footprint, including the
// leading null-flag byte for nullable columns.
func (c Column) SlotWidth() int {
	w := c.Type.Width()
	if c.Nullable {
		w++
	}
	return w
}

// Schema is the ordered column catalog a MemTable is bound to.
type Schema struct {
	Columns  []Column
	KeyCount int // number of leading columns forming the key prefix

	offsets []int // byte offset of each column's slot within a row buffer
	rowSize int
}

// New validates and builds a Schema from an ordered column list and a key
// column count. Columns [0, keyCount) form the key prefix; schema.Columns
// must list them first and schema.Column.IsKey must agree.
func New(columns []Column, keyCount int) (*Schema, error) {
	if keyCount <= 0 || keyCount > len(columns) {
		return nil, fmt.Errorf("schema: key count %d out of range for %d columns", keyCount, len(columns))
	}
	for i, c := range columns {
		if c.Index != i {
			return nil, fmt.Errorf("schema: column %q has index %d, expected %d", c.Name, c.Index, i)
		}
		wantKey := i < keyCount
		if c.IsKey != wantKey {
			return nil, fmt.Errorf("schema: column %q IsKey=%v, expected %v for position %d", c.Name, c.IsKey, wantKey, i)
		}
		if wantKey && c.Agg != AggNone {
			return nil, fmt.Errorf("schema: key column %q must have AggNone, got %s", c.Name, c.Agg)
		}
	}

	s := &Schema{Columns: columns, KeyCount: keyCount}
	s.offsets = make([]int, len(columns))
	off := 0
	for i, c := range columns {
		s.offsets[i] = off
		off += c.SlotWidth()
	}
	s.rowSize = off
	return s, nil
}

// RowSize is the total fixed byte size of one encoded row buffer.
func (s *Schema) RowSize() int { return s.rowSize }

// Offset returns the byte offset of column i's slot within a row buffer.
func (s *Schema) Offset(i int) int { return s.offsets[i] }

// KeyColumns returns the leading key-prefix columns.
func (s *Schema) KeyColumns() []Column { return s.Columns[:s.KeyCount] }

// ValueColumns returns the trailing non-key columns.
func (s *Schema) ValueColumns() []Column { return s.Columns[s.KeyCount:] }
