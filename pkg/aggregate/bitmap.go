package aggregate

import (
	"encoding/binary"

	"github.com/Gourab-18/olap_memtable/pkg/rowcodec"
)

// bitmapSet is a minimal exact set-of-uint32 stand-in for a production
// roaring bitmap: no RoaringBitmap (or any other bitmap index) library
// appears anywhere in the retrieved dependency surface (see DESIGN.md), so
// this is hand-rolled on the standard library, trading compactness for a
// correct, simple union.
type bitmapSet struct {
	members map[uint32]struct{}
}

func newBitmapSet() *bitmapSet {
	return &bitmapSet{members: make(map[uint32]struct{})}
}

func (b *bitmapSet) add(v uint32) { b.members[v] = struct{}{} }

func (b *bitmapSet) union(other *bitmapSet) {
	for v := range other.members {
		b.members[v] = struct{}{}
	}
}

func (b *bitmapSet) cardinality() int { return len(b.members) }

func (b *bitmapSet) serialize() []byte {
	out := make([]byte, 0, 4*len(b.members))
	buf := make([]byte, 4)
	for v := range b.members {
		binary.LittleEndian.PutUint32(buf, v)
		out = append(out, buf...)
	}
	return out
}

func deserializeBitmap(data []byte) *bitmapSet {
	s := newBitmapSet()
	for i := 0; i+4 <= len(data); i += 4 {
		s.add(binary.LittleEndian.Uint32(data[i : i+4]))
	}
	return s
}

// bitmapAggregator backs AggBitmapUnion on Bitmap columns. The incoming raw
// value is interpreted as a single little-endian uint32 member to add; in a
// real pipeline this would usually be a pre-built bitmap fragment, but a
// single member is sufficient to exercise consume + union end to end.
type bitmapAggregator struct{}

func (bitmapAggregator) Consume(dst rowcodec.View, col int, raw []byte, isNull bool) error {
	if dst.Schema.Columns[col].Nullable {
		dst.SetNull(col, isNull)
	}
	if isNull {
		return nil
	}
	s := newBitmapSet()
	if len(raw) >= 4 {
		s.add(binary.LittleEndian.Uint32(raw[:4]))
	}
	return dst.PutObject(col, s)
}

func (bitmapAggregator) Update(dst rowcodec.View, col int, src rowcodec.View) error {
	if src.IsNull(col) {
		return nil
	}
	if dst.IsNull(col) {
		if dst.Schema.Columns[col].Nullable {
			dst.SetNull(col, false)
		}
		srcSet, _ := src.Object(col).(*bitmapSet)
		if srcSet == nil {
			return nil
		}
		merged := newBitmapSet()
		merged.union(srcSet)
		return dst.PutObject(col, merged)
	}
	dstSet, _ := dst.Object(col).(*bitmapSet)
	srcSet, _ := src.Object(col).(*bitmapSet)
	if dstSet == nil || srcSet == nil {
		return nil
	}
	dstSet.union(srcSet)
	return nil
}

func (bitmapAggregator) Finalize(dst rowcodec.View, col int) error {
	if dst.IsNull(col) {
		return nil
	}
	s, _ := dst.Object(col).(*bitmapSet)
	if s == nil {
		return nil
	}
	return dst.PutBytes(col, s.serialize())
}

// BitmapCardinality decodes a finalized Bitmap cell and returns its exact
// member count. Exposed for tests and downstream consumers.
func BitmapCardinality(finalized []byte) int {
	return deserializeBitmap(finalized).cardinality()
}
