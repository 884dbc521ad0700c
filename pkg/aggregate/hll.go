package aggregate

import (
	"hash/fnv"
	"math"

	"github.com/Gourab-18/olap_memtable/pkg/rowcodec"
)

// hllRegisters is intentionally small: this is an illustrative sketch for
// exercising the hll_union merge path end to end, not a production
// HyperLogLog (no bias correction, no sparse representation). No
// HyperLogLog library appears anywhere in the retrieved dependency surface
// (see DESIGN.md), so this is hand-rolled on the standard library.
const hllRegisters = 64 // 2^6

type hllSketch struct {
	regs [hllRegisters]uint8
}

func newHLLSketch() *hllSketch { return &hllSketch{} }

// add hashes raw and folds it into the sketch's registers.
func (s *hllSketch) add(raw []byte) {
	h := fnv.New64a()
	_, _ = h.Write(raw)
	sum := h.Sum64()

	const p = 6 // log2(hllRegisters)
	idx := sum & (hllRegisters - 1)
	rest := sum >> p
	rho := uint8(1)
	for rest&1 == 0 && rho < 64-p {
		rho++
		rest >>= 1
	}
	if rho > s.regs[idx] {
		s.regs[idx] = rho
	}
}

// union merges other's registers into s, taking the max per register — the
// standard HyperLogLog merge rule.
func (s *hllSketch) union(other *hllSketch) {
	for i := range s.regs {
		if other.regs[i] > s.regs[i] {
			s.regs[i] = other.regs[i]
		}
	}
}

// estimate returns the (illustrative, uncorrected) cardinality estimate.
func (s *hllSketch) estimate() uint64 {
	sum := 0.0
	zeros := 0
	for _, r := range s.regs {
		sum += 1.0 / math.Pow(2, float64(r))
		if r == 0 {
			zeros++
		}
	}
	m := float64(hllRegisters)
	alpha := 0.7213 / (1 + 1.079/m)
	raw := alpha * m * m / sum
	if zeros > 0 {
		// linear counting for the low-cardinality regime
		raw = m * math.Log(m/float64(zeros))
	}
	if raw < 0 {
		raw = 0
	}
	return uint64(raw)
}

func (s *hllSketch) serialize() []byte {
	out := make([]byte, hllRegisters)
	copy(out, s.regs[:])
	return out
}

func deserializeHLL(b []byte) *hllSketch {
	s := newHLLSketch()
	copy(s.regs[:], b)
	return s
}

// hllAggregator backs AggHLLUnion on HLL columns.
type hllAggregator struct{}

func (hllAggregator) Consume(dst rowcodec.View, col int, raw []byte, isNull bool) error {
	if dst.Schema.Columns[col].Nullable {
		dst.SetNull(col, isNull)
	}
	if isNull {
		return nil
	}
	s := newHLLSketch()
	s.add(raw)
	return dst.PutObject(col, s)
}

func (hllAggregator) Update(dst rowcodec.View, col int, src rowcodec.View) error {
	if src.IsNull(col) {
		return nil
	}
	if dst.IsNull(col) {
		if dst.Schema.Columns[col].Nullable {
			dst.SetNull(col, false)
		}
		srcSketch, _ := src.Object(col).(*hllSketch)
		if srcSketch == nil {
			return nil
		}
		merged := newHLLSketch()
		merged.union(srcSketch)
		return dst.PutObject(col, merged)
	}
	dstSketch, _ := dst.Object(col).(*hllSketch)
	srcSketch, _ := src.Object(col).(*hllSketch)
	if dstSketch == nil || srcSketch == nil {
		return nil
	}
	dstSketch.union(srcSketch)
	return nil
}

func (hllAggregator) Finalize(dst rowcodec.View, col int) error {
	if dst.IsNull(col) {
		return nil
	}
	s, _ := dst.Object(col).(*hllSketch)
	if s == nil {
		return nil
	}
	return dst.PutBytes(col, s.serialize())
}

// Cardinality decodes a finalized HLL cell's serialized sketch and returns
// its cardinality estimate. Exposed for tests and downstream consumers that
// need to read a flushed HLL column.
func Cardinality(finalized []byte) uint64 {
	return deserializeHLL(finalized).estimate()
}
