package memtable

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Gourab-18/olap_memtable/pkg/rowcodec"
	"github.com/Gourab-18/olap_memtable/pkg/schema"
	"github.com/Gourab-18/olap_memtable/pkg/tuple"
)

type pointerStabilityTuple struct{ k, v int32 }

func (t pointerStabilityTuple) IsNull(tuple.Slot) bool { return false }
func (t pointerStabilityTuple) Get(slot tuple.Slot) []byte {
	b := make([]byte, 4)
	if slot.ColumnIndex == 0 {
		binary.LittleEndian.PutUint32(b, uint32(t.k))
	} else {
		binary.LittleEndian.PutUint32(b, uint32(t.v))
	}
	return b
}

type discardWriter struct{}

func (discardWriter) AddRow(rowcodec.View) error { return nil }
func (discardWriter) Flush() error               { return nil }

// bufAddr reports a row buffer's first-byte address via the standard %p
// verb, avoiding any need for the unsafe package.
func bufAddr(buf []byte) string { return fmt.Sprintf("%p", buf) }

// TestPointerStabilityAcrossGrowth verifies P7: once a row is absorbed into
// the index, its buffer's address never changes, even as later inserts
// force the arena to grow into additional backing buffers.
func TestPointerStabilityAcrossGrowth(t *testing.T) {
	s, err := schema.New([]schema.Column{
		{Name: "k", Index: 0, Type: schema.Int32, IsKey: true},
		{Name: "v", Index: 1, Type: schema.Int32},
	}, 1)
	require.NoError(t, err)

	mt, err := New("stability-tablet", s, schema.DupKeys, tuple.NewDescriptor(2), discardWriter{}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, mt.Insert(pointerStabilityTuple{k: 0, v: 0}))

	var firstAddr string
	mt.index.IterFromFirst(func(v rowcodec.View) bool {
		firstAddr = bufAddr(v.Buf)
		return false
	})
	require.NotEmpty(t, firstAddr)

	// Force a buffer growth: 20000 8-byte rows overflow the first 64KiB
	// buffer (8192 rows) and spill into a second, 128KiB one.
	for i := int32(1); i < 20000; i++ {
		require.NoError(t, mt.Insert(pointerStabilityTuple{k: i, v: i}))
	}
	require.Greater(t, mt.arena.Consumed(), int64(64*1024))

	var laterAddr string
	mt.index.IterFromFirst(func(v rowcodec.View) bool {
		if v.Int32(0) == 0 {
			laterAddr = bufAddr(v.Buf)
			return false
		}
		return true
	})
	require.Equal(t, firstAddr, laterAddr)
}
