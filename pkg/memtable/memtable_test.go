package memtable_test

import (
	"encoding/binary"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Gourab-18/olap_memtable/pkg/memtable"
	"github.com/Gourab-18/olap_memtable/pkg/metrics"
	"github.com/Gourab-18/olap_memtable/pkg/rowset"
	"github.com/Gourab-18/olap_memtable/pkg/schema"
	"github.com/Gourab-18/olap_memtable/pkg/tracker"
	"github.com/Gourab-18/olap_memtable/pkg/tuple"
)

// kvTuple is a minimal in-memory tuple.Tuple over two int32 slots (k, v),
// with k optionally null — just enough to drive the scenarios below.
type kvTuple struct {
	k, v    int32
	kIsNull bool
}

func (t kvTuple) IsNull(slot tuple.Slot) bool {
	return slot.ColumnIndex == 0 && t.kIsNull
}

func (t kvTuple) Get(slot tuple.Slot) []byte {
	b := make([]byte, 4)
	switch slot.ColumnIndex {
	case 0:
		binary.LittleEndian.PutUint32(b, uint32(t.k))
	case 1:
		binary.LittleEndian.PutUint32(b, uint32(t.v))
	}
	return b
}

func kvSchema(t *testing.T, keysType schema.KeysType, kNullable bool, vAgg schema.AggregationFunc) *schema.Schema {
	t.Helper()
	agg := vAgg
	if keysType != schema.AggKeys {
		agg = schema.AggNone
	}
	s, err := schema.New([]schema.Column{
		{Name: "k", Index: 0, Type: schema.Int32, IsKey: true, Nullable: kNullable},
		{Name: "v", Index: 1, Type: schema.Int32, Agg: agg},
	}, 1)
	require.NoError(t, err)
	return s
}

func newTestMemTable(t *testing.T, s *schema.Schema, keysType schema.KeysType, w rowset.Writer, limit int64) *memtable.MemTable {
	t.Helper()
	root := tracker.New("test-root", limit)
	mt, err := memtable.New("test-tablet", s, keysType, tuple.NewDescriptor(2), w, root, nil)
	require.NoError(t, err)
	return mt
}

func flushToRows(t *testing.T, path string) []map[string]any {
	t.Helper()
	rows, err := rowset.ReadSegment(path)
	require.NoError(t, err)
	return rows
}

func kv(t *testing.T, rows []map[string]any, i int) (int32, int32) {
	t.Helper()
	kf, vf := rows[i]["k"], rows[i]["v"]
	var k int32
	if kf != nil {
		k = int32(kf.(float64))
	}
	return k, int32(vf.(float64))
}

func TestDupKeysTrivialSort(t *testing.T) {
	s := kvSchema(t, schema.DupKeys, false, schema.AggNone)
	path := t.TempDir() + "/segment.jsonl"
	w, err := rowset.NewSegmentWriter(path)
	require.NoError(t, err)
	mt := newTestMemTable(t, s, schema.DupKeys, w, 0)

	for _, pair := range [][2]int32{{3, 10}, {1, 20}, {2, 30}} {
		require.NoError(t, mt.Insert(kvTuple{k: pair[0], v: pair[1]}))
	}
	require.Greater(t, mt.MemoryUsage(), int64(0))
	require.NoError(t, mt.Close())
	require.NoError(t, w.Close())

	rows := flushToRows(t, path)
	require.Len(t, rows, 3)
	want := [][2]int32{{1, 20}, {2, 30}, {3, 10}}
	for i, pair := range want {
		k, v := kv(t, rows, i)
		require.Equal(t, pair[0], k)
		require.Equal(t, pair[1], v)
	}
}

func TestUniqueKeysLaterWins(t *testing.T) {
	s := kvSchema(t, schema.UniqueKeys, false, schema.AggNone)
	path := t.TempDir() + "/segment.jsonl"
	w, err := rowset.NewSegmentWriter(path)
	require.NoError(t, err)
	mt := newTestMemTable(t, s, schema.UniqueKeys, w, 0)

	for _, pair := range [][2]int32{{1, 100}, {1, 200}, {2, 5}, {1, 300}} {
		require.NoError(t, mt.Insert(kvTuple{k: pair[0], v: pair[1]}))
	}
	require.NoError(t, mt.Close())
	require.NoError(t, w.Close())

	rows := flushToRows(t, path)
	require.Len(t, rows, 2)
	k0, v0 := kv(t, rows, 0)
	k1, v1 := kv(t, rows, 1)
	require.Equal(t, [2]int32{1, 300}, [2]int32{k0, v0})
	require.Equal(t, [2]int32{2, 5}, [2]int32{k1, v1})
}

func TestAggKeysSum(t *testing.T) {
	s := kvSchema(t, schema.AggKeys, false, schema.AggSum)
	path := t.TempDir() + "/segment.jsonl"
	w, err := rowset.NewSegmentWriter(path)
	require.NoError(t, err)
	mt := newTestMemTable(t, s, schema.AggKeys, w, 0)

	for _, pair := range [][2]int32{{5, 1}, {5, 2}, {5, 4}, {6, 10}} {
		require.NoError(t, mt.Insert(kvTuple{k: pair[0], v: pair[1]}))
	}
	require.NoError(t, mt.Close())
	require.NoError(t, w.Close())

	rows := flushToRows(t, path)
	require.Len(t, rows, 2)
	k0, v0 := kv(t, rows, 0)
	k1, v1 := kv(t, rows, 1)
	require.Equal(t, [2]int32{5, 7}, [2]int32{k0, v0})
	require.Equal(t, [2]int32{6, 10}, [2]int32{k1, v1})
}

func TestAggKeysReplace(t *testing.T) {
	s := kvSchema(t, schema.AggKeys, false, schema.AggReplace)
	path := t.TempDir() + "/segment.jsonl"
	w, err := rowset.NewSegmentWriter(path)
	require.NoError(t, err)
	mt := newTestMemTable(t, s, schema.AggKeys, w, 0)

	for _, pair := range [][2]int32{{5, 1}, {5, 2}, {5, 4}} {
		require.NoError(t, mt.Insert(kvTuple{k: pair[0], v: pair[1]}))
	}
	require.NoError(t, mt.Close())
	require.NoError(t, w.Close())

	rows := flushToRows(t, path)
	require.Len(t, rows, 1)
	k0, v0 := kv(t, rows, 0)
	require.Equal(t, [2]int32{5, 4}, [2]int32{k0, v0})
}

func TestNullFirstOrdering(t *testing.T) {
	s := kvSchema(t, schema.DupKeys, true, schema.AggNone)
	path := t.TempDir() + "/segment.jsonl"
	w, err := rowset.NewSegmentWriter(path)
	require.NoError(t, err)
	mt := newTestMemTable(t, s, schema.DupKeys, w, 0)

	require.NoError(t, mt.Insert(kvTuple{kIsNull: true, v: 1}))
	require.NoError(t, mt.Insert(kvTuple{k: 2, v: 2}))
	require.NoError(t, mt.Insert(kvTuple{kIsNull: true, v: 3}))
	require.NoError(t, mt.Close())
	require.NoError(t, w.Close())

	rows := flushToRows(t, path)
	require.Len(t, rows, 3)
	require.Nil(t, rows[0]["k"])
	require.EqualValues(t, 1, rows[0]["v"])
	require.Nil(t, rows[1]["k"])
	require.EqualValues(t, 3, rows[1]["v"])
	require.EqualValues(t, 2, rows[2]["k"])
	require.EqualValues(t, 2, rows[2]["v"])
}

func TestMemoryLimitRefusalStillFlushesAbsorbedRows(t *testing.T) {
	s := kvSchema(t, schema.DupKeys, false, schema.AggNone)
	path := t.TempDir() + "/segment.jsonl"
	w, err := rowset.NewSegmentWriter(path)
	require.NoError(t, err)
	// Each k:int32,v:int32 row takes 8 bytes; the arena's first backing
	// buffer is 64KiB, so exactly 8192 rows fit before a second buffer
	// (128KiB) is needed. A 100000-byte budget admits the first buffer
	// (65536) but rejects the second (65536+131072), so the refusal lands
	// deterministically on row 8193.
	mt := newTestMemTable(t, s, schema.DupKeys, w, 100000)

	inserted := 0
	for i := int32(0); i < 20000; i++ {
		err := mt.Insert(kvTuple{k: i, v: i})
		if err != nil {
			require.True(t, tracker.ErrMemLimit.Has(err))
			break
		}
		inserted++
	}
	require.Equal(t, 8192, inserted)

	require.NoError(t, mt.Close())
	require.NoError(t, w.Close())

	rows := flushToRows(t, path)
	require.Len(t, rows, inserted)
	for i := 0; i < inserted; i++ {
		k, v := kv(t, rows, i)
		require.Equal(t, int32(i), k)
		require.Equal(t, int32(i), v)
	}
}

func TestMemoryUsageNonDecreasingAndZeroAfterDestroy(t *testing.T) {
	s := kvSchema(t, schema.DupKeys, false, schema.AggNone)
	path := t.TempDir() + "/segment.jsonl"
	w, err := rowset.NewSegmentWriter(path)
	require.NoError(t, err)
	mt := newTestMemTable(t, s, schema.DupKeys, w, 0)

	var last int64
	for i := int32(0); i < 50; i++ {
		require.NoError(t, mt.Insert(kvTuple{k: i, v: i}))
		cur := mt.MemoryUsage()
		require.GreaterOrEqual(t, cur, last)
		last = cur
	}

	require.NoError(t, mt.Close())
	mt.Destroy()
	require.EqualValues(t, 0, mt.MemoryUsage())
}

func TestFlushOnEmptyMemTableEmitsZeroRowsAndIncrementsCounterOnce(t *testing.T) {
	s := kvSchema(t, schema.DupKeys, false, schema.AggNone)
	path := t.TempDir() + "/segment.jsonl"
	w, err := rowset.NewSegmentWriter(path)
	require.NoError(t, err)
	mt := newTestMemTable(t, s, schema.DupKeys, w, 0)

	before := testutil.ToFloat64(metrics.FlushTotal)
	require.NoError(t, mt.Close())
	after := testutil.ToFloat64(metrics.FlushTotal)
	require.Equal(t, float64(1), after-before)

	require.NoError(t, w.Close())
	rows := flushToRows(t, path)
	require.Len(t, rows, 0)
}

func TestInsertAfterCloseIsRejected(t *testing.T) {
	s := kvSchema(t, schema.DupKeys, false, schema.AggNone)
	path := t.TempDir() + "/segment.jsonl"
	w, err := rowset.NewSegmentWriter(path)
	require.NoError(t, err)
	mt := newTestMemTable(t, s, schema.DupKeys, w, 0)
	require.NoError(t, mt.Close())

	require.Panics(t, func() { _ = mt.Insert(kvTuple{k: 1, v: 1}) })
}

func TestCloseIsReentrant(t *testing.T) {
	s := kvSchema(t, schema.DupKeys, false, schema.AggNone)
	path := t.TempDir() + "/segment.jsonl"
	w, err := rowset.NewSegmentWriter(path)
	require.NoError(t, err)
	mt := newTestMemTable(t, s, schema.DupKeys, w, 0)
	require.NoError(t, mt.Insert(kvTuple{k: 1, v: 1}))
	require.NoError(t, mt.Close())
	require.NoError(t, mt.Close()) // re-entrant no-op
}
