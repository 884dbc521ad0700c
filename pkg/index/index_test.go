package index_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Gourab-18/olap_memtable/pkg/arena"
	"github.com/Gourab-18/olap_memtable/pkg/index"
	"github.com/Gourab-18/olap_memtable/pkg/rowcodec"
	"github.com/Gourab-18/olap_memtable/pkg/schema"
)

func oneKeySchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Column{
		{Name: "id", Index: 0, Type: schema.Int64, IsKey: true},
		{Name: "v", Index: 1, Type: schema.Int64, Agg: schema.AggSum},
	}, 1)
	require.NoError(t, err)
	return s
}

func rowWithKey(t *testing.T, s *schema.Schema, a *arena.Arena, key int64) rowcodec.View {
	t.Helper()
	buf, err := a.Allocate(s.RowSize())
	require.NoError(t, err)
	v := rowcodec.View{Buf: buf, Schema: s, Arena: a}
	v.PutInt64(0, key)
	return v
}

func TestDupKeysAlwaysInsertsInInsertionOrder(t *testing.T) {
	s := oneKeySchema(t)
	a := arena.New(nil)
	ix := index.New(s.KeyCount, schema.DupKeys)

	for i := 0; i < 3; i++ {
		row := rowWithKey(t, s, a, 1)
		row.PutInt64(1, int64(i))
		r := ix.Insert(row)
		require.True(t, r.Inserted)
	}
	require.Equal(t, 3, ix.Len())

	var seen []int64
	ix.IterFromFirst(func(v rowcodec.View) bool {
		seen = append(seen, v.Int64(1))
		return true
	})
	require.Equal(t, []int64{0, 1, 2}, seen)
}

func TestUniqueKeysOverwritesOnCollision(t *testing.T) {
	s := oneKeySchema(t)
	a := arena.New(nil)
	ix := index.New(s.KeyCount, schema.UniqueKeys)

	first := rowWithKey(t, s, a, 1)
	first.PutInt64(1, 100)
	r1 := ix.Insert(first)
	require.True(t, r1.Inserted)

	second := rowWithKey(t, s, a, 1)
	second.PutInt64(1, 200)
	r2 := ix.Insert(second)
	require.False(t, r2.Inserted)
	require.Equal(t, 1, ix.Len())

	var values []int64
	ix.IterFromFirst(func(v rowcodec.View) bool {
		values = append(values, v.Int64(1))
		return true
	})
	require.Equal(t, []int64{200}, values)
}

func TestAggKeysReportsExistingWithoutInserting(t *testing.T) {
	s := oneKeySchema(t)
	a := arena.New(nil)
	ix := index.New(s.KeyCount, schema.AggKeys)

	first := rowWithKey(t, s, a, 1)
	first.PutInt64(1, 10)
	r1 := ix.Insert(first)
	require.True(t, r1.Inserted)

	second := rowWithKey(t, s, a, 1)
	second.PutInt64(1, 20)
	r2 := ix.Insert(second)
	require.False(t, r2.Inserted)
	require.Equal(t, int64(10), r2.Existing.Int64(1))
	require.Equal(t, 1, ix.Len())
}

func TestIterFromFirstVisitsInAscendingKeyOrder(t *testing.T) {
	s := oneKeySchema(t)
	a := arena.New(nil)
	ix := index.New(s.KeyCount, schema.UniqueKeys)

	for _, k := range []int64{5, 1, 3, 2, 4} {
		ix.Insert(rowWithKey(t, s, a, k))
	}

	var seen []int64
	ix.IterFromFirst(func(v rowcodec.View) bool {
		seen = append(seen, v.Int64(0))
		return true
	})
	require.Equal(t, []int64{1, 2, 3, 4, 5}, seen)
}
