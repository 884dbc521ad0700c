package rowset_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Gourab-18/olap_memtable/pkg/arena"
	"github.com/Gourab-18/olap_memtable/pkg/rowcodec"
	"github.com/Gourab-18/olap_memtable/pkg/rowset"
	"github.com/Gourab-18/olap_memtable/pkg/schema"
)

func TestSegmentWriterRoundTrip(t *testing.T) {
	s, err := schema.New([]schema.Column{
		{Name: "id", Index: 0, Type: schema.Int64, IsKey: true},
		{Name: "name", Index: 1, Type: schema.Varchar, Nullable: true},
	}, 1)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "segment.jsonl")
	w, err := rowset.NewSegmentWriter(path)
	require.NoError(t, err)

	a := arena.New(nil)
	for i, name := range []string{"alice", "", "carol"} {
		buf, err := a.Allocate(s.RowSize())
		require.NoError(t, err)
		v := rowcodec.View{Buf: buf, Schema: s, Arena: a}
		v.PutInt64(0, int64(i))
		if name == "" {
			v.SetNull(1, true)
		} else {
			require.NoError(t, v.PutBytes(1, []byte(name)))
		}
		require.NoError(t, w.AddRow(v))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	rows, err := rowset.ReadSegment(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.EqualValues(t, 0, rows[0]["id"])
	require.Nil(t, rows[1]["name"])
}
