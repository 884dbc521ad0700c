// Package rowset describes the downstream sink a MemTable drains into on
// flush: an ordered sequence of AddRow calls followed by exactly one Flush,
// which seals the segment. The MemTable borrows a Writer; it never owns one.
package rowset

import "github.com/Gourab-18/olap_memtable/pkg/rowcodec"

// Writer accepts finalized rows in ascending key order and produces an
// on-disk columnar segment. Implementations must not assume a row's
// underlying buffer outlives the AddRow call unless they copy out of it
// (rowcodec.View.Export does exactly that).
type Writer interface {
	AddRow(row rowcodec.View) error
	Flush() error
}
