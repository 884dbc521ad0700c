// Package memtable implements the ingest/flush coordinator: the public
// MemTable façade that accepts tuples, orchestrates encoding, aggregation,
// and index insertion, answers memory-usage queries, and drains the index
// in key order into a rowset writer.
package memtable

import (
	"fmt"
	"sync"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/Gourab-18/olap_memtable/pkg/aggregate"
	"github.com/Gourab-18/olap_memtable/pkg/arena"
	"github.com/Gourab-18/olap_memtable/pkg/index"
	"github.com/Gourab-18/olap_memtable/pkg/metrics"
	"github.com/Gourab-18/olap_memtable/pkg/rowcodec"
	"github.com/Gourab-18/olap_memtable/pkg/rowset"
	"github.com/Gourab-18/olap_memtable/pkg/schema"
	"github.com/Gourab-18/olap_memtable/pkg/tracker"
	"github.com/Gourab-18/olap_memtable/pkg/tuple"
)

// Error classes surfaced by the MemTable. Arena/tracker rejections carry
// tracker.ErrMemLimit; everything else here is one of these two.
var (
	// ErrWriter classifies a non-OK status returned by the rowset writer.
	ErrWriter = errs.Class("writer_error")
	// ErrInternal classifies a violated invariant. Per policy these are
	// bugs: the MemTable panics rather than returning a status.
	ErrInternal = errs.Class("internal")
)

type state int

const (
	stateOpen state = iota
	stateFlushing
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "OPEN"
	case stateFlushing:
		return "FLUSHING"
	case stateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// MemTable is the in-memory write buffer for one tablet. A single producer
// thread is assumed; the state machine is still guarded
// by a mutex the same way the teacher guards its own mutable tablet state,
// rather than trusting callers never to overlap Insert with Flush/Close.
type MemTable struct {
	mu sync.Mutex

	tabletID  string
	schema    *schema.Schema
	keysType  schema.KeysType
	tupleDesc tuple.Descriptor
	writer    rowset.Writer
	logger    *zap.Logger

	tracker    *tracker.Tracker
	arena      *arena.Arena
	dispatcher *aggregate.Dispatcher
	index      *index.Index

	scratch *rowcodec.View // nil means "allocate on next Insert"
	state   state
}

// New constructs a MemTable bound to one tablet, schema, and keys-type,
// draining into writer on Flush and reporting arena consumption to parent
// (which may be nil for an untracked, unbounded arena). logger may be nil,
// in which case a no-op logger is used.
func New(
	tabletID string,
	s *schema.Schema,
	keysType schema.KeysType,
	tupleDesc tuple.Descriptor,
	writer rowset.Writer,
	parent *tracker.Tracker,
	logger *zap.Logger,
) (*MemTable, error) {
	if len(tupleDesc.Slots) != len(s.Columns) {
		return nil, fmt.Errorf("memtable: tuple descriptor has %d slots, schema has %d columns", len(tupleDesc.Slots), len(s.Columns))
	}
	disp, err := aggregate.NewDispatcher(s)
	if err != nil {
		return nil, fmt.Errorf("memtable: building aggregator dispatch: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	childTracker := parent.Child(tabletID+"-memtable", 0)
	mt := &MemTable{
		tabletID:   tabletID,
		schema:     s,
		keysType:   keysType,
		tupleDesc:  tupleDesc,
		writer:     writer,
		logger:     logger,
		tracker:    childTracker,
		arena:      arena.New(childTracker),
		dispatcher: disp,
		index:      index.New(s.KeyCount, keysType),
	}
	return mt, nil
}

// Insert encodes tup into the next row buffer and applies it to the index
// per this MemTable's keys-type, merging on collision under AggKeys.
func (mt *MemTable) Insert(tup tuple.Tuple) error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.state != stateOpen {
		panic(ErrInternal.New("insert called on memtable in state %s", mt.state))
	}

	if mt.scratch == nil {
		if err := mt.allocateScratch(); err != nil {
			return err
		}
	}
	scratch := *mt.scratch

	for i := range mt.schema.Columns {
		slot := mt.tupleDesc.Slots[i]
		isNull := tup.IsNull(slot)
		var raw []byte
		if !isNull {
			raw = tup.Get(slot)
		}
		if err := mt.dispatcher.For(i).Consume(scratch, i, raw, isNull); err != nil {
			return err
		}
	}

	result := mt.index.Insert(scratch)
	switch {
	case result.Inserted:
		mt.scratch = nil // lazily reallocated at the top of the next Insert

	case mt.keysType == schema.AggKeys:
		for i := mt.schema.KeyCount; i < len(mt.schema.Columns); i++ {
			if err := mt.dispatcher.For(i).Update(result.Existing, i, scratch); err != nil {
				panic(ErrInternal.Wrap(err))
			}
		}
		// scratch buffer is reused as-is for the next insert.

	case mt.keysType == schema.UniqueKeys:
		// index already overwrote the pointer; the old row is now
		// unreachable but stays arena-owned until teardown.
		mt.scratch = nil

	default:
		panic(ErrInternal.New("index reported a collision under %s, which never merges or replaces", mt.keysType))
	}
	return nil
}

func (mt *MemTable) allocateScratch() error {
	buf, err := mt.arena.Allocate(mt.schema.RowSize())
	if err != nil {
		return err // already classed as tracker.ErrMemLimit
	}
	v := rowcodec.View{Buf: buf, Schema: mt.schema, Arena: mt.arena}
	mt.scratch = &v
	return nil
}

// MemoryUsage returns the arena's current consumption.
func (mt *MemTable) MemoryUsage() int64 {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.arena.Consumed()
}

// Flush finalizes and drains every row in the index, in ascending key
// order, into the rowset writer, then seals the writer's segment. It
// aborts at the first failing row or writer call, transitions to CLOSED
// regardless of outcome, and returns the first non-OK status encountered.
func (mt *MemTable) Flush() error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.state == stateClosed {
		return nil
	}
	mt.state = stateFlushing
	start := time.Now()

	var flushErr error
	rows := 0
	mt.index.IterFromFirst(func(v rowcodec.View) bool {
		for i := mt.schema.KeyCount; i < len(mt.schema.Columns); i++ {
			if err := mt.dispatcher.For(i).Finalize(v, i); err != nil {
				flushErr = err // arena rejection, already classed as tracker.ErrMemLimit
				return false
			}
		}
		if err := mt.writer.AddRow(v); err != nil {
			flushErr = ErrWriter.Wrap(err)
			return false
		}
		rows++
		return true
	})

	if flushErr == nil {
		if err := mt.writer.Flush(); err != nil {
			flushErr = ErrWriter.Wrap(err)
		}
	}

	elapsed := time.Since(start)
	if flushErr == nil {
		metrics.FlushTotal.Inc()
		metrics.FlushDurationMicros.Add(float64(elapsed.Microseconds()))
	}

	mt.logger.Info("memtable flush",
		zap.String("tablet", mt.tabletID),
		zap.Int("rows", rows),
		zap.Duration("elapsed", elapsed),
		zap.Error(flushErr),
	)

	mt.state = stateClosed
	return flushErr
}

// Close flushes the MemTable if it hasn't been already. Re-entrant after
// CLOSED: a no-op returning nil.
func (mt *MemTable) Close() error {
	mt.mu.Lock()
	closed := mt.state == stateClosed
	mt.mu.Unlock()
	if closed {
		return nil
	}
	return mt.Flush()
}

// Destroy releases the MemTable's arena back to its tracker, dropping
// memory_usage() to 0. Call only after Close(); the MemTable must not be
// used afterward.
func (mt *MemTable) Destroy() {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.arena.Destroy()
}
