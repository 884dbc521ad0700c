// Package tuple describes the upstream row batcher's contract: one logical
// row at a time, exposed as a null check plus a raw payload accessor per
// slot. The MemTable never owns a Tuple; it only reads from one during
// Insert.
package tuple

// Slot identifies one column's value within a Tuple. It is deliberately
// simpler than an offset/pointer descriptor (no null-indicator-offset,
// tuple-offset pair): the Tuple interface below does the byte access, so a
// Slot only needs to name which column it is.
type Slot struct {
	ColumnIndex int
}

// Tuple is the upstream row view the MemTable reads from on Insert.
type Tuple interface {
	// IsNull reports whether the slot's value is null.
	IsNull(slot Slot) bool
	// Get returns the slot's raw encoded payload. The returned bytes are
	// only valid for the duration of the Insert call; implementations must
	// not assume callers retain them afterward without copying.
	Get(slot Slot) []byte
}

// Descriptor lists the slots a MemTable will read from each incoming Tuple,
// one per schema column, in schema column order.
type Descriptor struct {
	Slots []Slot
}

// NewDescriptor builds the identity descriptor for a schema with n columns:
// slot i reads column i.
func NewDescriptor(n int) Descriptor {
	slots := make([]Slot, n)
	for i := range slots {
		slots[i] = Slot{ColumnIndex: i}
	}
	return Descriptor{Slots: slots}
}
