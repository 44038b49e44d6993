// Package scratch provides the per-request compilation buffer.
//
// A Buffer is a small arena of reusable slices and maps shared by the
// compilation stages (parser, NFA generator, DFA builder). It is owned by a
// single compilation request and mutably lent to one stage at a time; stages
// must not retain references past their return. A Buffer is not safe for
// concurrent use.
package scratch

// Buffer is the reusable scratch area of one compilation request.
type Buffer struct {
	// Runes is shared rune scratch (parser escapes, class building).
	Runes []rune

	// IDs is shared state-ID scratch (closure work lists).
	IDs []uint32

	// Ints is shared integer scratch (slot operations, offsets).
	Ints []int

	// Bytes is shared byte scratch (state-set keys).
	Bytes []byte

	// Marks is a reusable visited set keyed by packed (state, position)
	// pairs. Callers must clear it before use; see ClearMarks.
	Marks map[uint64]struct{}
}

// New returns an empty buffer. Slices grow on demand and are retained
// across stages so later stages reuse earlier allocations.
func New() *Buffer {
	return &Buffer{
		Marks: make(map[uint64]struct{}),
	}
}

// TakeRunes returns the rune scratch slice truncated to length zero.
func (b *Buffer) TakeRunes() []rune {
	return b.Runes[:0]
}

// PutRunes stores a (possibly grown) rune slice back into the buffer.
func (b *Buffer) PutRunes(rs []rune) {
	if cap(rs) > cap(b.Runes) {
		b.Runes = rs
	}
}

// TakeIDs returns the ID scratch slice truncated to length zero.
func (b *Buffer) TakeIDs() []uint32 {
	return b.IDs[:0]
}

// PutIDs stores a (possibly grown) ID slice back into the buffer.
func (b *Buffer) PutIDs(ids []uint32) {
	if cap(ids) > cap(b.IDs) {
		b.IDs = ids
	}
}

// TakeBytes returns the byte scratch slice truncated to length zero.
func (b *Buffer) TakeBytes() []byte {
	return b.Bytes[:0]
}

// PutBytes stores a (possibly grown) byte slice back into the buffer.
func (b *Buffer) PutBytes(bs []byte) {
	if cap(bs) > cap(b.Bytes) {
		b.Bytes = bs
	}
}

// ClearMarks empties the visited set without releasing its storage.
func (b *Buffer) ClearMarks() {
	clear(b.Marks)
}

// Mark records the packed key and reports whether it was already present.
func (b *Buffer) Mark(key uint64) bool {
	if _, ok := b.Marks[key]; ok {
		return true
	}
	b.Marks[key] = struct{}{}
	return false
}

// Reset truncates all scratch storage and empties the visited set;
// capacity is retained.
func (b *Buffer) Reset() {
	b.Runes = b.Runes[:0]
	b.IDs = b.IDs[:0]
	b.Ints = b.Ints[:0]
	b.Bytes = b.Bytes[:0]
	clear(b.Marks)
}
