package hashindex

import (
	"github.com/csc-systems/pagestore/common"
	"github.com/csc-systems/pagestore/common/bitset"
)

// ComputeBlockArraySize returns the largest number of (key, value) slots
// that fit in one page alongside their occupied/readable bitmaps, for a
// pair whose encoded size is pairSize bytes. This runs at construction
// time rather than being a compile-time constant, since pair size depends
// on the caller's Codec.
func ComputeBlockArraySize(pairSize int) int {
	n := common.PageSize / pairSize
	for n > 0 {
		occBytes := bitset.ByteSize(n)
		if 2*occBytes+n*pairSize <= common.PageSize {
			return n
		}
		n--
	}
	return 0
}

// BlockPage is a typed view over one page's worth of hash table slots: a
// fixed-count array of (key, value) pairs plus parallel occupied/readable
// bitmaps. It does not own the backing bytes; the caller supplies a page's
// payload (typically a buffer.Frame's Bytes) and this type interprets it
// in place.
type BlockPage[K comparable, V comparable] struct {
	data      []byte
	keyCodec  Codec[K]
	valCodec  Codec[V]
	pairSize  int
	arraySize int
	arrayOff  int
	occupied  bitset.Bitmap
	readable  bitset.Bitmap
}

// NewBlockPageView wraps data (which must be exactly common.PageSize bytes)
// as a BlockPage using keyCodec/valCodec to interpret each slot.
func NewBlockPageView[K comparable, V comparable](data []byte, keyCodec Codec[K], valCodec Codec[V]) *BlockPage[K, V] {
	common.Assert(len(data) == common.PageSize, "hashindex: block page view requires a full page")

	pairSize := keyCodec.Size() + valCodec.Size()
	arraySize := ComputeBlockArraySize(pairSize)
	occBytes := bitset.ByteSize(arraySize)

	return &BlockPage[K, V]{
		data:      data,
		keyCodec:  keyCodec,
		valCodec:  valCodec,
		pairSize:  pairSize,
		arraySize: arraySize,
		arrayOff:  2 * occBytes,
		occupied:  bitset.Of(data[0:occBytes], arraySize),
		readable:  bitset.Of(data[occBytes:2*occBytes], arraySize),
	}
}

// ArraySize returns the number of slots this block holds.
func (b *BlockPage[K, V]) ArraySize() int { return b.arraySize }

func (b *BlockPage[K, V]) slotOffset(i int) int {
	return b.arrayOff + i*b.pairSize
}

func (b *BlockPage[K, V]) inRange(i int) bool {
	return i >= 0 && i < b.arraySize
}

// KeyAt returns the key stored at index i, regardless of occupied/readable
// state. Callers should check IsOccupied/IsReadable first. An out-of-range
// index returns the zero value rather than panicking.
func (b *BlockPage[K, V]) KeyAt(i int) K {
	if !b.inRange(i) {
		var zero K
		return zero
	}
	off := b.slotOffset(i)
	return b.keyCodec.Decode(b.data[off : off+b.keyCodec.Size()])
}

// ValueAt returns the value stored at index i. An out-of-range index
// returns the zero value rather than panicking.
func (b *BlockPage[K, V]) ValueAt(i int) V {
	if !b.inRange(i) {
		var zero V
		return zero
	}
	off := b.slotOffset(i) + b.keyCodec.Size()
	return b.valCodec.Decode(b.data[off : off+b.valCodec.Size()])
}

// Insert writes (key, value) at index i, succeeding only if i is in range
// and the slot is not already occupied. Slots past tombstones are not
// reclaimed here; reclamation happens only during a table resize.
func (b *BlockPage[K, V]) Insert(i int, key K, value V) bool {
	if !b.inRange(i) || b.IsOccupied(i) {
		return false
	}
	off := b.slotOffset(i)
	b.keyCodec.Encode(key, b.data[off:off+b.keyCodec.Size()])
	b.valCodec.Encode(value, b.data[off+b.keyCodec.Size():off+b.pairSize])
	b.occupied.Set(i, true)
	b.readable.Set(i, true)
	return true
}

// Remove clears the readable bit at index i, leaving the occupied bit set.
// This produces a tombstone: probing must continue past it, but the slot
// cannot be reused until the block is reset by a resize. An out-of-range
// index, or a slot that isn't currently readable, is a no-op.
func (b *BlockPage[K, V]) Remove(i int) {
	if !b.inRange(i) || !b.IsReadable(i) {
		return
	}
	b.readable.Set(i, false)
}

// IsOccupied reports whether index i has ever held a key/value pair. An
// out-of-range index reports false.
func (b *BlockPage[K, V]) IsOccupied(i int) bool {
	return b.inRange(i) && b.occupied.Get(i)
}

// IsReadable reports whether index i currently holds a live pair. An
// out-of-range index reports false.
func (b *BlockPage[K, V]) IsReadable(i int) bool {
	return b.inRange(i) && b.readable.Get(i)
}

// Reset clears both bitmaps and zeroes the slot array, returning every
// slot to the Empty state. Used only by Resize's collect phase.
func (b *BlockPage[K, V]) Reset() {
	b.occupied.Clear()
	b.readable.Clear()
	for i := b.arrayOff; i < len(b.data); i++ {
		b.data[i] = 0
	}
}
