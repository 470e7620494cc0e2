// Package bitset provides a word-at-a-time bitmap view over a byte slice
// that the caller owns (typically a slice of a page's payload). It does not
// allocate or own storage itself.
package bitset

import (
	"unsafe"

	"github.com/csc-systems/pagestore/common"
)

// Bitmap is a fixed-length view over numBits bits packed into the words
// backing an existing byte slice.
type Bitmap struct {
	words   []uint64
	numBits int
}

// Of creates a Bitmap view over data. data must be 8-byte aligned in length
// and large enough to hold numBits bits (rounded up to the nearest word).
func Of(data []byte, numBits int) Bitmap {
	common.Assert(common.AlignedTo8(len(data)), "bitset: backing slice length must be 8-byte aligned")
	numWords := (numBits + 63) / 64
	common.Assert(len(data) >= numWords*8, "bitset: backing slice too small for %d bits", numBits)

	ptr := unsafe.Pointer(&data[0])
	words := unsafe.Slice((*uint64)(ptr), numWords)
	return Bitmap{words: words, numBits: numBits}
}

// ByteSize returns the number of bytes required to back a Bitmap of numBits
// bits, rounded up to an 8-byte word boundary.
func ByteSize(numBits int) int {
	return common.Align8((numBits + 7) / 8)
}

// Set sets bit i to on, returning the bit's previous value.
func (b Bitmap) Set(i int, on bool) (previous bool) {
	common.Assert(i >= 0 && i < b.numBits, "bitset: index %d out of range", i)
	word := &b.words[i/64]
	mask := uint64(1) << uint(i%64)
	previous = *word&mask != 0
	if on {
		*word |= mask
	} else {
		*word &^= mask
	}
	return previous
}

// Get returns the value of bit i.
func (b Bitmap) Get(i int) bool {
	common.Assert(i >= 0 && i < b.numBits, "bitset: index %d out of range", i)
	return b.words[i/64]&(uint64(1)<<uint(i%64)) != 0
}

// Clear zeroes every word of the bitmap.
func (b Bitmap) Clear() {
	for i := range b.words {
		b.words[i] = 0
	}
}
