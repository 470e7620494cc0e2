package buffer

import (
	"sync"

	"github.com/csc-systems/pagestore/common"
)

// Frame is one slot of the buffer pool's fixed frame array: a page-sized
// payload plus its resident page id, pin count, and dirty flag, and the
// per-frame reader/writer latch guarding all of it.
//
// The pool mutates pageID/pinCount/dirty only while holding Latch for
// writing; readers of the payload alone may hold Latch for reading.
type Frame struct {
	Bytes [common.PageSize]byte

	Latch sync.RWMutex

	pageID   common.PageID
	pinCount int
	dirty    bool
}

// WLatch acquires the frame's latch for writing (payload mutation or
// metadata mutation).
func (f *Frame) WLatch() { f.Latch.Lock() }

// WUnlatch releases a write latch acquired via WLatch.
func (f *Frame) WUnlatch() { f.Latch.Unlock() }

// RLatch acquires the frame's latch for reading.
func (f *Frame) RLatch() { f.Latch.RLock() }

// RUnlatch releases a read latch acquired via RLatch.
func (f *Frame) RUnlatch() { f.Latch.RUnlock() }

// PageID returns the id of the page currently resident in this frame.
// Callers must hold at least a read latch.
func (f *Frame) PageID() common.PageID { return f.pageID }

// PinCount returns the frame's current pin count. Callers must hold at
// least a read latch.
func (f *Frame) PinCount() int { return f.pinCount }

// IsDirty reports whether the frame's payload has been modified since its
// last flush. Callers must hold at least a read latch.
func (f *Frame) IsDirty() bool { return f.dirty }

// reset clears all metadata and zeroes the payload. Called by the pool
// while holding the frame's write latch, either to prepare a frame for a
// fresh page (NewPage) or to return it to the free list (DeletePage).
func (f *Frame) reset() {
	f.pageID = common.InvalidPageID
	f.pinCount = 0
	f.dirty = false
	for i := range f.Bytes {
		f.Bytes[i] = 0
	}
}
