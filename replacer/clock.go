package replacer

import (
	"sync"

	"github.com/csc-systems/pagestore/common"
)

type clockSlot struct {
	valid bool
	ref   bool
}

// ClockReplacer implements second-chance clock replacement over a fixed
// number of frame ids. The slot array is circular; a hand advances one slot
// per step and persists across calls. A single mutex covers the whole slot
// array and the hand — this is a plain scan under one lock, not the
// pool-mutex-plus-per-frame latching the buffer pool itself uses (see
// buffer.Pool); the replacer is a small, independently latched component
// and contention over it is not expected to be the bottleneck.
type ClockReplacer struct {
	mu    sync.Mutex
	slots []clockSlot
	hand  int
	size  int
}

// NewClockReplacer creates a replacer over poolSize candidate frame ids,
// all initially absent from the candidate set.
func NewClockReplacer(poolSize int) *ClockReplacer {
	return &ClockReplacer{slots: make([]clockSlot, poolSize)}
}

// Victim implements Replacer.
func (c *ClockReplacer) Victim() (common.FrameID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.size == 0 {
		return 0, false
	}

	for {
		idx := c.hand
		c.hand = (c.hand + 1) % len(c.slots)

		s := &c.slots[idx]
		if !s.valid {
			continue
		}
		if s.ref {
			// Second chance: clear the ref bit and keep scanning.
			s.ref = false
			continue
		}
		s.valid = false
		c.size--
		return common.FrameID(idx), true
	}
}

// Pin implements Replacer.
func (c *ClockReplacer) Pin(f common.FrameID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.slots[f]
	if s.valid {
		s.valid = false
		s.ref = false
		c.size--
	}
}

// Unpin implements Replacer.
func (c *ClockReplacer) Unpin(f common.FrameID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.slots[f]
	if !s.valid {
		s.valid = true
		s.ref = true
		c.size++
	}
}

// Size implements Replacer.
func (c *ClockReplacer) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

var _ Replacer = (*ClockReplacer)(nil)
