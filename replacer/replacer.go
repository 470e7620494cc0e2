// Package replacer implements the frame replacement policy consumed by the
// buffer pool: a bounded set of candidate frame ids with a
// Victim/Pin/Unpin/Size contract.
package replacer

import "github.com/csc-systems/pagestore/common"

// Replacer tracks unpinned, resident frames and chooses a victim among them
// when the buffer pool needs to evict. Pin on a frame that is not a
// candidate, and Unpin on one that already is, are no-ops rather than
// errors. Implementations must be safe for concurrent use.
type Replacer interface {
	// Victim chooses and removes one frame id from the candidate set. The
	// second return value is false if the candidate set is empty.
	Victim() (common.FrameID, bool)
	// Pin removes f from the candidate set if present. Pinning a frame that
	// is not a candidate is a no-op.
	Pin(f common.FrameID)
	// Unpin inserts f into the candidate set if absent. Unpinning a frame
	// that is already a candidate is a no-op.
	Unpin(f common.FrameID)
	// Size returns the number of candidate frames.
	Size() int
}
