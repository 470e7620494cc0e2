// Package buffer implements the fixed-size page buffer manager: a page
// table over a bounded frame array, an explicit free list, and a replacer
// for eviction among unpinned frames.
package buffer

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/csc-systems/pagestore/common"
	"github.com/csc-systems/pagestore/disk"
	"github.com/csc-systems/pagestore/replacer"
	"github.com/csc-systems/pagestore/wal"
)

// Pool is the buffer pool manager. Its frame array is fixed at construction
// time; PoolSize frames are the only resident-page capacity the pool ever
// has. All page-table, free-list, and replacer bookkeeping happens under
// poolMu; each frame's own Latch separately guards that frame's payload and
// metadata. Callers above this package that hold their own latches (a hash
// table's table latch or block latch, for instance) must acquire those
// before calling into Pool; Pool itself never calls back out to a caller
// while holding poolMu or a frame latch.
type Pool struct {
	disk disk.Manager
	log  wal.LogManager

	frames []Frame

	poolMu    sync.Mutex
	pageTable *xsync.MapOf[common.PageID, common.FrameID]
	freeList  []common.FrameID
	replacer  replacer.Replacer
}

// NewPool creates a buffer pool with poolSize frames, backed by d for page
// I/O and holding a reference to l for future WAL integration.
func NewPool(poolSize int, d disk.Manager, l wal.LogManager) *Pool {
	common.Assert(poolSize > 0, "buffer: pool size must be positive")

	freeList := make([]common.FrameID, poolSize)
	for i := range freeList {
		freeList[i] = common.FrameID(i)
	}

	frames := make([]Frame, poolSize)
	for i := range frames {
		frames[i].pageID = common.InvalidPageID
	}

	return &Pool{
		disk:      d,
		log:       l,
		frames:    frames,
		pageTable: xsync.NewMapOf[common.PageID, common.FrameID](),
		freeList:  freeList,
		replacer:  replacer.NewClockReplacer(poolSize),
	}
}

// Size returns the pool's fixed frame capacity.
func (p *Pool) Size() int { return len(p.frames) }

// findVictimLocked returns a frame id to reuse, preferring an already-free
// frame over evicting an unpinned resident one. Must be called with poolMu
// held. Returns false if every frame is currently pinned.
func (p *Pool) findVictimLocked() (common.FrameID, bool) {
	if n := len(p.freeList); n > 0 {
		f := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return f, true
	}
	return p.replacer.Victim()
}

// evictLocked prepares frame f to hold a different page: if it currently
// holds a dirty page, that page is flushed to disk first. The frame's old
// page table entry is removed. Must be called with poolMu held; frame f
// must not be a page table target for any other frame id.
func (p *Pool) evictLocked(f common.FrameID) error {
	fr := &p.frames[f]
	fr.WLatch()
	defer fr.WUnlatch()

	if !fr.pageID.IsValid() {
		return nil
	}
	if fr.dirty {
		if err := p.disk.WritePage(fr.pageID, fr.Bytes[:]); err != nil {
			return err
		}
	}
	p.pageTable.Delete(fr.pageID)
	fr.reset()
	return nil
}

// FetchPage returns the frame holding pageID, reading it from disk and
// installing it in a free or victim frame if it is not already resident.
// The returned frame is pinned; callers must call UnpinPage when done.
// Returns false if the page could not be fetched (pool exhausted, or a
// disk read failure — the latter also returns a non-nil error).
func (p *Pool) FetchPage(pageID common.PageID) (*Frame, bool, error) {
	p.poolMu.Lock()

	if f, ok := p.pageTable.Load(pageID); ok {
		fr := &p.frames[f]
		fr.WLatch()
		fr.pinCount++
		if fr.pinCount == 1 {
			p.replacer.Pin(f)
		}
		fr.WUnlatch()
		p.poolMu.Unlock()
		return fr, true, nil
	}

	f, ok := p.findVictimLocked()
	if !ok {
		p.poolMu.Unlock()
		return nil, false, nil
	}
	if err := p.evictLocked(f); err != nil {
		p.freeList = append(p.freeList, f)
		p.poolMu.Unlock()
		return nil, false, err
	}

	fr := &p.frames[f]
	fr.WLatch()
	if err := p.disk.ReadPage(pageID, fr.Bytes[:]); err != nil {
		fr.WUnlatch()
		p.freeList = append(p.freeList, f)
		p.poolMu.Unlock()
		return nil, false, err
	}
	fr.pageID = pageID
	fr.pinCount = 1
	fr.dirty = false
	fr.WUnlatch()

	p.pageTable.Store(pageID, f)
	p.replacer.Pin(f)
	p.poolMu.Unlock()
	return fr, true, nil
}

// NewPage allocates a fresh page on disk and installs it, pinned, in a
// free or victim frame. Returns false if the pool is exhausted (no free
// frame and no unpinned frame to evict).
func (p *Pool) NewPage() (*Frame, common.PageID, bool, error) {
	p.poolMu.Lock()

	f, ok := p.findVictimLocked()
	if !ok {
		p.poolMu.Unlock()
		return nil, common.InvalidPageID, false, nil
	}
	if err := p.evictLocked(f); err != nil {
		p.freeList = append(p.freeList, f)
		p.poolMu.Unlock()
		return nil, common.InvalidPageID, false, err
	}

	pageID, err := p.disk.AllocatePage()
	if err != nil {
		p.freeList = append(p.freeList, f)
		p.poolMu.Unlock()
		return nil, common.InvalidPageID, false, err
	}

	fr := &p.frames[f]
	fr.WLatch()
	fr.pageID = pageID
	fr.pinCount = 1
	fr.dirty = false
	fr.WUnlatch()

	p.pageTable.Store(pageID, f)
	p.replacer.Pin(f)
	p.poolMu.Unlock()
	return fr, pageID, true, nil
}

// UnpinPage decrements the pin count of pageID's resident frame. isDirty,
// if true, marks the frame dirty; a frame once marked dirty stays dirty
// until flushed, regardless of later Unpin calls with isDirty=false, since
// a later clean unpin must never erase an earlier caller's report of a
// write. When the pin count reaches zero the frame becomes a replacer
// candidate again. Returns false if pageID is not resident, or if it is
// resident with a pin count already at zero, so a mismatched Unpin call is
// reported to the caller instead of silently corrupting the count.
func (p *Pool) UnpinPage(pageID common.PageID, isDirty bool) bool {
	p.poolMu.Lock()
	f, ok := p.pageTable.Load(pageID)
	if !ok {
		p.poolMu.Unlock()
		return false
	}

	fr := &p.frames[f]
	fr.WLatch()
	if fr.pinCount == 0 {
		fr.WUnlatch()
		p.poolMu.Unlock()
		return false
	}
	if isDirty {
		fr.dirty = true
	}
	fr.pinCount--
	becameUnpinned := fr.pinCount == 0
	fr.WUnlatch()

	if becameUnpinned {
		p.replacer.Unpin(f)
	}
	p.poolMu.Unlock()
	return true
}

// FlushPage writes pageID's resident frame to disk regardless of its dirty
// flag, without evicting it. Returns false if pageID is not resident.
func (p *Pool) FlushPage(pageID common.PageID) (bool, error) {
	p.poolMu.Lock()
	f, ok := p.pageTable.Load(pageID)
	p.poolMu.Unlock()
	if !ok {
		return false, nil
	}

	fr := &p.frames[f]
	fr.WLatch()
	defer fr.WUnlatch()
	if fr.pageID != pageID {
		// Evicted and replaced between the lookup above and taking the
		// latch; the caller's page is simply no longer resident.
		return false, nil
	}
	if err := p.disk.WritePage(pageID, fr.Bytes[:]); err != nil {
		return false, err
	}
	fr.dirty = false
	return true, nil
}

// FlushAllPages flushes every currently resident, dirty page. The set of
// pages to flush is snapshotted under poolMu and the actual disk I/O
// happens without holding it, so FetchPage/NewPage/UnpinPage are not
// blocked for the duration of a full-pool flush.
func (p *Pool) FlushAllPages() error {
	type target struct {
		pageID common.PageID
		frame  common.FrameID
	}
	var targets []target

	p.poolMu.Lock()
	p.pageTable.Range(func(pageID common.PageID, f common.FrameID) bool {
		targets = append(targets, target{pageID: pageID, frame: f})
		return true
	})
	p.poolMu.Unlock()

	for _, t := range targets {
		fr := &p.frames[t.frame]
		fr.WLatch()
		if fr.pageID == t.pageID && fr.dirty {
			if err := p.disk.WritePage(t.pageID, fr.Bytes[:]); err != nil {
				fr.WUnlatch()
				return err
			}
			fr.dirty = false
		}
		fr.WUnlatch()
	}
	return nil
}

// DeletePage removes pageID from the buffer pool and deallocates it on
// disk. Returns false without modifying anything if the page is currently
// pinned; a page in active use can never be deleted out from under its
// callers. A page that is not resident is left untouched (it is not
// deallocated on disk) and true is returned.
func (p *Pool) DeletePage(pageID common.PageID) (bool, error) {
	p.poolMu.Lock()
	f, ok := p.pageTable.Load(pageID)
	if !ok {
		p.poolMu.Unlock()
		return true, nil
	}

	fr := &p.frames[f]
	fr.WLatch()
	if fr.pinCount > 0 {
		fr.WUnlatch()
		p.poolMu.Unlock()
		return false, nil
	}
	fr.reset()
	fr.WUnlatch()

	p.pageTable.Delete(pageID)
	p.replacer.Pin(f)
	p.freeList = append(p.freeList, f)
	p.poolMu.Unlock()

	if err := p.disk.DeallocatePage(pageID); err != nil {
		return false, err
	}
	return true, nil
}
