// Package hashindex implements a disk-resident linear-probing hash index,
// built entirely on pages fetched through a buffer.Pool.
package hashindex

import (
	"sync"

	"github.com/csc-systems/pagestore/buffer"
	"github.com/csc-systems/pagestore/common"
)

// LinearProbeHashTable is a disk-resident open-addressing hash index with
// tombstone-preserving deletes and multimap semantics (a key may map to
// several distinct values). All state — header, blocks, tombstones — lives
// in pages fetched through pool; the table itself caches nothing.
type LinearProbeHashTable[K comparable, V comparable] struct {
	pool           *buffer.Pool
	headerPageID   common.PageID
	keyCodec       Codec[K]
	valCodec       Codec[V]
	hashFn         HashFunc[K]
	blockArraySize int

	tableMu      sync.RWMutex
	blockLatches []*sync.RWMutex
}

// New creates a hash table with the given initial slot capacity, allocating
// a header page and enough block pages through pool to hold it.
func New[K comparable, V comparable](
	pool *buffer.Pool,
	keyCodec Codec[K],
	valCodec Codec[V],
	hashFn HashFunc[K],
	initialCapacity uint64,
) (*LinearProbeHashTable[K, V], error) {
	pairSize := keyCodec.Size() + valCodec.Size()
	blockArraySize := ComputeBlockArraySize(pairSize)
	common.Assert(blockArraySize > 0, "hashindex: key+value pair too large for one block page")

	headerFrame, headerID, ok, err := pool.NewPage()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.New(common.CodeIO, "buffer pool exhausted while creating hash table header")
	}
	header := NewHeaderPageView(headerFrame.Bytes[:])
	header.SetPageID(headerID)
	header.SetSize(initialCapacity)

	numBlocks := int((initialCapacity + uint64(blockArraySize) - 1) / uint64(blockArraySize))
	blockLatches := make([]*sync.RWMutex, 0, numBlocks)
	for i := 0; i < numBlocks; i++ {
		_, blockID, ok, err := pool.NewPage()
		if err != nil {
			pool.UnpinPage(headerID, true)
			return nil, err
		}
		if !ok {
			pool.UnpinPage(headerID, true)
			return nil, common.New(common.CodeIO, "buffer pool exhausted while creating hash table blocks")
		}
		header.AddBlockPageID(blockID)
		pool.UnpinPage(blockID, false)
		blockLatches = append(blockLatches, &sync.RWMutex{})
	}
	pool.UnpinPage(headerID, true)

	return &LinearProbeHashTable[K, V]{
		pool:           pool,
		headerPageID:   headerID,
		keyCodec:       keyCodec,
		valCodec:       valCodec,
		hashFn:         hashFn,
		blockArraySize: blockArraySize,
		blockLatches:   blockLatches,
	}, nil
}

// Open wraps an existing hash table whose header page is at headerPageID
// (as would be recorded by a catalog entry).
func Open[K comparable, V comparable](
	pool *buffer.Pool,
	headerPageID common.PageID,
	keyCodec Codec[K],
	valCodec Codec[V],
	hashFn HashFunc[K],
) (*LinearProbeHashTable[K, V], error) {
	pairSize := keyCodec.Size() + valCodec.Size()
	blockArraySize := ComputeBlockArraySize(pairSize)

	frame, ok, err := pool.FetchPage(headerPageID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.New(common.CodeIO, "hash table header page could not be fetched")
	}
	header := NewHeaderPageView(frame.Bytes[:])
	numBlocks := header.NumBlocks()
	pool.UnpinPage(headerPageID, false)

	blockLatches := make([]*sync.RWMutex, numBlocks)
	for i := range blockLatches {
		blockLatches[i] = &sync.RWMutex{}
	}

	return &LinearProbeHashTable[K, V]{
		pool:           pool,
		headerPageID:   headerPageID,
		keyCodec:       keyCodec,
		valCodec:       valCodec,
		hashFn:         hashFn,
		blockArraySize: blockArraySize,
		blockLatches:   blockLatches,
	}, nil
}

func (t *LinearProbeHashTable[K, V]) fetchHeader() (*HeaderPage, error) {
	frame, ok, err := t.pool.FetchPage(t.headerPageID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.New(common.CodeIO, "hash table header page could not be fetched")
	}
	return NewHeaderPageView(frame.Bytes[:]), nil
}

func (t *LinearProbeHashTable[K, V]) fetchBlock(pageID common.PageID) (*BlockPage[K, V], error) {
	frame, ok, err := t.pool.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.New(common.CodeIO, "hash table block page could not be fetched")
	}
	return NewBlockPageView(frame.Bytes[:], t.keyCodec, t.valCodec), nil
}

func (t *LinearProbeHashTable[K, V]) homeSlot(key K, capacity uint64) uint64 {
	return t.hashFn(key) % capacity
}

// GetValue returns every value currently associated with key. A nil,
// non-error result means the key is not present.
func (t *LinearProbeHashTable[K, V]) GetValue(key K) ([]V, error) {
	t.tableMu.RLock()
	defer t.tableMu.RUnlock()

	header, err := t.fetchHeader()
	if err != nil {
		return nil, err
	}
	capacity := header.Size()
	slot := t.homeSlot(key, capacity)
	blockIdx := int(slot / uint64(t.blockArraySize))
	offset := int(slot % uint64(t.blockArraySize))

	var results []V
	for globalSlot := slot; globalSlot < capacity; {
		blockID := header.BlockPageID(blockIdx)
		t.blockLatches[blockIdx].RLock()
		block, err := t.fetchBlock(blockID)
		if err != nil {
			t.blockLatches[blockIdx].RUnlock()
			t.pool.UnpinPage(t.headerPageID, false)
			return nil, err
		}

		stop := false
		for ; offset < t.blockArraySize && globalSlot < capacity; offset++ {
			if !block.IsOccupied(offset) {
				stop = true
				break
			}
			if block.IsReadable(offset) && block.KeyAt(offset) == key {
				results = append(results, block.ValueAt(offset))
			}
			globalSlot++
		}

		t.pool.UnpinPage(blockID, false)
		t.blockLatches[blockIdx].RUnlock()
		if stop {
			break
		}
		blockIdx++
		offset = 0
	}

	t.pool.UnpinPage(t.headerPageID, false)
	return results, nil
}

// Insert adds (key, value). Returns false without mutating anything if an
// identical (key, value) pair already exists. Automatically resizes and
// retries when the table is full.
func (t *LinearProbeHashTable[K, V]) Insert(key K, value V) (bool, error) {
	for {
		observedCapacity, inserted, duplicate, full, err := t.tryInsert(key, value)
		if err != nil {
			return false, err
		}
		if duplicate {
			return false, nil
		}
		if inserted {
			return true, nil
		}
		if full {
			if err := t.Resize(observedCapacity); err != nil {
				return false, err
			}
			continue
		}
		return false, common.New(common.CodeCorrupt, "hash table probe terminated without a result")
	}
}

// tryInsert acquires table_latch in shared mode itself; it must never be
// called by a caller already holding tableMu (see tryInsertLocked for
// that case, used by Resize's re-insert phase, which holds tableMu
// exclusively).
func (t *LinearProbeHashTable[K, V]) tryInsert(key K, value V) (capacity uint64, inserted, duplicate, full bool, err error) {
	t.tableMu.RLock()
	defer t.tableMu.RUnlock()
	return t.tryInsertLocked(key, value)
}

// tryInsertLocked is the probe body shared by tryInsert and Resize's
// re-insert phase. The caller must already hold tableMu, in either mode.
func (t *LinearProbeHashTable[K, V]) tryInsertLocked(key K, value V) (capacity uint64, inserted, duplicate, full bool, err error) {
	header, err := t.fetchHeader()
	if err != nil {
		return 0, false, false, false, err
	}
	capacity = header.Size()
	slot := t.homeSlot(key, capacity)
	blockIdx := int(slot / uint64(t.blockArraySize))
	offset := int(slot % uint64(t.blockArraySize))

	for globalSlot := slot; globalSlot < capacity; {
		blockID := header.BlockPageID(blockIdx)
		t.blockLatches[blockIdx].Lock()
		block, ferr := t.fetchBlock(blockID)
		if ferr != nil {
			t.blockLatches[blockIdx].Unlock()
			t.pool.UnpinPage(t.headerPageID, false)
			return capacity, false, false, false, ferr
		}

		for ; offset < t.blockArraySize && globalSlot < capacity; offset++ {
			if !block.IsOccupied(offset) {
				block.Insert(offset, key, value)
				t.pool.UnpinPage(blockID, true)
				t.blockLatches[blockIdx].Unlock()
				t.pool.UnpinPage(t.headerPageID, false)
				return capacity, true, false, false, nil
			}
			if block.IsReadable(offset) && block.KeyAt(offset) == key && block.ValueAt(offset) == value {
				t.pool.UnpinPage(blockID, false)
				t.blockLatches[blockIdx].Unlock()
				t.pool.UnpinPage(t.headerPageID, false)
				return capacity, false, true, false, nil
			}
			globalSlot++
		}

		t.pool.UnpinPage(blockID, false)
		t.blockLatches[blockIdx].Unlock()
		blockIdx++
		offset = 0
	}

	t.pool.UnpinPage(t.headerPageID, false)
	return capacity, false, false, true, nil
}

// Remove deletes the (key, value) pair, producing a tombstone. Returns
// false if the pair is not present.
func (t *LinearProbeHashTable[K, V]) Remove(key K, value V) (bool, error) {
	t.tableMu.RLock()
	defer t.tableMu.RUnlock()

	header, err := t.fetchHeader()
	if err != nil {
		return false, err
	}
	capacity := header.Size()
	slot := t.homeSlot(key, capacity)
	blockIdx := int(slot / uint64(t.blockArraySize))
	offset := int(slot % uint64(t.blockArraySize))

	for globalSlot := slot; globalSlot < capacity; {
		blockID := header.BlockPageID(blockIdx)
		t.blockLatches[blockIdx].Lock()
		block, ferr := t.fetchBlock(blockID)
		if ferr != nil {
			t.blockLatches[blockIdx].Unlock()
			t.pool.UnpinPage(t.headerPageID, false)
			return false, ferr
		}

		for ; offset < t.blockArraySize && globalSlot < capacity; offset++ {
			if !block.IsOccupied(offset) {
				t.pool.UnpinPage(blockID, false)
				t.blockLatches[blockIdx].Unlock()
				t.pool.UnpinPage(t.headerPageID, false)
				return false, nil
			}
			if block.IsReadable(offset) && block.KeyAt(offset) == key && block.ValueAt(offset) == value {
				block.Remove(offset)
				t.pool.UnpinPage(blockID, true)
				t.blockLatches[blockIdx].Unlock()
				t.pool.UnpinPage(t.headerPageID, false)
				return true, nil
			}
			globalSlot++
		}

		t.pool.UnpinPage(blockID, false)
		t.blockLatches[blockIdx].Unlock()
		blockIdx++
		offset = 0
	}

	t.pool.UnpinPage(t.headerPageID, false)
	return false, nil
}

// Resize doubles the table's capacity, collecting every live pair,
// resetting every block to Empty, growing the block list, and re-inserting
// the collected pairs. oldCapacity is the capacity the caller observed
// before deciding to resize; if the table has already been grown past it
// by a racing caller, Resize is a no-op (the retry loop in Insert will
// simply observe the new, larger capacity on its next attempt).
func (t *LinearProbeHashTable[K, V]) Resize(oldCapacity uint64) error {
	t.tableMu.Lock()
	defer t.tableMu.Unlock()

	header, err := t.fetchHeader()
	if err != nil {
		return err
	}
	if header.Size() != oldCapacity {
		t.pool.UnpinPage(t.headerPageID, false)
		return nil
	}

	type pair struct {
		key K
		val V
	}
	var collected []pair

	numBlocks := header.NumBlocks()
	for i := 0; i < numBlocks; i++ {
		blockID := header.BlockPageID(i)
		block, err := t.fetchBlock(blockID)
		if err != nil {
			t.pool.UnpinPage(t.headerPageID, false)
			return err
		}
		for s := 0; s < block.ArraySize(); s++ {
			if block.IsReadable(s) {
				collected = append(collected, pair{key: block.KeyAt(s), val: block.ValueAt(s)})
			}
		}
		block.Reset()
		t.pool.UnpinPage(blockID, true)
	}

	newCapacity := oldCapacity * 2
	newNumBlocks := int((newCapacity + uint64(t.blockArraySize) - 1) / uint64(t.blockArraySize))
	for i := numBlocks; i < newNumBlocks; i++ {
		_, blockID, ok, err := t.pool.NewPage()
		if err != nil {
			t.pool.UnpinPage(t.headerPageID, false)
			return err
		}
		if !ok {
			t.pool.UnpinPage(t.headerPageID, false)
			return common.New(common.CodeIO, "buffer pool exhausted while growing hash table")
		}
		header.AddBlockPageID(blockID)
		t.pool.UnpinPage(blockID, false)
		t.blockLatches = append(t.blockLatches, &sync.RWMutex{})
	}
	header.SetSize(newCapacity)
	t.pool.UnpinPage(t.headerPageID, true)

	for _, p := range collected {
		if _, _, _, full, err := t.tryInsertLocked(p.key, p.val); err != nil {
			return err
		} else if full {
			return common.New(common.CodeCorrupt, "hash table resize did not create enough room for its own collected pairs")
		}
	}
	return nil
}
