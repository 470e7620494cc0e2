// Package disk implements the on-disk page store: a single-file page store
// with a flat PageID space, allocation, deallocation, and fixed-size
// synchronous reads/writes.
package disk

import (
	"fmt"
	"os"
	"sync"

	"github.com/csc-systems/pagestore/common"
)

// Manager is the interface consumed by the buffer pool. It is intentionally
// narrow: allocate, deallocate, read, write, plus lifecycle. Everything
// above the page boundary (files, tables, catalogs) is a client concern.
type Manager interface {
	// AllocatePage reserves a new page and returns its id. If a previously
	// deallocated id is available it is reused; otherwise the file grows.
	AllocatePage() (common.PageID, error)
	// DeallocatePage marks id free for reuse by a future AllocatePage call.
	DeallocatePage(id common.PageID) error
	// ReadPage reads the page identified by id into buf, which must be
	// exactly common.PageSize bytes.
	ReadPage(id common.PageID, buf []byte) error
	// WritePage writes buf, which must be exactly common.PageSize bytes, to
	// the page identified by id.
	WritePage(id common.PageID, buf []byte) error
	// Sync forces buffered writes to stable storage.
	Sync() error
	// Close releases the underlying file handle.
	Close() error
}

// FileManager implements Manager on top of a single OS file. Page id N
// lives at byte offset N*PageSize. Deallocated ids are tracked in a free
// list and handed back out before the file is grown.
type FileManager struct {
	mu       sync.Mutex
	file     *os.File
	numPages int32
	free     []common.PageID
}

// Open creates or opens the file at path and wraps it as a FileManager. The
// file's existing size determines the initial page count.
func Open(path string) (*FileManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, common.Wrap(common.CodeIO, "open disk file", err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, common.Wrap(common.CodeIO, "stat disk file", err)
	}
	return &FileManager{
		file:     f,
		numPages: int32(stat.Size() / int64(common.PageSize)),
	}, nil
}

// AllocatePage implements Manager.
func (m *FileManager) AllocatePage() (common.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := len(m.free); n > 0 {
		id := m.free[n-1]
		m.free = m.free[:n-1]
		return id, m.zeroPageLocked(id)
	}

	id := common.PageID(m.numPages)
	newSize := int64(m.numPages+1) * int64(common.PageSize)
	if err := m.file.Truncate(newSize); err != nil {
		return common.InvalidPageID, common.Wrap(common.CodeIO, "grow disk file", err)
	}
	m.numPages++
	return id, nil
}

// DeallocatePage implements Manager.
func (m *FileManager) DeallocatePage(id common.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.free = append(m.free, id)
	return nil
}

func (m *FileManager) zeroPageLocked(id common.PageID) error {
	var zero [common.PageSize]byte
	offset := int64(id) * int64(common.PageSize)
	if _, err := m.file.WriteAt(zero[:], offset); err != nil {
		return common.Wrap(common.CodeIO, "zero reused page", err)
	}
	return nil
}

// ReadPage implements Manager.
func (m *FileManager) ReadPage(id common.PageID, buf []byte) error {
	common.Assert(len(buf) == common.PageSize, "disk: read buffer must be PageSize bytes")
	if !id.IsValid() {
		return common.New(common.CodeNotFound, "read of invalid page id")
	}
	offset := int64(id) * int64(common.PageSize)
	if _, err := m.file.ReadAt(buf, offset); err != nil {
		return common.Wrap(common.CodeIO, fmt.Sprintf("read %s", id), err)
	}
	return nil
}

// WritePage implements Manager.
func (m *FileManager) WritePage(id common.PageID, buf []byte) error {
	common.Assert(len(buf) == common.PageSize, "disk: write buffer must be PageSize bytes")
	if !id.IsValid() {
		return common.New(common.CodeNotFound, "write of invalid page id")
	}
	offset := int64(id) * int64(common.PageSize)
	if _, err := m.file.WriteAt(buf, offset); err != nil {
		return common.Wrap(common.CodeIO, fmt.Sprintf("write %s", id), err)
	}
	return nil
}

// Sync implements Manager.
func (m *FileManager) Sync() error {
	if err := m.file.Sync(); err != nil {
		return common.Wrap(common.CodeIO, "sync disk file", err)
	}
	return nil
}

// Close implements Manager.
func (m *FileManager) Close() error {
	if err := m.file.Close(); err != nil {
		return common.Wrap(common.CodeIO, "close disk file", err)
	}
	return nil
}
