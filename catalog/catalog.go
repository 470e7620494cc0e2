// Package catalog implements the well-known page-id-0 registry: a
// fixed-layout page, fetched through the buffer manager like any other
// page, mapping index names to their header page ids.
package catalog

import (
	"encoding/binary"

	"github.com/csc-systems/pagestore/buffer"
	"github.com/csc-systems/pagestore/common"
)

const nameWidth = 32

// entrySize is name (32 bytes) + page id (4 bytes).
const entrySize = nameWidth + 4

// maxEntries is how many (name, page id) records fit in one page alongside
// the entry count.
var maxEntries = (common.PageSize - 8) / entrySize

// Page is a typed view over the catalog page (always stored at
// common.PageID(0)): a fixed array of (name, page id) entries recording
// every index or table registered by name.
type Page struct {
	data []byte
}

// NewPageView wraps data (exactly common.PageSize bytes) as a catalog Page.
func NewPageView(data []byte) *Page {
	common.Assert(len(data) == common.PageSize, "catalog: page view requires a full page")
	return &Page{data: data}
}

func (p *Page) count() int {
	return int(binary.LittleEndian.Uint64(p.data[0:8]))
}

func (p *Page) setCount(n int) {
	binary.LittleEndian.PutUint64(p.data[0:8], uint64(n))
}

func (p *Page) entryOffset(i int) int {
	return 8 + i*entrySize
}

func (p *Page) nameAt(i int) string {
	off := p.entryOffset(i)
	raw := p.data[off : off+nameWidth]
	n := 0
	for n < nameWidth && raw[n] != 0 {
		n++
	}
	return string(raw[:n])
}

func (p *Page) pageIDAt(i int) common.PageID {
	off := p.entryOffset(i) + nameWidth
	return common.PageID(int32(binary.LittleEndian.Uint32(p.data[off : off+4])))
}

// Lookup returns the page id registered under name, if any.
func (p *Page) Lookup(name string) (common.PageID, bool) {
	n := p.count()
	for i := 0; i < n; i++ {
		if p.nameAt(i) == name {
			return p.pageIDAt(i), true
		}
	}
	return common.InvalidPageID, false
}

// InsertRecord registers name as pointing to pageID. Returns an error if
// name is already registered, too long to fit the fixed-width field, or
// the catalog page has no room for another entry.
func (p *Page) InsertRecord(name string, pageID common.PageID) error {
	if len(name) == 0 || len(name) > nameWidth {
		return common.New(common.CodeCorrupt, "catalog: name must be 1..32 bytes")
	}
	if _, exists := p.Lookup(name); exists {
		return common.New(common.CodeCorrupt, "catalog: name already registered: "+name)
	}
	n := p.count()
	if n >= maxEntries {
		return common.New(common.CodeCorrupt, "catalog: page is full")
	}

	off := p.entryOffset(n)
	nameField := p.data[off : off+nameWidth]
	for i := range nameField {
		nameField[i] = 0
	}
	copy(nameField, name)
	binary.LittleEndian.PutUint32(p.data[off+nameWidth:off+entrySize], uint32(int32(pageID)))
	p.setCount(n + 1)
	return nil
}

// WellKnownPageID is the page id every catalog page is fetched at.
const WellKnownPageID common.PageID = 0

// Open fetches the catalog page through pool, pinned. Callers must Unpin
// via pool.UnpinPage(catalog.WellKnownPageID, dirty) when done, marking
// dirty=true if InsertRecord was called.
func Open(pool *buffer.Pool) (*Page, error) {
	frame, ok, err := pool.FetchPage(WellKnownPageID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.New(common.CodeIO, "catalog page could not be fetched")
	}
	return NewPageView(frame.Bytes[:]), nil
}

// Bootstrap allocates the catalog page for a brand new database. It must
// be called exactly once, before the first Open, so the catalog is
// assigned page id 0.
func Bootstrap(pool *buffer.Pool) error {
	frame, id, ok, err := pool.NewPage()
	if err != nil {
		return err
	}
	if !ok {
		return common.New(common.CodeIO, "buffer pool exhausted while bootstrapping catalog")
	}
	if id != WellKnownPageID {
		pool.UnpinPage(id, false)
		return common.New(common.CodeCorrupt, "catalog: first page allocated was not page 0")
	}
	NewPageView(frame.Bytes[:]).setCount(0)
	pool.UnpinPage(id, true)
	return nil
}
