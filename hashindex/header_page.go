package hashindex

import (
	"encoding/binary"

	"github.com/csc-systems/pagestore/common"
)

// headerFixedSize is the byte size of the header page's fixed fields:
// page id, lsn, logical slot capacity, and block count.
const headerFixedSize = 4 + 4 + 8 + 8

// MaxBlockPageIDs is the number of block page ids that fit in one header
// page alongside its fixed fields.
var MaxBlockPageIDs = (common.PageSize - headerFixedSize) / 4

// HeaderPage is a typed view over a hash table's header page: the table's
// own page id, an LSN slot, its logical slot capacity, and the ordered
// list of block page ids. It is expressed as a view over a page's raw
// bytes, like BlockPage, rather than a standalone struct, so it can be
// fetched, pinned, and flushed through the buffer pool like any other
// page.
type HeaderPage struct {
	data []byte
}

// NewHeaderPageView wraps data (exactly common.PageSize bytes) as a
// HeaderPage.
func NewHeaderPageView(data []byte) *HeaderPage {
	common.Assert(len(data) == common.PageSize, "hashindex: header page view requires a full page")
	return &HeaderPage{data: data}
}

// PageID returns the header page's own id.
func (h *HeaderPage) PageID() common.PageID {
	return common.PageID(int32(binary.LittleEndian.Uint32(h.data[0:4])))
}

// SetPageID sets the header page's own id.
func (h *HeaderPage) SetPageID(id common.PageID) {
	binary.LittleEndian.PutUint32(h.data[0:4], uint32(int32(id)))
}

// LSN returns the header page's log sequence number slot.
func (h *HeaderPage) LSN() common.LSN {
	return common.LSN(int32(binary.LittleEndian.Uint32(h.data[4:8])))
}

// SetLSN sets the header page's log sequence number slot.
func (h *HeaderPage) SetLSN(lsn common.LSN) {
	binary.LittleEndian.PutUint32(h.data[4:8], uint32(int32(lsn)))
}

// Size returns the table's logical slot capacity.
func (h *HeaderPage) Size() uint64 {
	return binary.LittleEndian.Uint64(h.data[8:16])
}

// SetSize sets the table's logical slot capacity.
func (h *HeaderPage) SetSize(size uint64) {
	binary.LittleEndian.PutUint64(h.data[8:16], size)
}

// NumBlocks returns the number of block page ids currently registered.
func (h *HeaderPage) NumBlocks() int {
	return int(binary.LittleEndian.Uint64(h.data[16:24]))
}

func (h *HeaderPage) setNumBlocks(n int) {
	binary.LittleEndian.PutUint64(h.data[16:24], uint64(n))
}

// BlockPageID returns the page id of the i-th block, in registration
// order.
func (h *HeaderPage) BlockPageID(i int) common.PageID {
	common.Assert(i >= 0 && i < h.NumBlocks(), "hashindex: block index %d out of range", i)
	off := headerFixedSize + i*4
	return common.PageID(int32(binary.LittleEndian.Uint32(h.data[off : off+4])))
}

// AddBlockPageID appends a new block page id to the header's list.
func (h *HeaderPage) AddBlockPageID(id common.PageID) {
	n := h.NumBlocks()
	common.Assert(n < MaxBlockPageIDs, "hashindex: header page is full of block ids")
	off := headerFixedSize + n*4
	binary.LittleEndian.PutUint32(h.data[off:off+4], uint32(int32(id)))
	h.setNumBlocks(n + 1)
}
