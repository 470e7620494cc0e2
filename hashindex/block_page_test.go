package hashindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csc-systems/pagestore/common"
)

func TestComputeBlockArraySizeFitsOnePage(t *testing.T) {
	pairSize := Int64Codec{}.Size() + Int64Codec{}.Size()
	n := ComputeBlockArraySize(pairSize)
	require.Greater(t, n, 0)

	occBytes := (n + 7) / 8
	if occBytes%8 != 0 {
		occBytes += 8 - occBytes%8
	}
	assert.LessOrEqual(t, 2*occBytes+n*pairSize, common.PageSize)

	// One more slot must not fit, or ComputeBlockArraySize under-counted.
	occBytesNext := (n + 1 + 7) / 8
	if occBytesNext%8 != 0 {
		occBytesNext += 8 - occBytesNext%8
	}
	assert.Greater(t, 2*occBytesNext+(n+1)*pairSize, common.PageSize)
}

func newBlockView(t *testing.T) *BlockPage[int64, int64] {
	t.Helper()
	data := make([]byte, common.PageSize)
	return NewBlockPageView[int64, int64](data, Int64Codec{}, Int64Codec{})
}

func TestBlockPageInsertAndAccessors(t *testing.T) {
	b := newBlockView(t)

	assert.False(t, b.IsOccupied(0))
	assert.False(t, b.IsReadable(0))

	require.True(t, b.Insert(0, 42, 99))
	assert.True(t, b.IsOccupied(0))
	assert.True(t, b.IsReadable(0))
	assert.Equal(t, int64(42), b.KeyAt(0))
	assert.Equal(t, int64(99), b.ValueAt(0))
}

func TestBlockPageInsertRejectsOccupiedSlot(t *testing.T) {
	b := newBlockView(t)
	require.True(t, b.Insert(0, 1, 1))
	assert.False(t, b.Insert(0, 2, 2), "insert into an already-occupied slot must fail")
	assert.Equal(t, int64(1), b.KeyAt(0), "existing pair must be unchanged after a rejected insert")
}

func TestBlockPageRemoveProducesTombstone(t *testing.T) {
	b := newBlockView(t)
	require.True(t, b.Insert(3, 7, 8))
	b.Remove(3)

	assert.True(t, b.IsOccupied(3), "removed slot stays occupied (tombstone)")
	assert.False(t, b.IsReadable(3))
}

func TestBlockPageRemoveOnEmptySlotIsNoop(t *testing.T) {
	b := newBlockView(t)
	b.Remove(0)
	assert.False(t, b.IsOccupied(0))
	assert.False(t, b.IsReadable(0))
}

func TestBlockPageReset(t *testing.T) {
	b := newBlockView(t)
	for i := 0; i < 5; i++ {
		require.True(t, b.Insert(i, int64(i), int64(i*10)))
	}
	b.Reset()
	for i := 0; i < 5; i++ {
		assert.False(t, b.IsOccupied(i))
		assert.False(t, b.IsReadable(i))
	}
	// Slots must be re-insertable after a reset.
	assert.True(t, b.Insert(0, 100, 200))
}
