package hashindex

import (
	"encoding/binary"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csc-systems/pagestore/buffer"
	"github.com/csc-systems/pagestore/disk"
	"github.com/csc-systems/pagestore/wal"
)

func TestHashTable_StringKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "string-index.dat")
	d, err := disk.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	pool := buffer.NewPool(16, d, wal.NoopLogManager{})
	table, err := New[string, int64](pool, StringCodec{Width: 32}, Int64Codec{}, FNVHash, 8)
	require.NoError(t, err)

	names := []string{"accounts_by_id", "orders_by_customer", "sessions_by_token"}
	for i, name := range names {
		ok, err := table.Insert(name, int64(i))
		require.NoError(t, err)
		require.True(t, ok)
	}

	for i, name := range names {
		values, err := table.GetValue(name)
		require.NoError(t, err)
		assert.Equal(t, []int64{int64(i)}, values)
	}

	values, err := table.GetValue("does_not_exist")
	require.NoError(t, err)
	assert.Empty(t, values)
}

// paddedInt64Codec pads an int64 out to a fixed width, so tests can force
// a small block array size (4 slots per block) without shrinking
// common.PageSize itself.
type paddedInt64Codec struct{ width int }

func (c paddedInt64Codec) Size() int { return c.width }

func (c paddedInt64Codec) Encode(v int64, buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint64(buf, uint64(v))
}

func (c paddedInt64Codec) Decode(buf []byte) int64 {
	return int64(binary.LittleEndian.Uint64(buf))
}

// setupTable builds a table whose block array size is exactly 4, small
// enough to force resizes and cross-block probing with only a handful of
// keys.
func setupTable(t *testing.T, initialCapacity uint64) *LinearProbeHashTable[int64, int64] {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.dat")
	d, err := disk.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	pool := buffer.NewPool(16, d, wal.NoopLogManager{})
	codec := paddedInt64Codec{width: 410}
	table, err := New[int64, int64](pool, codec, codec, IdentityHash, initialCapacity)
	require.NoError(t, err)
	return table
}

func TestHashTable_TombstoneSkip(t *testing.T) {
	table := setupTable(t, 4)

	ok, err := table.Insert(0, 100)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = table.Insert(4, 200)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = table.Insert(8, 300)
	require.NoError(t, err)
	require.True(t, ok)

	removed, err := table.Remove(4, 200)
	require.NoError(t, err)
	assert.True(t, removed)

	values, err := table.GetValue(8)
	require.NoError(t, err)
	assert.Equal(t, []int64{300}, values, "probe must cross the tombstone left by removing key 4")
}

func TestHashTable_DuplicateInsertRejected(t *testing.T) {
	table := setupTable(t, 4)

	ok, err := table.Insert(7, 42)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = table.Insert(7, 42)
	require.NoError(t, err)
	assert.False(t, ok, "identical (key, value) pair must be rejected")

	values, err := table.GetValue(7)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, values)
}

func TestHashTable_MultimapDistinctValuesUnderSameKey(t *testing.T) {
	table := setupTable(t, 4)

	ok, err := table.Insert(1, 10)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = table.Insert(1, 20)
	require.NoError(t, err)
	require.True(t, ok)

	values, err := table.GetValue(1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{10, 20}, values)
}

func TestHashTable_ResizeOnFill(t *testing.T) {
	table := setupTable(t, 4)

	keys := []int64{0, 4, 8, 12}
	for i, k := range keys {
		ok, err := table.Insert(k, int64(i))
		require.NoError(t, err)
		require.True(t, ok, "table should not be full yet at key %d", k)
	}

	// The table is exactly full; this insert must trigger a resize and
	// still succeed.
	ok, err := table.Insert(16, 99)
	require.NoError(t, err)
	require.True(t, ok)

	for i, k := range keys {
		values, err := table.GetValue(k)
		require.NoError(t, err)
		assert.Equal(t, []int64{int64(i)}, values, "key %d lost across resize", k)
	}
	values, err := table.GetValue(16)
	require.NoError(t, err)
	assert.Equal(t, []int64{99}, values)
}

func TestHashTable_RemoveMissingPairReturnsFalse(t *testing.T) {
	table := setupTable(t, 4)
	ok, err := table.Insert(5, 50)
	require.NoError(t, err)
	require.True(t, ok)

	removed, err := table.Remove(5, 999)
	require.NoError(t, err)
	assert.False(t, removed, "removing a value that was never inserted under this key must fail")

	removed, err = table.Remove(6, 50)
	require.NoError(t, err)
	assert.False(t, removed, "removing under a key with no home-slot occupant must fail")
}

func TestHashTable_GetValueOnEmptyTable(t *testing.T) {
	table := setupTable(t, 4)
	values, err := table.GetValue(123)
	require.NoError(t, err)
	assert.Empty(t, values)
}

// TestHashTable_Concurrent_InsertDuringResize races many goroutines each
// inserting a distinct key into a table that starts far too small to hold
// them all, forcing repeated concurrent resizes. Every key must survive:
// a racing Resize must never lose a concurrently inserted pair.
func TestHashTable_Concurrent_InsertDuringResize(t *testing.T) {
	table := setupTable(t, 4)

	const numKeys = 200
	var wg sync.WaitGroup
	for i := 0; i < numKeys; i++ {
		wg.Add(1)
		go func(k int64) {
			defer wg.Done()
			ok, err := table.Insert(k, k*10)
			assert.NoError(t, err)
			assert.True(t, ok)
		}(int64(i))
	}
	wg.Wait()

	for i := 0; i < numKeys; i++ {
		values, err := table.GetValue(int64(i))
		require.NoError(t, err)
		assert.Equal(t, []int64{int64(i) * 10}, values, "key %d lost under concurrent resize", i)
	}
}

// TestHashTable_Concurrent_InsertAndRemove races Insert (duplicate
// rejection) against Remove (tombstoning) over a shared key set, checking
// that the table_latch/block_latch discipline keeps each key's final state
// consistent with exactly one winning operation.
func TestHashTable_Concurrent_InsertAndRemove(t *testing.T) {
	table := setupTable(t, 8)

	const numKeys = 64
	for i := 0; i < numKeys; i++ {
		ok, err := table.Insert(int64(i), int64(i))
		require.NoError(t, err)
		require.True(t, ok)
	}

	var wg sync.WaitGroup
	for i := 0; i < numKeys; i++ {
		wg.Add(1)
		go func(k int64) {
			defer wg.Done()
			if k%2 == 0 {
				removed, err := table.Remove(k, k)
				assert.NoError(t, err)
				assert.True(t, removed)
			} else {
				ok, err := table.Insert(k, k)
				assert.NoError(t, err)
				assert.False(t, ok, "duplicate insert of an already-present (key, value) pair must be rejected")
			}
		}(int64(i))
	}
	wg.Wait()

	for i := 0; i < numKeys; i++ {
		values, err := table.GetValue(int64(i))
		require.NoError(t, err)
		if i%2 == 0 {
			assert.Empty(t, values, "even key %d should have been removed", i)
		} else {
			assert.Equal(t, []int64{int64(i)}, values)
		}
	}
}
