package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csc-systems/pagestore/buffer"
	"github.com/csc-systems/pagestore/common"
	"github.com/csc-systems/pagestore/disk"
	"github.com/csc-systems/pagestore/wal"
)

func setupCatalog(t *testing.T) *buffer.Pool {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cat.dat")
	d, err := disk.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	pool := buffer.NewPool(4, d, wal.NoopLogManager{})
	require.NoError(t, Bootstrap(pool))
	return pool
}

func TestCatalogInsertAndLookup(t *testing.T) {
	pool := setupCatalog(t)

	page, err := Open(pool)
	require.NoError(t, err)
	require.NoError(t, page.InsertRecord("accounts_by_id", common.PageID(7)))
	pool.UnpinPage(WellKnownPageID, true)

	page, err = Open(pool)
	require.NoError(t, err)
	id, ok := page.Lookup("accounts_by_id")
	assert.True(t, ok)
	assert.Equal(t, common.PageID(7), id)
	pool.UnpinPage(WellKnownPageID, false)
}

func TestCatalogLookupMissingName(t *testing.T) {
	pool := setupCatalog(t)
	page, err := Open(pool)
	require.NoError(t, err)
	_, ok := page.Lookup("does_not_exist")
	assert.False(t, ok)
	pool.UnpinPage(WellKnownPageID, false)
}

func TestCatalogRejectsDuplicateName(t *testing.T) {
	pool := setupCatalog(t)
	page, err := Open(pool)
	require.NoError(t, err)
	require.NoError(t, page.InsertRecord("dup", common.PageID(1)))
	err = page.InsertRecord("dup", common.PageID(2))
	assert.Error(t, err)
	pool.UnpinPage(WellKnownPageID, true)
}

func TestCatalogSurvivesEviction(t *testing.T) {
	pool := setupCatalog(t)

	page, err := Open(pool)
	require.NoError(t, err)
	require.NoError(t, page.InsertRecord("persisted", common.PageID(42)))
	pool.UnpinPage(WellKnownPageID, true)

	// Force eviction of every frame by allocating far more pages than the
	// pool can hold.
	for i := 0; i < 20; i++ {
		_, id, ok, err := pool.NewPage()
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, pool.UnpinPage(id, false))
	}

	page, err = Open(pool)
	require.NoError(t, err)
	id, ok := page.Lookup("persisted")
	assert.True(t, ok)
	assert.Equal(t, common.PageID(42), id)
	pool.UnpinPage(WellKnownPageID, false)
}
