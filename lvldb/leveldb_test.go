// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerhq/dealer/kv"
)

func TestLevelDB(t *testing.T) {
	var (
		key        = []byte("123")
		value      = []byte("456")
		inValidKey = []byte("abc")
	)

	disk, err := New(filepath.Join(t.TempDir(), "main.db"), Options{16, 16})
	require.NoError(t, err)
	defer disk.Close()

	mem, err := NewMem()
	require.NoError(t, err)
	defer mem.Close()

	for _, ldb := range []*LevelDB{disk, mem} {
		require.NoError(t, ldb.Put(key, value))

		got, err := ldb.Get(key)
		require.NoError(t, err)
		assert.Equal(t, value, got)

		has, err := ldb.Has(key)
		require.NoError(t, err)
		assert.True(t, has)

		has, err = ldb.Has(inValidKey)
		require.NoError(t, err)
		assert.False(t, has)

		require.NoError(t, ldb.Delete(key))
		_, err = ldb.Get(key)
		assert.True(t, ldb.IsNotFound(err))
	}
}

func TestLevelDBReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.db")

	ldb, err := New(path, Options{})
	require.NoError(t, err)
	require.NoError(t, ldb.Put([]byte("binding"), []byte("bonded")))
	require.NoError(t, ldb.Close())

	ldb, err = New(path, Options{})
	require.NoError(t, err)
	defer ldb.Close()

	got, err := ldb.Get([]byte("binding"))
	require.NoError(t, err)
	assert.Equal(t, []byte("bonded"), got)
}

func TestBulk(t *testing.T) {
	ldb, err := NewMem()
	require.NoError(t, err)
	defer ldb.Close()

	require.NoError(t, ldb.Put([]byte("asset-b1"), []byte("1")))

	store := kv.Bucket("asset-").NewStore(ldb)
	bulk := store.Bulk()
	require.NoError(t, bulk.Put([]byte("b2"), []byte("2")))
	require.NoError(t, bulk.Delete([]byte("b1")))

	has, err := ldb.Has([]byte("asset-b2"))
	require.NoError(t, err)
	assert.False(t, has, "bulk must not be visible before write")

	require.NoError(t, bulk.Write())

	got, err := store.Get([]byte("b2"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)

	_, err = ldb.Get([]byte("asset-b1"))
	assert.True(t, ldb.IsNotFound(err))
}
