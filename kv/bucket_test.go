// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("not found")

type mem map[string]string

func (m mem) Get(k []byte) ([]byte, error) {
	if v, ok := m[string(k)]; ok {
		return []byte(v), nil
	}
	return nil, errNotFound
}

func (m mem) Has(k []byte) (bool, error) {
	_, ok := m[string(k)]
	return ok, nil
}

func (m mem) Put(k, v []byte) error {
	m[string(k)] = string(v)
	return nil
}

func (m mem) Delete(k []byte) error {
	delete(m, string(k))
	return nil
}

func (m mem) IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

func (m mem) Bulk() Bulk {
	return &memBulk{dst: m, pending: mem{}}
}

// memBulk buffers writes until Write.
type memBulk struct {
	dst     mem
	pending mem
	deletes []string
}

func (b *memBulk) Put(k, v []byte) error { return b.pending.Put(k, v) }

func (b *memBulk) Delete(k []byte) error {
	b.deletes = append(b.deletes, string(k))
	return nil
}

func (b *memBulk) Write() error {
	for k, v := range b.pending {
		b.dst[k] = v
	}
	for _, k := range b.deletes {
		delete(b.dst, k)
	}
	return nil
}

func TestBucketGet(t *testing.T) {
	m := mem{"asset-b1": "100", "ledger-record": "bonded"}

	tests := []struct {
		bucket Bucket
		key    string
		want   string
		has    bool
	}{
		{"", "ledger-record", "bonded", true},
		{"ledger-", "record", "bonded", true},
		{"ledger-", "ledger-record", "", false},
		{"asset-", "b1", "100", true},
		{"asset-b1", "", "100", true},
		{"nonce-", "b1", "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.bucket)+"/"+tt.key, func(t *testing.T) {
			store := tt.bucket.NewStore(m)
			got, err := store.Get([]byte(tt.key))
			assert.Equal(t, tt.want, string(got))
			assert.Equal(t, !tt.has, store.IsNotFound(err))

			has, err := store.Has([]byte(tt.key))
			assert.NoError(t, err)
			assert.Equal(t, tt.has, has)
		})
	}
}

func TestBucketPut(t *testing.T) {
	m := mem{}
	store := Bucket("ledger-").NewStore(m)

	require.NoError(t, store.Put([]byte("record"), []byte("v")))
	assert.Equal(t, mem{"ledger-record": "v"}, m)

	require.NoError(t, store.Delete([]byte("record")))
	assert.Empty(t, m)
}

func TestBucketBulk(t *testing.T) {
	m := mem{"asset-b2": "1"}
	bulk := Bucket("asset-").NewStore(m).Bulk()

	require.NoError(t, bulk.Put([]byte("b1"), []byte("9")))
	require.NoError(t, bulk.Delete([]byte("b2")))
	assert.Equal(t, mem{"asset-b2": "1"}, m, "nothing is visible before Write")

	require.NoError(t, bulk.Write())
	assert.Equal(t, mem{"asset-b1": "9"}, m)
}

func TestBucketPutterSharesBulk(t *testing.T) {
	m := mem{}
	bulk := m.Bulk()

	require.NoError(t, Bucket("asset-").NewPutter(bulk).Put([]byte("b1"), []byte("9")))
	require.NoError(t, Bucket("ledger-").NewPutter(bulk).Put([]byte("record"), []byte("bonded")))
	assert.Empty(t, m)

	require.NoError(t, bulk.Write())
	assert.Equal(t, mem{"asset-b1": "9", "ledger-record": "bonded"}, m)
}
