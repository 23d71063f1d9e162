// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Bucket is a key prefix. Components sharing one store each write under
// their own bucket.
type Bucket string

func (b Bucket) key(key []byte) []byte {
	k := make([]byte, 0, len(b)+len(key))
	return append(append(k, b...), key...)
}

// NewStore returns a view of src restricted to the bucket.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{
		bucketPutter: bucketPutter{bucket: b, dst: src},
		src:          src,
	}
}

// NewPutter returns a putter that writes into dst under the bucket.
func (b Bucket) NewPutter(dst Putter) Putter {
	return bucketPutter{bucket: b, dst: dst}
}

type bucketPutter struct {
	bucket Bucket
	dst    Putter
}

func (p bucketPutter) Put(key, val []byte) error {
	return p.dst.Put(p.bucket.key(key), val)
}

func (p bucketPutter) Delete(key []byte) error {
	return p.dst.Delete(p.bucket.key(key))
}

type bucketStore struct {
	bucketPutter
	src Store
}

func (s *bucketStore) Get(key []byte) ([]byte, error) {
	return s.src.Get(s.bucket.key(key))
}

func (s *bucketStore) Has(key []byte) (bool, error) {
	return s.src.Has(s.bucket.key(key))
}

func (s *bucketStore) IsNotFound(err error) bool {
	return s.src.IsNotFound(err)
}

func (s *bucketStore) Bulk() Bulk {
	bulk := s.src.Bulk()
	return &bucketBulk{
		bucketPutter: bucketPutter{bucket: s.bucket, dst: bulk},
		bulk:         bulk,
	}
}

type bucketBulk struct {
	bucketPutter
	bulk Bulk
}

func (b *bucketBulk) Write() error {
	return b.bulk.Write()
}
