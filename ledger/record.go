// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/kv"
)

// record is the persisted custody state.
type record struct {
	Phase        Phase
	Signer       *dealer.Address `rlp:"nil"` // set iff Phase == PhaseBonded
	PubKey       []byte
	Locked       *big.Int
	AgentPending bool
	LastSeq      uint64 // sequence number of the last emitted event
}

func newRecord() *record {
	return &record{Locked: new(big.Int)}
}

func (r *record) clone() *record {
	cpy := *r
	if r.Signer != nil {
		signer := *r.Signer
		cpy.Signer = &signer
	}
	cpy.PubKey = bytes.Clone(r.PubKey)
	cpy.Locked = new(big.Int).Set(r.Locked)
	return &cpy
}

func (r *record) active() bool {
	return r.Phase == PhaseBonded
}

const bucket = kv.Bucket("ledger-")

var recordKey = []byte("record")

type storage struct {
	store kv.Store
}

func newStorage(store kv.Store) *storage {
	return &storage{store: bucket.NewStore(store)}
}

// load returns the stored record, or a fresh unbound one.
func (s *storage) load() (*record, error) {
	data, err := s.store.Get(recordKey)
	if err != nil {
		if s.store.IsNotFound(err) {
			return newRecord(), nil
		}
		return nil, errors.Wrap(err, "get record")
	}
	r := newRecord()
	if err := rlp.DecodeBytes(data, r); err != nil {
		return nil, errors.Wrap(err, "decode record")
	}
	if r.Locked == nil {
		r.Locked = new(big.Int)
	}
	if len(r.PubKey) == 0 {
		r.PubKey = nil
	}
	return r, nil
}

// stage puts r into putter. It is persisted when the caller writes the bulk.
func (s *storage) stage(putter kv.Putter, r *record) error {
	data, err := rlp.EncodeToBytes(r)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	return errors.Wrap(bucket.NewPutter(putter).Put(recordKey, data), "put record")
}
