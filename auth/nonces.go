// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package auth

import (
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/kv"
)

const nonceBucket = kv.Bucket("nonce-")

// Nonces records the last nonce accepted per caller. A nonce is accepted only
// when it is greater than the previous one, so a signed request cannot be replayed.
type Nonces struct {
	store kv.Store
	mu    sync.Mutex
}

func NewNonces(store kv.Store) *Nonces {
	return &Nonces{store: nonceBucket.NewStore(store)}
}

// Last returns the last accepted nonce of caller, 0 if none.
func (n *Nonces) Last(caller dealer.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last(caller)
}

func (n *Nonces) last(caller dealer.Address) (uint64, error) {
	data, err := n.store.Get(caller.Bytes())
	if err != nil {
		if n.store.IsNotFound(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "get nonce")
	}
	var nonce uint64
	if err := rlp.DecodeBytes(data, &nonce); err != nil {
		return 0, errors.Wrap(err, "decode nonce")
	}
	return nonce, nil
}

// Use accepts nonce for caller if it is greater than the last one.
func (n *Nonces) Use(caller dealer.Address, nonce uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	last, err := n.last(caller)
	if err != nil {
		return err
	}
	if nonce <= last {
		return errors.Wrapf(ErrInvalidNonce, "nonce %d not above %d", nonce, last)
	}
	data, err := rlp.EncodeToBytes(nonce)
	if err != nil {
		return errors.Wrap(err, "encode nonce")
	}
	return errors.Wrap(n.store.Put(caller.Bytes(), data), "put nonce")
}
