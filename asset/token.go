// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package asset is an in-process fungible-asset ledger. It stands in for the
// bonded token: the custody ledger queries balances and moves funds through
// it, and never re-implements transfer rules itself.
package asset

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/kv"
	"github.com/dealerhq/dealer/log"
)

var logger = log.WithContext("pkg", "asset")

var (
	// ErrInsufficientFunds is returned when the sender cannot cover a transfer.
	ErrInsufficientFunds = errors.New("asset: insufficient funds")
	// ErrInvalidAmount is returned for negative or nil amounts.
	ErrInvalidAmount = errors.New("asset: invalid amount")
)

const bucket = kv.Bucket("asset-")

func balanceKey(addr dealer.Address) []byte {
	return append([]byte("b"), addr.Bytes()...)
}

// Move is one balance transfer.
type Move struct {
	From, To dealer.Address
	Amount   *big.Int
}

// Token keeps balances of a single fungible asset.
type Token struct {
	symbol string
	base   kv.Store
	store  kv.Store

	mu sync.RWMutex
}

// New creates a token ledger on top of store.
func New(symbol string, store kv.Store) *Token {
	return &Token{
		symbol: symbol,
		base:   store,
		store:  bucket.NewStore(store),
	}
}

// Symbol returns the token symbol.
func (t *Token) Symbol() string {
	return t.symbol
}

// BalanceOf returns the balance of addr.
func (t *Token) BalanceOf(addr dealer.Address) (*big.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.balanceOf(addr)
}

func (t *Token) balanceOf(addr dealer.Address) (*big.Int, error) {
	data, err := t.store.Get(balanceKey(addr))
	if err != nil {
		if t.store.IsNotFound(err) {
			return new(big.Int), nil
		}
		return nil, errors.Wrap(err, "get balance")
	}
	balance := new(big.Int)
	if err := rlp.DecodeBytes(data, balance); err != nil {
		return nil, errors.Wrap(err, "decode balance")
	}
	return balance, nil
}

func putBalance(putter kv.Putter, addr dealer.Address, balance *big.Int) error {
	if balance.Sign() == 0 {
		return putter.Delete(balanceKey(addr))
	}
	data, err := rlp.EncodeToBytes(balance)
	if err != nil {
		return err
	}
	return putter.Put(balanceKey(addr), data)
}

// SetBalance overwrites the balance of addr. Used for genesis allocation and
// test fixtures only.
func (t *Token) SetBalance(addr dealer.Address, balance *big.Int) error {
	if balance == nil || balance.Sign() < 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	return errors.Wrap(putBalance(t.store, addr, balance), "set balance")
}

// Transfer moves amount from one account to another. Both sides are written
// in one atomic bulk.
func (t *Token) Transfer(from, to dealer.Address, amount *big.Int) error {
	return t.Commit(t.base.Bulk(), Move{From: from, To: to, Amount: amount})
}

// Commit stages the balances resulting from moves into bulk, next to whatever
// the caller already put there, and writes bulk. bulk must come from the
// store the token was created on. Either every move and every caller write
// lands, or none does.
func (t *Token) Commit(bulk kv.Bulk, moves ...Move) error {
	for _, mv := range moves {
		if mv.Amount == nil || mv.Amount.Sign() < 0 {
			return ErrInvalidAmount
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	balances := make(map[dealer.Address]*big.Int)
	balance := func(addr dealer.Address) (*big.Int, error) {
		if b, ok := balances[addr]; ok {
			return b, nil
		}
		b, err := t.balanceOf(addr)
		if err != nil {
			return nil, err
		}
		balances[addr] = b
		return b, nil
	}
	for _, mv := range moves {
		if mv.Amount.Sign() == 0 || mv.From == mv.To {
			continue
		}
		from, err := balance(mv.From)
		if err != nil {
			return err
		}
		if from.Cmp(mv.Amount) < 0 {
			return ErrInsufficientFunds
		}
		to, err := balance(mv.To)
		if err != nil {
			return err
		}
		from.Sub(from, mv.Amount)
		to.Add(to, mv.Amount)
	}

	putter := bucket.NewPutter(bulk)
	for addr, b := range balances {
		if err := putBalance(putter, addr, b); err != nil {
			return errors.Wrapf(err, "stage balance of %v", addr)
		}
	}
	if err := bulk.Write(); err != nil {
		return errors.Wrap(err, "write transfer")
	}

	for _, mv := range moves {
		logger.Debug("transferred", "symbol", t.symbol, "from", mv.From, "to", mv.To, "amount", dealer.FormatAmount(mv.Amount))
	}
	return nil
}
