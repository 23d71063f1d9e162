// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerhq/dealer/asset"
	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/events"
	"github.com/dealerhq/dealer/kv"
	"github.com/dealerhq/dealer/lvldb"
)

var (
	owner    = dealer.BytesToAddress([]byte("owner"))
	stranger = dealer.BytesToAddress([]byte("stranger"))
	custody  = dealer.BytesToAddress([]byte("dealer"))
	escrow   = dealer.BytesToAddress([]byte("lockingPool"))
	queue    = dealer.BytesToAddress([]byte("redemptionQueue"))

	testTime = time.Unix(1700000000, 0)
)

// ToWei converts whole tokens to wei.
func ToWei(tokens uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(tokens), dealer.Unit)
}

type testSigner struct {
	addr   dealer.Address
	pubKey []byte
}

func newSigner(t *testing.T) testSigner {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return signerOf(key)
}

func signerOf(key *ecdsa.PrivateKey) testSigner {
	return testSigner{
		addr:   dealer.Address(crypto.PubkeyToAddress(key.PublicKey)),
		pubKey: crypto.FromECDSAPub(&key.PublicKey)[1:],
	}
}

// faultyStore fails every write, single or bulk, once its budget of
// successful writes is spent. A negative budget never runs out.
type faultyStore struct {
	kv.Store
	budget atomic.Int64
}

func newFaultyStore(store kv.Store) *faultyStore {
	s := &faultyStore{Store: store}
	s.budget.Store(-1)
	return s
}

func (s *faultyStore) FailAfter(writes int64) { s.budget.Store(writes) }
func (s *faultyStore) Break()                 { s.FailAfter(0) }
func (s *faultyStore) Heal()                  { s.FailAfter(-1) }

func (s *faultyStore) write() error {
	for {
		b := s.budget.Load()
		switch {
		case b < 0:
			return nil
		case b == 0:
			return errors.New("disk failure")
		case s.budget.CompareAndSwap(b, b-1):
			return nil
		}
	}
}

func (s *faultyStore) Put(key, value []byte) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Store.Put(key, value)
}

func (s *faultyStore) Delete(key []byte) error {
	if err := s.write(); err != nil {
		return err
	}
	return s.Store.Delete(key)
}

func (s *faultyStore) Bulk() kv.Bulk {
	return &faultyBulk{Bulk: s.Store.Bulk(), store: s}
}

type faultyBulk struct {
	kv.Bulk
	store *faultyStore
}

func (b *faultyBulk) Write() error {
	if err := b.store.write(); err != nil {
		return err
	}
	return b.Bulk.Write()
}

type LedgerTest struct {
	*Ledger
	t        *testing.T
	db       *lvldb.LevelDB
	store    *faultyStore
	token    *asset.Token
	recorder *events.Recorder
	signer   testSigner
}

func newTestWithConfig(t *testing.T, custodyBalance uint64, cfg Config) *LedgerTest {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// the token and the ledger share one store, and so its faults
	store := newFaultyStore(db)
	token := asset.New("METIS", store)
	require.NoError(t, token.SetBalance(custody, ToWei(custodyBalance)))

	recorder := &events.Recorder{}
	l, err := New(store, token, recorder, cfg)
	require.NoError(t, err)

	return &LedgerTest{
		Ledger:   l,
		t:        t,
		db:       db,
		store:    store,
		token:    token,
		recorder: recorder,
		signer:   newSigner(t),
	}
}

func defaultConfig() Config {
	return Config{
		Owner:           owner,
		Custody:         custody,
		Escrow:          escrow,
		RedemptionQueue: queue,
		MinLockAmount:   ToWei(1),
		Clock:           func() time.Time { return testTime },
	}
}

func newTest(t *testing.T, custodyBalance uint64) *LedgerTest {
	return newTestWithConfig(t, custodyBalance, defaultConfig())
}

// Reopen builds a second ledger over the same storage.
func (lt *LedgerTest) Reopen() *Ledger {
	l, err := New(lt.store, lt.token, nil, lt.cfg)
	require.NoError(lt.t, err)
	return l
}

// The wrappers below drop the sequence number returned by the ledger.

func (lt *LedgerTest) LockFor(caller, signer dealer.Address, amount *big.Int, pubKey []byte) error {
	_, err := lt.Ledger.LockFor(caller, signer, amount, pubKey)
	return err
}

func (lt *LedgerTest) IncreaseStakingAmountLocked(caller dealer.Address, amount *big.Int) error {
	_, err := lt.Ledger.IncreaseStakingAmountLocked(caller, amount)
	return err
}

func (lt *LedgerTest) Relock(caller dealer.Address, amount *big.Int) error {
	_, err := lt.Ledger.Relock(caller, amount)
	return err
}

func (lt *LedgerTest) Unlock(caller dealer.Address) error {
	_, err := lt.Ledger.Unlock(caller)
	return err
}

func (lt *LedgerTest) UnlockClaim(caller dealer.Address) error {
	_, err := lt.Ledger.UnlockClaim(caller)
	return err
}

func (lt *LedgerTest) WithdrawStakingAmount(caller dealer.Address, amount *big.Int) error {
	_, err := lt.Ledger.WithdrawStakingAmount(caller, amount)
	return err
}

func (lt *LedgerTest) AddSequencerAgent(caller dealer.Address) error {
	_, err := lt.Ledger.AddSequencerAgent(caller)
	return err
}

func (lt *LedgerTest) Lock(tokens uint64) *LedgerTest {
	require.NoError(lt.t, lt.LockFor(owner, lt.signer.addr, ToWei(tokens), lt.signer.pubKey))
	return lt
}

func (lt *LedgerTest) Balance(addr dealer.Address) *big.Int {
	b, err := lt.token.BalanceOf(addr)
	require.NoError(lt.t, err)
	return b
}

func (lt *LedgerTest) AssertPhase(expected Phase) *LedgerTest {
	assert.Equal(lt.t, expected, lt.Phase(), "phase mismatch")
	assert.Equal(lt.t, expected == PhaseBonded, lt.Active(), "active flag must follow the bonded phase")
	assert.Equal(lt.t, lt.Active(), lt.SequencerSigner() != nil, "signer must be set iff active")
	return lt
}

func (lt *LedgerTest) AssertLocked(tokens uint64) *LedgerTest {
	assert.Equal(lt.t, ToWei(tokens), lt.LockedAmount(), "locked amount mismatch")
	return lt
}

func (lt *LedgerTest) AssertBalance(addr dealer.Address, tokens uint64) *LedgerTest {
	assert.Equal(lt.t, ToWei(tokens), lt.Balance(addr), "balance mismatch for %v", addr)
	return lt
}

func (lt *LedgerTest) AssertEvents(names ...string) *LedgerTest {
	if len(names) == 0 {
		names = []string{}
	}
	assert.Equal(lt.t, names, lt.recorder.Names(), "emitted events mismatch")
	return lt
}

func (lt *LedgerTest) AssertLastEvent(expected *events.Event) *LedgerTest {
	last := lt.recorder.Last()
	require.NotNil(lt.t, last)
	assert.Equal(lt.t, expected.Name, last.Name)
	assert.Equal(lt.t, expected.Args, last.Args)
	return lt
}

// TestFunc is a step of a TestSequence.
type TestFunc func(t *testing.T, lt *LedgerTest)

// TestSequence runs ledger calls in order and checks each outcome.
type TestSequence struct {
	lt    *LedgerTest
	steps []TestFunc
}

func NewSequence(lt *LedgerTest) *TestSequence {
	return &TestSequence{lt: lt}
}

func (ts *TestSequence) AddFunc(f TestFunc) *TestSequence {
	ts.steps = append(ts.steps, f)
	return ts
}

func (ts *TestSequence) expect(name string, expected error, call func(lt *LedgerTest) error) *TestSequence {
	return ts.AddFunc(func(t *testing.T, lt *LedgerTest) {
		err := call(lt)
		if expected == nil {
			assert.NoError(t, err, name)
		} else {
			assert.ErrorIs(t, err, expected, name)
		}
	})
}

func (ts *TestSequence) LockFor(caller dealer.Address, tokens uint64, expected error) *TestSequence {
	return ts.expect("lockFor", expected, func(lt *LedgerTest) error {
		return lt.LockFor(caller, lt.signer.addr, ToWei(tokens), lt.signer.pubKey)
	})
}

func (ts *TestSequence) Increase(caller dealer.Address, tokens uint64, expected error) *TestSequence {
	return ts.expect("increase", expected, func(lt *LedgerTest) error {
		return lt.IncreaseStakingAmountLocked(caller, ToWei(tokens))
	})
}

func (ts *TestSequence) Relock(caller dealer.Address, tokens uint64, expected error) *TestSequence {
	return ts.expect("relock", expected, func(lt *LedgerTest) error {
		return lt.Relock(caller, ToWei(tokens))
	})
}

func (ts *TestSequence) Unlock(caller dealer.Address, expected error) *TestSequence {
	return ts.expect("unlock", expected, func(lt *LedgerTest) error {
		return lt.Unlock(caller)
	})
}

func (ts *TestSequence) Claim(caller dealer.Address, expected error) *TestSequence {
	return ts.expect("unlockClaim", expected, func(lt *LedgerTest) error {
		return lt.UnlockClaim(caller)
	})
}

func (ts *TestSequence) Withdraw(caller dealer.Address, tokens uint64, expected error) *TestSequence {
	return ts.expect("withdraw", expected, func(lt *LedgerTest) error {
		return lt.WithdrawStakingAmount(caller, ToWei(tokens))
	})
}

func (ts *TestSequence) AddAgent(caller dealer.Address, expected error) *TestSequence {
	return ts.expect("addSequencerAgent", expected, func(lt *LedgerTest) error {
		return lt.AddSequencerAgent(caller)
	})
}

func (ts *TestSequence) Phase(expected Phase) *TestSequence {
	return ts.AddFunc(func(_ *testing.T, lt *LedgerTest) { lt.AssertPhase(expected) })
}

func (ts *TestSequence) Locked(tokens uint64) *TestSequence {
	return ts.AddFunc(func(_ *testing.T, lt *LedgerTest) { lt.AssertLocked(tokens) })
}

func (ts *TestSequence) Run(t *testing.T) {
	for _, step := range ts.steps {
		step(t, ts.lt)
	}
}
