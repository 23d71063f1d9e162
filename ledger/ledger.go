// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger implements the custodial staking ledger of the dealer: one
// sequencer binding at a time, moving through unbound, bonded and
// unlock-pending phases.
//
// Every mutating call is serialized. A call either commits in full (asset
// transfers and the persisted record in one atomic write, then the in-memory
// state) and then emits its events, or fails and leaves everything untouched.
// A successful call returns the sequence number of the last event it emitted.
package ledger

import (
	"bytes"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dealerhq/dealer/asset"
	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/events"
	"github.com/dealerhq/dealer/guard"
	"github.com/dealerhq/dealer/kv"
	"github.com/dealerhq/dealer/log"
)

var logger = log.WithContext("pkg", "ledger")

// Asset is the bonded token. BalanceOf on the custody account is the balance
// oracle; a move into the redemption queue is the redemption sink. Commit
// writes the moves together with the bulk it is given, so the asset must keep
// its balances in the store the ledger is created on.
type Asset interface {
	BalanceOf(addr dealer.Address) (*big.Int, error)
	Commit(bulk kv.Bulk, moves ...asset.Move) error
}

// Config is fixed at construction.
type Config struct {
	Owner           dealer.Address // sole privileged caller
	Custody         dealer.Address // account whose balance backs new locks
	Escrow          dealer.Address // account holding locked funds
	RedemptionQueue dealer.Address // receives partial withdrawals
	ClaimRecipient  dealer.Address // receives claimed funds, defaults to Owner
	MinLockAmount   *big.Int       // minimum initial lock, nil means any positive amount
	Clock           func() time.Time
}

func (c *Config) validate() error {
	if c.Owner.IsZero() {
		return errors.New("owner is required")
	}
	if c.Custody.IsZero() || c.Escrow.IsZero() || c.RedemptionQueue.IsZero() {
		return errors.New("custody, escrow and redemption queue are required")
	}
	if c.Custody == c.Escrow {
		return errors.New("custody and escrow must differ")
	}
	if c.MinLockAmount != nil && c.MinLockAmount.Sign() < 0 {
		return errors.New("negative minimum lock amount")
	}
	return nil
}

// Snapshot is a consistent copy of the ledger state.
type Snapshot struct {
	Phase           Phase
	Active          bool
	Signer          *dealer.Address
	PubKey          []byte
	Locked          *big.Int
	AgentPending    bool
	LastSeq         uint64
	Owner           dealer.Address
	Custody         dealer.Address
	Escrow          dealer.Address
	RedemptionQueue dealer.Address
	ClaimRecipient  dealer.Address
	MinLockAmount   *big.Int
}

// Ledger is the custody state machine.
type Ledger struct {
	cfg     Config
	guard   *guard.Guard
	token   Asset
	store   kv.Store
	storage *storage
	sink    events.Sink

	mu  sync.RWMutex
	cur *record
}

// New loads the ledger from store, starting unbound when nothing is stored.
// token must keep its balances in store. sink may be nil.
func New(store kv.Store, token Asset, sink events.Sink, cfg Config) (*Ledger, error) {
	if err := cfg.validate(); err != nil {
		return nil, errors.WithMessage(err, "ledger config")
	}
	if cfg.ClaimRecipient.IsZero() {
		cfg.ClaimRecipient = cfg.Owner
	}
	if cfg.MinLockAmount == nil {
		cfg.MinLockAmount = new(big.Int)
	} else {
		cfg.MinLockAmount = new(big.Int).Set(cfg.MinLockAmount)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if sink == nil {
		sink = events.SinkFunc(func(*events.Event) {})
	}

	st := newStorage(store)
	cur, err := st.load()
	if err != nil {
		return nil, err
	}
	observeState(cur)
	logger.Debug("ledger loaded", "phase", cur.Phase, "locked", dealer.FormatAmount(cur.Locked), "seq", cur.LastSeq)

	return &Ledger{
		cfg:     cfg,
		guard:   guard.New(cfg.Owner),
		token:   token,
		store:   store,
		storage: st,
		sink:    sink,
		cur:     cur,
	}, nil
}

// Owner returns the owner identity.
func (l *Ledger) Owner() dealer.Address {
	return l.guard.Owner()
}

// Active reports whether a sequencer is bonded.
func (l *Ledger) Active() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cur.active()
}

// SequencerSigner returns the bonded signer, or nil when there is none.
func (l *Ledger) SequencerSigner() *dealer.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.cur.Signer == nil {
		return nil
	}
	signer := *l.cur.Signer
	return &signer
}

// LockedAmount returns the amount held for the binding.
func (l *Ledger) LockedAmount() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.cur.Locked)
}

// Phase returns the current phase.
func (l *Ledger) Phase() Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cur.Phase
}

// Snapshot returns a copy of the whole state.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.RLock()
	r := l.cur.clone()
	l.mu.RUnlock()

	return &Snapshot{
		Phase:           r.Phase,
		Active:          r.active(),
		Signer:          r.Signer,
		PubKey:          r.PubKey,
		Locked:          r.Locked,
		AgentPending:    r.AgentPending,
		LastSeq:         r.LastSeq,
		Owner:           l.cfg.Owner,
		Custody:         l.cfg.Custody,
		Escrow:          l.cfg.Escrow,
		RedemptionQueue: l.cfg.RedemptionQueue,
		ClaimRecipient:  l.cfg.ClaimRecipient,
		MinLockAmount:   new(big.Int).Set(l.cfg.MinLockAmount),
	}
}

// AvailableBalance returns the custody balance that can back new locks.
func (l *Ledger) AvailableBalance() (*big.Int, error) {
	return l.token.BalanceOf(l.cfg.Custody)
}

// LockFor binds signer and locks amount from custody.
func (l *Ledger) LockFor(caller, signer dealer.Address, amount *big.Int, pubKey []byte) (seq uint64, err error) {
	logger.Debug("lock for", "caller", caller, "signer", signer, "amount", dealer.FormatAmount(amount))
	defer func() { observeOp("lockFor", err) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.guard.Authorize(caller, guard.RoleOwner); err != nil {
		return l.reject("lockFor", err)
	}
	if l.cur.Phase != PhaseUnbound {
		return l.reject("lockFor", ErrBindingExists)
	}
	if err := checkAmount(amount); err != nil {
		return l.reject("lockFor", err)
	}
	if amount.Cmp(l.cfg.MinLockAmount) < 0 {
		return l.reject("lockFor", ErrBelowMinimum)
	}
	if err := checkSigner(signer, pubKey); err != nil {
		return l.reject("lockFor", err)
	}
	if err := l.checkAvailable(amount); err != nil {
		return l.reject("lockFor", err)
	}

	next := l.cur.clone()
	next.Phase = PhaseBonded
	next.Signer = &signer
	next.PubKey = bytes.Clone(pubKey)
	next.Locked = new(big.Int).Set(amount)
	next.AgentPending = false

	if err := l.commit(next,
		[]asset.Move{{From: l.cfg.Custody, To: l.cfg.Escrow, Amount: amount}},
		events.NewSequencerInitialBalanceLocked(signer, amount, true),
	); err != nil {
		return 0, err
	}
	logger.Info("sequencer locked", "signer", signer, "amount", dealer.FormatAmount(amount))
	return next.LastSeq, nil
}

// IncreaseStakingAmountLocked tops up the bonded amount from custody.
func (l *Ledger) IncreaseStakingAmountLocked(caller dealer.Address, amount *big.Int) (seq uint64, err error) {
	logger.Debug("increase stake", "caller", caller, "amount", dealer.FormatAmount(amount))
	defer func() { observeOp("increase", err) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	next, mv, ev, err := l.prepareTopUp(caller, amount)
	if err != nil {
		return l.reject("increase", err)
	}
	if err := l.commit(next, []asset.Move{mv}, ev); err != nil {
		return 0, err
	}
	logger.Info("stake increased", "amount", dealer.FormatAmount(amount), "locked", dealer.FormatAmount(next.Locked))
	return next.LastSeq, nil
}

// Relock re-affirms the active binding. A positive amount is first added as
// a top-up, exactly like IncreaseStakingAmountLocked.
func (l *Ledger) Relock(caller dealer.Address, amount *big.Int) (seq uint64, err error) {
	logger.Debug("relock", "caller", caller, "amount", dealer.FormatAmount(amount))
	defer func() { observeOp("relock", err) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		next  *record
		moves []asset.Move
		evs   []*events.Event
	)
	if amount != nil && amount.Sign() != 0 {
		n, mv, ev, err := l.prepareTopUp(caller, amount)
		if err != nil {
			return l.reject("relock", err)
		}
		next, moves, evs = n, []asset.Move{mv}, []*events.Event{ev}
	} else {
		if err := l.guard.Authorize(caller, guard.RoleOwner); err != nil {
			return l.reject("relock", err)
		}
		if !l.cur.active() {
			return l.reject("relock", ErrNoActiveSequencer)
		}
		next = l.cur.clone()
	}
	evs = append(evs, events.NewSequencerRelocked(*next.Signer, next.Locked))

	if err := l.commit(next, moves, evs...); err != nil {
		return 0, err
	}
	logger.Info("sequencer relocked", "signer", *next.Signer, "locked", dealer.FormatAmount(next.Locked))
	return next.LastSeq, nil
}

func (l *Ledger) prepareTopUp(caller dealer.Address, amount *big.Int) (*record, asset.Move, *events.Event, error) {
	if err := l.guard.Authorize(caller, guard.RoleOwner); err != nil {
		return nil, asset.Move{}, nil, err
	}
	if !l.cur.active() {
		return nil, asset.Move{}, nil, ErrNoActiveSequencer
	}
	if err := checkAmount(amount); err != nil {
		return nil, asset.Move{}, nil, err
	}
	locked := new(big.Int).Add(l.cur.Locked, amount)
	if !dealer.FitsUint256(locked) {
		return nil, asset.Move{}, nil, ErrAmountOverflow
	}
	if err := l.checkAvailable(amount); err != nil {
		return nil, asset.Move{}, nil, err
	}

	next := l.cur.clone()
	next.Locked = locked
	return next, asset.Move{From: l.cfg.Custody, To: l.cfg.Escrow, Amount: amount}, events.NewStakingAmountIncreased(amount), nil
}

// Unlock terminates the binding. Funds stay in escrow until claimed.
func (l *Ledger) Unlock(caller dealer.Address) (seq uint64, err error) {
	logger.Debug("unlock", "caller", caller)
	defer func() { observeOp("unlock", err) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.guard.Authorize(caller, guard.RoleOwner); err != nil {
		return l.reject("unlock", err)
	}
	switch l.cur.Phase {
	case PhaseUnlockPending:
		return l.reject("unlock", ErrAlreadyUnlocked)
	case PhaseUnbound:
		return l.reject("unlock", ErrNoActiveSequencer)
	}

	signer := *l.cur.Signer
	next := l.cur.clone()
	next.Phase = PhaseUnlockPending
	next.Signer = nil
	next.PubKey = nil

	if err := l.commit(next, nil, events.NewSequencerTerminated(signer)); err != nil {
		return 0, err
	}
	logger.Info("sequencer unlocked", "signer", signer, "pending", dealer.FormatAmount(next.Locked))
	return next.LastSeq, nil
}

// UnlockClaim returns the escrowed funds to the claim recipient and completes
// the cycle.
func (l *Ledger) UnlockClaim(caller dealer.Address) (seq uint64, err error) {
	logger.Debug("unlock claim", "caller", caller)
	defer func() { observeOp("unlockClaim", err) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.guard.Authorize(caller, guard.RoleOwner); err != nil {
		return l.reject("unlockClaim", err)
	}
	switch l.cur.Phase {
	case PhaseUnbound:
		return l.reject("unlockClaim", ErrNothingToClaim)
	case PhaseBonded:
		return l.reject("unlockClaim", ErrUnlockNotRequested)
	}

	amount := new(big.Int).Set(l.cur.Locked)
	next := l.cur.clone()
	next.Phase = PhaseUnbound
	next.Locked = new(big.Int)

	if err := l.commit(next,
		[]asset.Move{{From: l.cfg.Escrow, To: l.cfg.ClaimRecipient, Amount: amount}},
		events.NewUnlockClaimed(l.cfg.ClaimRecipient, amount),
	); err != nil {
		return 0, err
	}
	logger.Info("unlock claimed", "recipient", l.cfg.ClaimRecipient, "amount", dealer.FormatAmount(amount))
	return next.LastSeq, nil
}

// WithdrawStakingAmount forwards part of the locked amount to the redemption
// queue. An active binding keeps a positive amount; withdrawing the whole
// remainder of a pending unlock completes the cycle.
func (l *Ledger) WithdrawStakingAmount(caller dealer.Address, amount *big.Int) (seq uint64, err error) {
	logger.Debug("withdraw stake", "caller", caller, "amount", dealer.FormatAmount(amount))
	defer func() { observeOp("withdraw", err) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.guard.Authorize(caller, guard.RoleOwner); err != nil {
		return l.reject("withdraw", err)
	}
	if err := checkAmount(amount); err != nil {
		return l.reject("withdraw", err)
	}
	cmp := amount.Cmp(l.cur.Locked)
	if cmp > 0 {
		return l.reject("withdraw", ErrInsufficientLockedBalance)
	}
	if cmp == 0 && l.cur.active() {
		return l.reject("withdraw", ErrWouldDrainBinding)
	}

	next := l.cur.clone()
	next.Locked.Sub(next.Locked, amount)
	if next.Locked.Sign() == 0 {
		next.Phase = PhaseUnbound
	}

	if err := l.commit(next,
		[]asset.Move{{From: l.cfg.Escrow, To: l.cfg.RedemptionQueue, Amount: amount}},
		events.NewStakingAmountWithdrawn(l.cfg.RedemptionQueue, amount),
	); err != nil {
		return 0, err
	}
	logger.Info("stake withdrawn", "amount", dealer.FormatAmount(amount), "locked", dealer.FormatAmount(next.Locked), "phase", next.Phase)
	return next.LastSeq, nil
}

// AddSequencerAgent registers the custody account as the pending sequencer
// agent ahead of LockFor. No funds move.
func (l *Ledger) AddSequencerAgent(caller dealer.Address) (seq uint64, err error) {
	logger.Debug("add sequencer agent", "caller", caller)
	defer func() { observeOp("addSequencerAgent", err) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.guard.Authorize(caller, guard.RoleOwner); err != nil {
		return l.reject("addSequencerAgent", err)
	}
	if l.cur.Phase != PhaseUnbound {
		return l.reject("addSequencerAgent", ErrBindingExists)
	}
	if l.cur.AgentPending {
		return l.reject("addSequencerAgent", ErrAgentExists)
	}

	next := l.cur.clone()
	next.AgentPending = true
	if err := l.commit(next, nil, events.NewSequencerAgentAdded(l.cfg.Custody)); err != nil {
		return 0, err
	}
	logger.Info("sequencer agent added", "agent", l.cfg.Custody)
	return next.LastSeq, nil
}

func (l *Ledger) reject(op string, err error) (uint64, error) {
	logger.Info(op+" rejected", "phase", l.cur.Phase, "error", err)
	return 0, err
}

func (l *Ledger) checkAvailable(amount *big.Int) error {
	available, err := l.token.BalanceOf(l.cfg.Custody)
	if err != nil {
		return errors.WithMessage(err, "balance oracle")
	}
	if available.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !dealer.FitsUint256(amount) {
		return ErrAmountOverflow
	}
	return nil
}

func checkSigner(signer dealer.Address, pubKey []byte) error {
	if signer.IsZero() {
		return ErrInvalidSigner
	}
	derived, err := dealer.SignerFromPubKey(pubKey)
	if err != nil {
		return ErrInvalidPubKey
	}
	if derived != signer {
		return ErrPubKeyMismatch
	}
	return nil
}

// commit writes the moves and next in one atomic bulk, swaps next in and
// emits evs. On failure nothing is written. Callers hold l.mu.
func (l *Ledger) commit(next *record, moves []asset.Move, evs ...*events.Event) error {
	now := uint64(l.cfg.Clock().Unix())
	for _, ev := range evs {
		next.LastSeq++
		ev.Seq = next.LastSeq
		ev.Timestamp = now
	}

	bulk := l.store.Bulk()
	if err := l.storage.stage(bulk, next); err != nil {
		return err
	}
	if err := l.token.Commit(bulk, moves...); err != nil {
		return errors.WithMessage(err, "commit")
	}

	l.cur = next
	observeState(next)
	for _, ev := range evs {
		l.sink.Emit(ev)
	}
	return nil
}
