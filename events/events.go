// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package events defines the notifications emitted by the dealer ledger and
// the sinks that deliver them to observers.
package events

import (
	_ "embed"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dealerhq/dealer/abi"
	"github.com/dealerhq/dealer/dealer"
)

//go:embed dealer.abi.json
var dealerABIJSON []byte

var dealerABI = func() *abi.ABI {
	a, err := abi.New(dealerABIJSON)
	if err != nil {
		panic(err)
	}
	return a
}()

// event names
const (
	SequencerInitialBalanceLocked = "SequencerInitialBalanceLocked"
	SequencerTerminated           = "SequencerTerminated"
	StakingAmountIncreased        = "StakingAmountIncreased"
	StakingAmountWithdrawn        = "StakingAmountWithdrawn"
	SequencerRelocked             = "SequencerRelocked"
	SequencerAgentAdded           = "SequencerAgentAdded"
	UnlockClaimed                 = "UnlockClaimed"
)

// Arg is a named event argument. Value is one of dealer.Address, *big.Int or bool.
type Arg struct {
	Name  string
	Value any
}

// Event is a notification of a committed ledger transition.
type Event struct {
	Seq       uint64 // 1-based, assigned by the ledger
	Timestamp uint64 // unix seconds
	Name      string
	Args      []Arg
}

// Log is the EVM log form of an event.
type Log struct {
	Topics []dealer.Bytes32
	Data   []byte
}

// Arg returns the value of the named argument.
func (e *Event) Arg(name string) (any, bool) {
	for _, a := range e.Args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// Values returns argument values in order.
func (e *Event) Values() []any {
	vals := make([]any, 0, len(e.Args))
	for _, a := range e.Args {
		vals = append(vals, a.Value)
	}
	return vals
}

// Copy returns a deep copy of the event.
func (e *Event) Copy() *Event {
	cpy := *e
	cpy.Args = make([]Arg, len(e.Args))
	for i, a := range e.Args {
		if v, ok := a.Value.(*big.Int); ok {
			a.Value = new(big.Int).Set(v)
		}
		cpy.Args[i] = a
	}
	return &cpy
}

// String implements fmt.Stringer.
func (e *Event) String() string {
	return fmt.Sprintf("%s#%d%v", e.Name, e.Seq, e.Values())
}

// Log encodes the event with the dealer contract ABI.
func (e *Event) Log() (*Log, error) {
	abiEvent, ok := dealerABI.EventByName(e.Name)
	if !ok {
		return nil, fmt.Errorf("unknown event %q", e.Name)
	}
	args := make([]any, 0, len(e.Args))
	for _, a := range e.Args {
		switch v := a.Value.(type) {
		case dealer.Address:
			args = append(args, common.Address(v))
		default:
			args = append(args, v)
		}
	}
	topics, data, err := abiEvent.Encode(args...)
	if err != nil {
		return nil, err
	}
	return &Log{Topics: topics, Data: data}, nil
}

// Decode rebuilds an event from its log form.
func Decode(seq, timestamp uint64, log *Log) (*Event, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("event #%d: no topics", seq)
	}
	abiEvent, ok := dealerABI.EventByID(log.Topics[0])
	if !ok {
		return nil, fmt.Errorf("event #%d: unknown event id %v", seq, log.Topics[0])
	}
	values, err := abiEvent.Decode(log.Topics, log.Data)
	if err != nil {
		return nil, err
	}

	ev := &Event{Seq: seq, Timestamp: timestamp, Name: abiEvent.Name()}
	for _, name := range abiEvent.Inputs() {
		v := values[name]
		if addr, ok := v.(common.Address); ok {
			v = dealer.Address(addr)
		}
		ev.Args = append(ev.Args, Arg{Name: name, Value: v})
	}
	return ev, nil
}

// ID returns topic0 of the named event.
func ID(name string) (dealer.Bytes32, bool) {
	e, ok := dealerABI.EventByName(name)
	if !ok {
		return dealer.Bytes32{}, false
	}
	return e.ID(), true
}

func NewSequencerInitialBalanceLocked(signer dealer.Address, amount *big.Int, active bool) *Event {
	return newEvent(SequencerInitialBalanceLocked,
		Arg{"sequencerSigner", signer},
		Arg{"amount", new(big.Int).Set(amount)},
		Arg{"active", active})
}

func NewSequencerTerminated(signer dealer.Address) *Event {
	return newEvent(SequencerTerminated, Arg{"sequencerSigner", signer})
}

func NewStakingAmountIncreased(amount *big.Int) *Event {
	return newEvent(StakingAmountIncreased, Arg{"amount", new(big.Int).Set(amount)})
}

func NewStakingAmountWithdrawn(redemptionQueue dealer.Address, amount *big.Int) *Event {
	return newEvent(StakingAmountWithdrawn,
		Arg{"redemptionQueue", redemptionQueue},
		Arg{"amount", new(big.Int).Set(amount)})
}

func NewSequencerRelocked(signer dealer.Address, amount *big.Int) *Event {
	return newEvent(SequencerRelocked,
		Arg{"sequencerSigner", signer},
		Arg{"amount", new(big.Int).Set(amount)})
}

func NewSequencerAgentAdded(agent dealer.Address) *Event {
	return newEvent(SequencerAgentAdded, Arg{"agent", agent})
}

func NewUnlockClaimed(recipient dealer.Address, amount *big.Int) *Event {
	return newEvent(UnlockClaimed,
		Arg{"recipient", recipient},
		Arg{"amount", new(big.Int).Set(amount)})
}

func newEvent(name string, args ...Arg) *Event {
	return &Event{Name: name, Args: args}
}
