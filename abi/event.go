// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package abi

import (
	"errors"
	"fmt"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dealerhq/dealer/dealer"
)

// Event see abi.Event in go-ethereum.
type Event struct {
	id         dealer.Bytes32
	event      ethabi.Event
	indexed    ethabi.Arguments
	nonIndexed ethabi.Arguments
}

func newEvent(event ethabi.Event) *Event {
	var indexed ethabi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return &Event{
		id:         dealer.Bytes32(event.ID),
		event:      event,
		indexed:    indexed,
		nonIndexed: event.Inputs.NonIndexed(),
	}
}

// ID returns event id, which is topic0 of its logs.
func (e *Event) ID() dealer.Bytes32 {
	return e.id
}

// Name returns event name.
func (e *Event) Name() string {
	return e.event.Name
}

// Inputs returns the argument names in declaration order.
func (e *Event) Inputs() []string {
	names := make([]string, 0, len(e.event.Inputs))
	for _, arg := range e.event.Inputs {
		names = append(names, arg.Name)
	}
	return names
}

// Encode encodes args, given in declaration order, into log topics and data.
// Indexed args become topics after the event id, the rest are packed into data.
func (e *Event) Encode(args ...any) ([]dealer.Bytes32, []byte, error) {
	if len(args) != len(e.event.Inputs) {
		return nil, nil, fmt.Errorf("event %s: expected %d args, got %d", e.Name(), len(e.event.Inputs), len(args))
	}

	var (
		query  [][]any
		packed []any
	)
	for i, arg := range e.event.Inputs {
		if arg.Indexed {
			query = append(query, []any{args[i]})
		} else {
			packed = append(packed, args[i])
		}
	}

	topics := []dealer.Bytes32{e.id}
	if len(query) > 0 {
		indexed, err := ethabi.MakeTopics(query...)
		if err != nil {
			return nil, nil, err
		}
		for _, t := range indexed {
			topics = append(topics, dealer.Bytes32(t[0]))
		}
	}

	data, err := e.nonIndexed.Pack(packed...)
	if err != nil {
		return nil, nil, err
	}
	return topics, data, nil
}

// Decode decodes a log of this event into a map of argument name to value.
func (e *Event) Decode(topics []dealer.Bytes32, data []byte) (map[string]any, error) {
	if len(topics) == 0 || topics[0] != e.id {
		return nil, errors.New("topic0 does not match event id")
	}
	if len(topics)-1 != len(e.indexed) {
		return nil, fmt.Errorf("event %s: expected %d indexed topics, got %d", e.Name(), len(e.indexed), len(topics)-1)
	}

	out := make(map[string]any, len(e.event.Inputs))
	if len(e.nonIndexed) > 0 {
		if err := e.nonIndexed.UnpackIntoMap(out, data); err != nil {
			return nil, err
		}
	}
	if len(e.indexed) > 0 {
		hashes := make([]common.Hash, 0, len(topics)-1)
		for _, t := range topics[1:] {
			hashes = append(hashes, common.Hash(t))
		}
		if err := ethabi.ParseTopicsIntoMap(out, e.indexed, hashes); err != nil {
			return nil, err
		}
	}
	return out, nil
}
