// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package abi

import (
	"bytes"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/dealerhq/dealer/dealer"
)

// ABI holds the events of a contract interface.
type ABI struct {
	nameToEvent map[string]*Event
	events      map[dealer.Bytes32]*Event
}

// New create an ABI instance from its JSON description.
func New(data []byte) (*ABI, error) {
	parsed, err := ethabi.JSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	abi := &ABI{
		nameToEvent: make(map[string]*Event),
		events:      make(map[dealer.Bytes32]*Event),
	}
	for name, ethEvent := range parsed.Events {
		event := newEvent(ethEvent)
		abi.events[event.ID()] = event
		abi.nameToEvent[name] = event
	}
	return abi, nil
}

// EventByName find event for the given event name.
func (a *ABI) EventByName(name string) (*Event, bool) {
	e, found := a.nameToEvent[name]
	return e, found
}

// EventByID returns the event for the given event id.
func (a *ABI) EventByID(id dealer.Bytes32) (*Event, bool) {
	e, found := a.events[id]
	return e, found
}
