// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/events"
)

// Event is the JSON view of a stored or streamed event.
type Event struct {
	Seq       uint64           `json:"seq"`
	Timestamp uint64           `json:"timestamp"`
	Name      string           `json:"name"`
	Args      map[string]any   `json:"args"`
	Topics    []dealer.Bytes32 `json:"topics"`
	Data      hexutil.Bytes    `json:"data"`
}

// ConvertEvent renders ev with its amounts as quantities and its log form attached.
func ConvertEvent(ev *events.Event) (*Event, error) {
	l, err := ev.Log()
	if err != nil {
		return nil, err
	}
	args := make(map[string]any, len(ev.Args))
	for _, a := range ev.Args {
		switch v := a.Value.(type) {
		case *big.Int:
			args[a.Name] = (*math.HexOrDecimal256)(v)
		default:
			args[a.Name] = v
		}
	}
	return &Event{
		Seq:       ev.Seq,
		Timestamp: ev.Timestamp,
		Name:      ev.Name,
		Args:      args,
		Topics:    l.Topics,
		Data:      l.Data,
	}, nil
}
