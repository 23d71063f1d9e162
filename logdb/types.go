// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import "github.com/dealerhq/dealer/dealer"

type RangeType string

const (
	Seq  RangeType = "seq"
	Time RangeType = "time"
)

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range is an inclusive interval of sequence numbers or unix timestamps.
// To below From means unbounded above.
type Range struct {
	Unit RangeType
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// EventFilter selects stored events. Nil fields match everything.
type EventFilter struct {
	Names   []string
	Topic1  *dealer.Bytes32 // first indexed argument, e.g. the sequencer signer
	Range   *Range
	Order   Order
	Options *Options
}
