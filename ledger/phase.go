// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import "fmt"

// Phase is the lifecycle position of the custody binding.
type Phase uint8

const (
	PhaseUnbound       Phase = iota // no binding, nothing locked
	PhaseBonded                     // signer bound, funds locked
	PhaseUnlockPending              // binding terminated, funds awaiting claim
)

func (p Phase) String() string {
	switch p {
	case PhaseUnbound:
		return "unbound"
	case PhaseBonded:
		return "bonded"
	case PhaseUnlockPending:
		return "unlockPending"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
