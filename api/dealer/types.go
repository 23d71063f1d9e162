// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dealer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/ledger"
)

// Snapshot is the JSON view of the ledger state.
type Snapshot struct {
	Phase           string                `json:"phase"`
	Active          bool                  `json:"active"`
	SequencerSigner *dealer.Address       `json:"sequencerSigner"`
	SignerPubKey    hexutil.Bytes         `json:"signerPubKey,omitempty"`
	LockedAmount    *math.HexOrDecimal256 `json:"lockedAmount"`
	AgentPending    bool                  `json:"agentPending"`
	LastSeq         uint64                `json:"lastSeq"`
	Owner           dealer.Address        `json:"owner"`
	Custody         dealer.Address        `json:"custody"`
	Escrow          dealer.Address        `json:"escrow"`
	RedemptionQueue dealer.Address        `json:"redemptionQueue"`
	ClaimRecipient  dealer.Address        `json:"claimRecipient"`
	MinLockAmount   *math.HexOrDecimal256 `json:"minLockAmount"`
}

func convertSnapshot(s *ledger.Snapshot) *Snapshot {
	return &Snapshot{
		Phase:           s.Phase.String(),
		Active:          s.Active,
		SequencerSigner: s.Signer,
		SignerPubKey:    s.PubKey,
		LockedAmount:    (*math.HexOrDecimal256)(s.Locked),
		AgentPending:    s.AgentPending,
		LastSeq:         s.LastSeq,
		Owner:           s.Owner,
		Custody:         s.Custody,
		Escrow:          s.Escrow,
		RedemptionQueue: s.RedemptionQueue,
		ClaimRecipient:  s.ClaimRecipient,
		MinLockAmount:   (*math.HexOrDecimal256)(s.MinLockAmount),
	}
}

type Active struct {
	Active bool `json:"active"`
}

type Signer struct {
	SequencerSigner *dealer.Address `json:"sequencerSigner"`
}

type LockFor struct {
	Signer dealer.Address        `json:"signer"`
	Amount *math.HexOrDecimal256 `json:"amount"`
	PubKey hexutil.Bytes         `json:"pubKey"`
}

// Amount is the body of relock, increase and withdraw. Amount is optional for relock.
type Amount struct {
	Amount *math.HexOrDecimal256 `json:"amount,omitempty"`
}

// Receipt acknowledges a committed call.
type Receipt struct {
	Caller  dealer.Address `json:"caller"`
	Nonce   uint64         `json:"nonce"`
	LastSeq uint64         `json:"lastSeq"`
}

func bigOf(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return nil
	}
	return (*big.Int)(v)
}
