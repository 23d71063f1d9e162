// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"github.com/dealerhq/dealer/guard"
	"github.com/dealerhq/dealer/reverts"
)

var (
	ErrNotAuthorized = guard.ErrNotAuthorized

	ErrInsufficientBalance       = reverts.New(reverts.KindInsufficientBalance, "Dealer: Insufficient Metis balance")
	ErrInsufficientLockedBalance = reverts.New(reverts.KindInsufficientLockedBalance, "Dealer: insufficient locked balance")
	ErrWouldDrainBinding         = reverts.New(reverts.KindInsufficientLockedBalance, "Dealer: withdrawal would empty an active binding")

	ErrBindingExists      = reverts.New(reverts.KindInvalidStateTransition, "Dealer: sequencer already locked")
	ErrNoActiveSequencer  = reverts.New(reverts.KindInvalidStateTransition, "Dealer: no active sequencer")
	ErrAlreadyUnlocked    = reverts.New(reverts.KindInvalidStateTransition, "Dealer: sequencer already unlocked")
	ErrUnlockNotRequested = reverts.New(reverts.KindInvalidStateTransition, "Dealer: unlock not requested")
	ErrNothingToClaim     = reverts.New(reverts.KindInvalidStateTransition, "Dealer: nothing to claim")
	ErrAgentExists        = reverts.New(reverts.KindInvalidStateTransition, "Dealer: sequencer agent already added")

	ErrInvalidAmount  = reverts.New(reverts.KindInvalidArgument, "Dealer: amount must be positive")
	ErrAmountOverflow = reverts.New(reverts.KindInvalidArgument, "Dealer: amount exceeds uint256")
	ErrBelowMinimum   = reverts.New(reverts.KindInvalidArgument, "Dealer: amount below minimum lock")
	ErrInvalidSigner  = reverts.New(reverts.KindInvalidArgument, "Dealer: invalid sequencer signer")
	ErrInvalidPubKey  = reverts.New(reverts.KindInvalidArgument, "Dealer: invalid signer public key")
	ErrPubKeyMismatch = reverts.New(reverts.KindInvalidArgument, "Dealer: public key does not match signer")
)
