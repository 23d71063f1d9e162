// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dealer

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PubKeyLength is the length of an uncompressed secp256k1 public key
// without the 0x04 prefix, as registered for a sequencer signer.
const PubKeyLength = 64

// SignerFromPubKey validates a raw 64-byte signer public key and derives the
// signer address from it.
func SignerFromPubKey(pub []byte) (Address, error) {
	if len(pub) != PubKeyLength {
		return Address{}, fmt.Errorf("invalid pubkey length %d", len(pub))
	}
	if _, err := secp256k1.ParsePubKey(append([]byte{0x04}, pub...)); err != nil {
		return Address{}, fmt.Errorf("invalid pubkey: %w", err)
	}
	h := Keccak256(pub)
	return BytesToAddress(h[12:]), nil
}
