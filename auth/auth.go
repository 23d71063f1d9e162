// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package auth identifies callers of the dealer API. A request is signed by
// the caller's secp256k1 key; the recovered address is the caller identity
// checked by the ledger.
package auth

import (
	"crypto/ecdsa"
	"encoding/binary"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/dealerhq/dealer/dealer"
)

// request headers
const (
	HeaderNonce     = "X-Dealer-Nonce"
	HeaderSignature = "X-Dealer-Signature"
)

var (
	ErrMissingSignature = errors.New("missing request signature")
	ErrInvalidSignature = errors.New("invalid request signature")
	ErrInvalidNonce     = errors.New("invalid request nonce")
)

var domain = []byte("dealer")

// SigningHash is the hash a caller signs: keccak256("dealer" || path || nonce || body),
// with the nonce as 8 big-endian bytes.
func SigningHash(path string, nonce uint64, body []byte) dealer.Bytes32 {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return dealer.Keccak256(domain, []byte(path), n[:], body)
}

// Sign signs a request with key, returning the 65-byte [R || S || V] signature.
func Sign(key *ecdsa.PrivateKey, path string, nonce uint64, body []byte) ([]byte, error) {
	hash := SigningHash(path, nonce, body)
	return crypto.Sign(hash.Bytes(), key)
}

// Recover returns the address that produced sig over the request.
func Recover(path string, nonce uint64, body, sig []byte) (dealer.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return dealer.Address{}, ErrInvalidSignature
	}
	hash := SigningHash(path, nonce, body)
	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return dealer.Address{}, errors.Wrap(ErrInvalidSignature, err.Error())
	}
	return dealer.Address(crypto.PubkeyToAddress(*pub)), nil
}

// ParseHeaders decodes the nonce and signature header values.
func ParseHeaders(nonce, sig string) (uint64, []byte, error) {
	if nonce == "" || sig == "" {
		return 0, nil, ErrMissingSignature
	}
	n, err := strconv.ParseUint(nonce, 10, 64)
	if err != nil || n == 0 {
		return 0, nil, ErrInvalidNonce
	}
	s, err := hexutil.Decode(sig)
	if err != nil {
		return 0, nil, ErrInvalidSignature
	}
	return n, s, nil
}

// Address returns the address of key.
func Address(key *ecdsa.PrivateKey) dealer.Address {
	return dealer.Address(crypto.PubkeyToAddress(key.PublicKey))
}
