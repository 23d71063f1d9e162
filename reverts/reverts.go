// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"encoding/binary"
	"errors"
)

// Kind classifies why a call was rejected.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotAuthorized
	KindInsufficientBalance
	KindInsufficientLockedBalance
	KindInvalidStateTransition
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindNotAuthorized:
		return "NotAuthorized"
	case KindInsufficientBalance:
		return "InsufficientBalance"
	case KindInsufficientLockedBalance:
		return "InsufficientLockedBalance"
	case KindInvalidStateTransition:
		return "InvalidStateTransition"
	case KindInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// errorSelector is the 4-byte selector of Error(string).
var errorSelector = []byte{0x08, 0xc3, 0x79, 0xa0}

// ErrRevert is a rejected call. It never carries partial state changes.
type ErrRevert struct {
	kind    Kind
	message string
}

func New(kind Kind, message string) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

// Kind returns the classification of the revert.
func (e *ErrRevert) Kind() Kind {
	return e.kind
}

// Bytes returns the revert reason ABI-encoded as Error(string), the way an
// EVM contract reports it.
func (e *ErrRevert) Bytes() []byte {
	if e == nil {
		return nil
	}

	msgBytes := []byte(e.message)
	padded := ((len(msgBytes) + 31) / 32) * 32

	// selector + offset (32 bytes) + length (32 bytes) + data (padded to 32)
	encoded := make([]byte, 0, 4+32+32+padded)
	encoded = append(encoded, errorSelector...)

	offset := make([]byte, 32)
	binary.BigEndian.PutUint64(offset[24:], 32)
	encoded = append(encoded, offset...)

	length := make([]byte, 32)
	binary.BigEndian.PutUint64(length[24:], uint64(len(msgBytes)))
	encoded = append(encoded, length...)

	data := make([]byte, padded)
	copy(data, msgBytes)
	return append(encoded, data...)
}

// IsRevertErr reports whether err is, or wraps, an *ErrRevert.
func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	if errors.As(e, &ve) {
		return ve != nil
	}
	return false
}

// KindOf returns the kind of the revert in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var ve *ErrRevert
	if errors.As(err, &ve) && ve != nil {
		return ve.kind
	}
	return KindUnknown
}
