// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dealer

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Decimals of the bonded asset.
const Decimals = 18

// Unit is one whole token expressed in the smallest denomination.
var Unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// ParseAmount parses a decimal token amount such as "20000" or "0.1" into
// the smallest denomination.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty amount")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && len(frac) > Decimals {
		return nil, fmt.Errorf("too many decimals in %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	frac += strings.Repeat("0", Decimals-len(frac))

	amount, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	return amount, nil
}

// MustParseAmount is ParseAmount that panics on error.
func MustParseAmount(s string) *big.Int {
	amount, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return amount
}

// FormatAmount renders an amount in whole tokens, trimming trailing zeros.
func FormatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	q, r := new(big.Int).QuoRem(amount, Unit, new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}
	frac := new(big.Int).Abs(r).String()
	frac = strings.Repeat("0", Decimals-len(frac)) + frac
	return q.String() + "." + strings.TrimRight(frac, "0")
}

// WholeTokens truncates an amount to whole tokens, for logs and gauges.
func WholeTokens(amount *big.Int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	return new(big.Int).Div(amount, Unit)
}

// FitsUint256 reports whether amount is non-negative and representable as
// an EVM word.
func FitsUint256(amount *big.Int) bool {
	if amount == nil || amount.Sign() < 0 {
		return false
	}
	_, overflow := uint256.FromBig(amount)
	return !overflow
}
