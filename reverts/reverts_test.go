// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"fmt"
	"math/big"
	"testing"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Reverts(t *testing.T) {
	revert := New(KindNotAuthorized, "test")
	assert.Equal(t, "test", revert.message)
	assert.Equal(t, revert.Error(), revert.message)
	assert.Equal(t, KindNotAuthorized, revert.Kind())

	assert.True(t, IsRevertErr(revert))
	assert.True(t, IsRevertErr(errors.Wrap(revert, "wrapped")))
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr(fmt.Errorf("test")))
	assert.False(t, IsRevertErr(big.NewInt(0)))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInsufficientBalance, KindOf(New(KindInsufficientBalance, "x")))
	assert.Equal(t, KindInvalidStateTransition, KindOf(errors.WithMessage(New(KindInvalidStateTransition, "x"), "op")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, "InsufficientLockedBalance", KindInsufficientLockedBalance.String())
	assert.Equal(t, "Unknown", Kind(200).String())
}

func TestBytes(t *testing.T) {
	revert := New(KindInsufficientBalance, "Dealer: Insufficient Metis balance")

	reason, err := ethabi.UnpackRevert(revert.Bytes())
	require.NoError(t, err)
	assert.Equal(t, revert.Error(), reason)

	assert.Len(t, revert.Bytes(), 4+32+32+64)

	var nilRevert *ErrRevert
	assert.Nil(t, nilRevert.Bytes())
}
