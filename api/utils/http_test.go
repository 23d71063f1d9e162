// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerhq/dealer/reverts"
)

func serve(err error) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	WrapHandlerFunc(func(http.ResponseWriter, *http.Request) error { return err }).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestWrapHandlerFunc(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(nil).Code)

	rec := serve(BadRequest(errors.New("bad body")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad body", strings.TrimSpace(rec.Body.String()))

	assert.Equal(t, http.StatusUnauthorized, serve(Unauthorized(errors.New("who"))).Code)
	assert.Equal(t, http.StatusForbidden, serve(Forbidden(errors.New("no"))).Code)
	assert.Equal(t, http.StatusTeapot, serve(HTTPError(nil, http.StatusTeapot)).Code)
	assert.Equal(t, http.StatusInternalServerError, serve(errors.New("boom")).Code)
}

func TestWrapHandlerFuncRevert(t *testing.T) {
	tests := []struct {
		revert *reverts.ErrRevert
		status int
	}{
		{reverts.New(reverts.KindNotAuthorized, "Dealer: caller is not authorized"), http.StatusForbidden},
		{reverts.New(reverts.KindInsufficientBalance, "Dealer: Insufficient Metis balance"), http.StatusBadRequest},
		{reverts.New(reverts.KindInvalidStateTransition, "Dealer: nothing to claim"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := serve(tt.revert)
		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, JSONContentType, rec.Header().Get("Content-Type"))

		var body RevertResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tt.revert.Error(), body.Error)
		assert.Equal(t, tt.revert.Kind().String(), body.Kind)

		reason, err := abi.UnpackRevert(body.Data)
		require.NoError(t, err)
		assert.Equal(t, tt.revert.Error(), reason)
	}
}

func TestParseJSON(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	require.NoError(t, ParseJSON(strings.NewReader(`{"a":1}`), &v))
	assert.Equal(t, 1, v.A)
	assert.Error(t, ParseJSON(strings.NewReader(`{"b":1}`), &v))

	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, M{"ok": true}))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
