// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerhq/dealer/api/admin/apilogs"
	"github.com/dealerhq/dealer/api/admin/health"
	"github.com/dealerhq/dealer/asset"
	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/events"
	"github.com/dealerhq/dealer/ledger"
	"github.com/dealerhq/dealer/log"
	"github.com/dealerhq/dealer/logdb"
	"github.com/dealerhq/dealer/lvldb"
)

func TestAdminRoutes(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logDB, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { logDB.Close() })

	owner := dealer.BytesToAddress([]byte("owner"))
	l, err := ledger.New(db, asset.New("METIS", db), events.Store(logDB), ledger.Config{
		Owner:           owner,
		Custody:         dealer.BytesToAddress([]byte("dealer")),
		Escrow:          dealer.BytesToAddress([]byte("lockingPool")),
		RedemptionQueue: dealer.BytesToAddress([]byte("redemptionQueue")),
	})
	require.NoError(t, err)
	_, err = l.AddSequencerAgent(owner)
	require.NoError(t, err)

	var level slog.LevelVar
	level.Set(log.LevelInfo)
	var apiLogs atomic.Bool

	ts := httptest.NewServer(New(&level, &apiLogs, health.New(l, logDB)))
	t.Cleanup(ts.Close)

	resp, err := http.Post(ts.URL+"/admin/loglevel", "application/json", bytes.NewBufferString(`{"level":"warn"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, log.LevelWarn, level.Level())

	resp, err = http.Post(ts.URL+"/admin/apilogs", "application/json", bytes.NewBufferString(`{"enabled":true}`))
	require.NoError(t, err)
	var logStatus apilogs.LogStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&logStatus))
	resp.Body.Close()
	assert.True(t, logStatus.Enabled)
	assert.True(t, apiLogs.Load())

	resp, err = http.Get(ts.URL + "/admin/health")
	require.NoError(t, err)
	var status health.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, status.Healthy)
	assert.Equal(t, uint64(1), status.StoredSeq)
}
