// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerhq/dealer/cmd/dealer/httpserver"
)

func TestRunServers(t *testing.T) {
	apiSrv, err := httpserver.NewAPIServer("localhost:0", http.NotFoundHandler(), time.Second)
	require.NoError(t, err)
	metricsSrv, err := httpserver.NewMetricsServer("localhost:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServers(ctx, []*httpserver.Server{apiSrv, metricsSrv}) }()

	assert.Eventually(t, func() bool {
		resp, err := http.Get(apiSrv.URL())
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("servers did not stop")
	}

	_, err = http.Get(apiSrv.URL())
	assert.Error(t, err)
}
