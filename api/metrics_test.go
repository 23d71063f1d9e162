// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerhq/dealer/asset"
	"github.com/dealerhq/dealer/auth"
	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/events"
	"github.com/dealerhq/dealer/ledger"
	"github.com/dealerhq/dealer/logdb"
	"github.com/dealerhq/dealer/lvldb"
	"github.com/dealerhq/dealer/metrics"
)

func init() {
	metrics.InitializePrometheusMetrics()
}

func newTestAPI(t *testing.T) *httptest.Server {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logDB, err := logdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { logDB.Close() })
	feed := events.NewFeed(16)
	t.Cleanup(feed.Close)

	l, err := ledger.New(db, asset.New("METIS", db), events.Multi(events.Store(logDB), feed), ledger.Config{
		Owner:           dealer.BytesToAddress([]byte("owner")),
		Custody:         dealer.BytesToAddress([]byte("dealer")),
		Escrow:          dealer.BytesToAddress([]byte("lockingPool")),
		RedemptionQueue: dealer.BytesToAddress([]byte("redemptionQueue")),
	})
	require.NoError(t, err)

	handler, closeSubs := New(l, auth.NewNonces(db), logDB, feed, Options{
		AllowedOrigins: "*",
		BacktraceLimit: 100,
		EnableMetrics:  true,
		LogsLimit:      100,
	})
	ts := httptest.NewServer(handler)
	t.Cleanup(func() {
		closeSubs()
		ts.Close()
	})
	return ts
}

func gather(t *testing.T, name string) []*dto.Metric {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()
		}
	}
	return nil
}

func labelsOf(m *dto.Metric) map[string]string {
	out := make(map[string]string)
	for _, l := range m.GetLabel() {
		out[l.GetName()] = l.GetValue()
	}
	return out
}

func find(ms []*dto.Metric, labels map[string]string) *dto.Metric {
	for _, m := range ms {
		got := labelsOf(m)
		match := true
		for k, v := range labels {
			if got[k] != v {
				match = false
				break
			}
		}
		if match {
			return m
		}
	}
	return nil
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	r, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return r, res.StatusCode
}

func TestMetricsMiddleware(t *testing.T) {
	ts := newTestAPI(t)

	_, code := httpGet(t, ts.URL+"/dealer/active")
	assert.Equal(t, http.StatusOK, code)
	_, code = httpGet(t, ts.URL+"/dealer/active")
	assert.Equal(t, http.StatusOK, code)
	_, code = httpGet(t, ts.URL+"/events?limit=1000")
	assert.Equal(t, http.StatusForbidden, code)

	resp, err := http.Post(ts.URL+"/dealer/unlock", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// unrouted requests are not recorded
	_, code = httpGet(t, ts.URL+"/nowhere")
	assert.Equal(t, http.StatusNotFound, code)

	ms := gather(t, "dealer_api_request_count")
	m := find(ms, map[string]string{"name": "GET /dealer/active", "code": "200", "method": "GET"})
	require.NotNil(t, m)
	assert.Equal(t, float64(2), m.GetCounter().GetValue())

	m = find(ms, map[string]string{"name": "GET /events", "code": "403"})
	require.NotNil(t, m)
	assert.Equal(t, float64(1), m.GetCounter().GetValue())

	m = find(ms, map[string]string{"name": "POST /dealer/unlock", "code": "401", "method": "POST"})
	require.NotNil(t, m)
	assert.Equal(t, float64(1), m.GetCounter().GetValue())

	for _, m := range ms {
		assert.NotContains(t, labelsOf(m)["name"], "nowhere")
	}
	assert.NotEmpty(t, gather(t, "dealer_api_duration_ms"))
}

func TestWebsocketMetrics(t *testing.T) {
	ts := newTestAPI(t)
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/subscriptions/events"

	conn1, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	conn2, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)

	subject := map[string]string{"subject": "events"}
	assert.Eventually(t, func() bool {
		m := find(gather(t, "dealer_api_active_websocket_count"), subject)
		return m != nil && m.GetGauge().GetValue() == 2
	}, 5*time.Second, 10*time.Millisecond)

	conn1.Close()
	assert.Eventually(t, func() bool {
		m := find(gather(t, "dealer_api_active_websocket_count"), subject)
		return m != nil && m.GetGauge().GetValue() == 1
	}, 5*time.Second, 10*time.Millisecond)

	conn2.Close()
	assert.Eventually(t, func() bool {
		m := find(gather(t, "dealer_api_active_websocket_count"), subject)
		return m != nil && m.GetGauge().GetValue() == 0
	}, 5*time.Second, 10*time.Millisecond)
}
