// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	metrics = defaultNoopMetrics()
	require.True(t, NoOp())

	server := httptest.NewServer(HTTPHandler())
	t.Cleanup(server.Close)

	Counter("count1").Add(1)
	CounterVec("countVec1", []string{"op"}).AddWithLabel(1, map[string]string{"nonsense": "ok"})
	Gauge("gauge1").Set(3)
	GaugeVec("gaugeVec1", []string{"op"}).SetWithLabel(2, map[string]string{"nonsense": "ok"})
	Histogram("hist1", nil).Observe(10)
	HistogramVec("hist2", []string{"op"}, nil).ObserveWithLabels(1, nil)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
