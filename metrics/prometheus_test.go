// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T) map[string]*dto.MetricFamily {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily)
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out
}

func TestPromMetrics(t *testing.T) {
	InitializePrometheusMetrics()
	require.False(t, NoOp())

	Counter("test_count").Add(2)
	Counter("test_count").Add(1)

	ops := CounterVec("test_ops", []string{"op"})
	ops.AddWithLabel(1, map[string]string{"op": "lock"})
	ops.AddWithLabel(1, map[string]string{"op": "unlock"})
	ops.AddWithLabel(1, map[string]string{"op": "unlock"})

	gauge := Gauge("test_locked")
	gauge.Set(20000)
	gauge.Add(-5000)

	phase := GaugeVec("test_phase", []string{"name"})
	phase.SetWithLabel(1, map[string]string{"name": "bonded"})
	phase.AddWithLabel(1, map[string]string{"name": "bonded"})

	total := 0
	for i := range 10 {
		Histogram("test_hist", []int64{0, 5, 10}).Observe(int64(i))
		HistogramVec("test_hist_vec", []string{"odd"}, nil).ObserveWithLabels(int64(i), map[string]string{"odd": map[bool]string{true: "1", false: "0"}[i%2 == 1]})
		total += i
	}

	m := gather(t)
	assert.Equal(t, float64(3), m["dealer_test_count"].Metric[0].GetCounter().GetValue())
	assert.Len(t, m["dealer_test_ops"].Metric, 2)
	assert.Equal(t, float64(15000), m["dealer_test_locked"].Metric[0].GetGauge().GetValue())
	assert.Equal(t, float64(2), m["dealer_test_phase"].Metric[0].GetGauge().GetValue())
	assert.Equal(t, float64(total), m["dealer_test_hist"].Metric[0].GetHistogram().GetSampleSum())

	vecSum := m["dealer_test_hist_vec"].Metric[0].GetHistogram().GetSampleSum() +
		m["dealer_test_hist_vec"].Metric[1].GetHistogram().GetSampleSum()
	assert.Equal(t, float64(total), vecSum)

	server := httptest.NewServer(HTTPHandler())
	defer server.Close()
	resp, err := server.Client().Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "dealer_test_count 3")
}

func TestLazyLoading(t *testing.T) {
	metrics = defaultNoopMetrics()

	for _, a := range []any{
		Gauge("noop_gauge"),
		GaugeVec("noop_gauge_vec", nil),
		Counter("noop_counter"),
		CounterVec("noop_counter_vec", nil),
		Histogram("noop_hist", nil),
		HistogramVec("noop_hist_vec", nil, nil),
	} {
		require.IsType(t, &noopMeters{}, a)
	}

	lazyGauge := LazyLoadGauge("lazy_gauge")
	lazyGaugeVec := LazyLoadGaugeVec("lazy_gauge_vec", nil)
	lazyCounter := LazyLoadCounter("lazy_counter")
	lazyCounterVec := LazyLoadCounterVec("lazy_counter_vec", nil)
	lazyHistogram := LazyLoadHistogram("lazy_hist", nil)
	lazyHistogramVec := LazyLoadHistogramVec("lazy_hist_vec", nil, nil)

	InitializePrometheusMetrics()

	require.IsType(t, &promGaugeMeter{}, lazyGauge())
	require.IsType(t, &promGaugeVecMeter{}, lazyGaugeVec())
	require.IsType(t, &promCountMeter{}, lazyCounter())
	require.IsType(t, &promCountVecMeter{}, lazyCounterVec())
	require.IsType(t, &promHistogramMeter{}, lazyHistogram())
	require.IsType(t, &promHistogramVecMeter{}, lazyHistogramVec())
}
