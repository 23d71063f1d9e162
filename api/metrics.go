// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/dealerhq/dealer/metrics"
)

var (
	metricHTTPReqCounter       = metrics.LazyLoadCounterVec("api_request_count", []string{"name", "code", "method"})
	metricHTTPReqDuration      = metrics.LazyLoadHistogramVec("api_duration_ms", []string{"name", "code", "method"}, metrics.BucketHTTPReqs)
	metricActiveWebsocketGauge = metrics.LazyLoadGaugeVec("api_active_websocket_count", []string{"subject"})
)

// metricsMiddleware records the count and duration of every routed request,
// labelled with the route name. Websocket routes also track open connections.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := mux.CurrentRoute(r)
		if route == nil || route.GetName() == "" {
			next.ServeHTTP(w, r)
			return
		}
		name := route.GetName()

		if subject, ok := strings.CutPrefix(name, "WS /subscriptions/"); ok {
			labels := map[string]string{"subject": subject}
			metricActiveWebsocketGauge().AddWithLabel(1, labels)
			defer metricActiveWebsocketGauge().AddWithLabel(-1, labels)
		}

		m := httpsnoop.CaptureMetrics(next, w, r)

		labels := map[string]string{
			"name":   name,
			"code":   strconv.Itoa(m.Code),
			"method": r.Method,
		}
		metricHTTPReqCounter().AddWithLabel(1, labels)
		metricHTTPReqDuration().ObserveWithLabels(m.Duration.Milliseconds(), labels)
	})
}
