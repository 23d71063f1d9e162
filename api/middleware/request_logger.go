// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package middleware

import (
	"bytes"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/pborman/uuid"

	"github.com/dealerhq/dealer/log"
)

// HeaderRequestID carries the id a request is logged under.
const HeaderRequestID = "X-Request-Id"

// RequestLoggerMiddleware returns a middleware that tags every request with an id and
// logs it when logging is enabled, when it is slower than slowQueriesThreshold, or
// when it fails with a 5xx status and log5xxErrors is set.
func RequestLoggerMiddleware(logger log.Logger, enabled *atomic.Bool, slowQueriesThreshold time.Duration, log5xxErrors bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(HeaderRequestID)
			if reqID == "" {
				reqID = uuid.New()
			}
			w.Header().Set(HeaderRequestID, reqID)

			if !enabled.Load() && slowQueriesThreshold == 0 && !log5xxErrors {
				next.ServeHTTP(w, r)
				return
			}

			// the body can only be read once, hand a copy to the next handler
			var bodyBytes []byte
			if r.Body != nil {
				var err error
				bodyBytes, err = io.ReadAll(r.Body)
				if err != nil {
					logger.Warn("unexpected body read error", "err", err, "RequestID", reqID)
					http.Error(w, "unable to read request body", http.StatusBadRequest)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			}

			m := httpsnoop.CaptureMetrics(next, w, r)

			slow := slowQueriesThreshold > 0 && m.Duration > slowQueriesThreshold
			failed := log5xxErrors && m.Code >= http.StatusInternalServerError
			if enabled.Load() || slow || failed {
				logger.Info("API Request",
					"RequestID", reqID,
					"DurationMs", m.Duration.Milliseconds(),
					"Timestamp", time.Now().Unix(),
					"URI", r.URL.String(),
					"Method", r.Method,
					"Status", m.Code,
					"Body", string(bodyBytes),
				)
			}
		})
	}
}
