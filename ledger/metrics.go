// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/metrics"
	"github.com/dealerhq/dealer/reverts"
)

var (
	metricOpsCount     = metrics.LazyLoadCounterVec("ledger_ops_count", []string{"op", "result"})
	metricLockedAmount = metrics.LazyLoadGauge("ledger_locked_amount")
	metricPhase        = metrics.LazyLoadGauge("ledger_phase")
)

func observeOp(op string, err error) {
	result := "ok"
	if err != nil {
		if reverts.IsRevertErr(err) {
			result = "revert"
		} else {
			result = "error"
		}
	}
	metricOpsCount().AddWithLabel(1, map[string]string{"op": op, "result": result})
}

func observeState(r *record) {
	metricLockedAmount().Set(dealer.WholeTokens(r.Locked).Int64())
	metricPhase().Set(int64(r.Phase))
}
