// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"log/slog"
	"sync/atomic"

	"github.com/dealerhq/dealer/api/admin"
	"github.com/dealerhq/dealer/api/admin/health"
)

func NewAdminServer(
	addr string,
	logLevel *slog.LevelVar,
	apiLogs *atomic.Bool,
	health *health.Health,
) (*Server, error) {
	return listen("admin API", addr, "/admin", admin.New(logLevel, apiLogs, health))
}
