// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"context"

	"github.com/dealerhq/dealer/ledger"
)

// Ledger is the part of the ledger the health check reads.
type Ledger interface {
	Snapshot() *ledger.Snapshot
}

// EventStore is the event history kept next to the ledger.
type EventStore interface {
	LastSeq(ctx context.Context) (uint64, error)
}

type Status struct {
	Healthy   bool   `json:"healthy"`
	Phase     string `json:"phase"`
	LedgerSeq uint64 `json:"ledgerSeq"`
	StoredSeq uint64 `json:"storedSeq"`
	Error     string `json:"error,omitempty"`
}

// Health reports whether the event history has kept up with the ledger.
// A stored sequence behind the ledger means events failed to persist.
type Health struct {
	ledger Ledger
	store  EventStore
}

func New(ledger Ledger, store EventStore) *Health {
	return &Health{
		ledger: ledger,
		store:  store,
	}
}

func (h *Health) Status(ctx context.Context) *Status {
	snap := h.ledger.Snapshot()
	status := &Status{
		Phase:     snap.Phase.String(),
		LedgerSeq: snap.LastSeq,
	}
	stored, err := h.store.LastSeq(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.StoredSeq = stored
	status.Healthy = stored == snap.LastSeq
	return status
}
