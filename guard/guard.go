// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package guard

import (
	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/reverts"
)

// Role is a privileged role. Only RoleOwner exists.
type Role uint8

const RoleOwner Role = 1

// ErrNotAuthorized is the single canonical authorization failure.
var ErrNotAuthorized = reverts.New(reverts.KindNotAuthorized, "Dealer: caller is not authorized")

// Guard decides whether a caller may invoke a mutating operation.
type Guard struct {
	owner dealer.Address
}

// New creates a guard for the given owner. The owner is immutable.
func New(owner dealer.Address) *Guard {
	return &Guard{owner: owner}
}

// Owner returns the owner identity.
func (g *Guard) Owner() dealer.Address {
	return g.owner
}

// Authorize returns ErrNotAuthorized unless caller holds role.
func (g *Guard) Authorize(caller dealer.Address, role Role) error {
	if role != RoleOwner || caller != g.owner {
		return ErrNotAuthorized
	}
	return nil
}
