// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validator

import (
	"math/big"
)

// Validator is the registry entry for a single staker.
type Validator struct {
	ConfirmedPower *big.Int // power backing the validator's current rank
	PendingPower   *big.Int // power submitted but not yet confirmed, includes ConfirmedPower
	Metadata       []byte   // opaque network metadata, e.g. a public key or multiaddr
}

// IsEmpty returns whether the entry can be treated as empty.
func (v *Validator) IsEmpty() bool {
	return v.ConfirmedPower.Sign() == 0 && v.PendingPower.Sign() == 0 && len(v.Metadata) == 0
}

func (v *Validator) normalize() {
	if v.ConfirmedPower == nil {
		v.ConfirmedPower = new(big.Int)
	}
	if v.PendingPower == nil {
		v.PendingPower = new(big.Int)
	}
}
