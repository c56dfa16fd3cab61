// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stats

import (
	"math/big"

	"github.com/hiernet/subnet/storage"
	"github.com/hiernet/subnet/subnet"
)

var (
	slotConfirmedPower = subnet.BytesToBytes32([]byte("total-confirmed-power"))
	slotActivePower    = subnet.BytesToBytes32([]byte("total-active-power"))
	slotPendingPower   = subnet.BytesToBytes32([]byte("total-pending-power"))
)

// Service manages engine-wide staking totals.
// Tracks confirmed power across all validators, the share held by the
// active set, and pending power awaiting confirmation.
type Service struct {
	confirmedPower *storage.Uint256
	activePower    *storage.Uint256
	pendingPower   *storage.Uint256
}

func New(sctx *storage.Context) *Service {
	return &Service{
		confirmedPower: storage.NewUint256(sctx, slotConfirmedPower),
		activePower:    storage.NewUint256(sctx, slotActivePower),
		pendingPower:   storage.NewUint256(sctx, slotPendingPower),
	}
}

// ConfirmedPower returns the confirmed power held by all tracked validators.
func (s *Service) ConfirmedPower() (*big.Int, error) {
	return s.confirmedPower.Get()
}

// ActivePower returns the confirmed power held by the active set.
func (s *Service) ActivePower() (*big.Int, error) {
	return s.activePower.Get()
}

// PendingPower returns the power submitted but not yet confirmed,
// including the confirmed share.
func (s *Service) PendingPower() (*big.Int, error) {
	return s.pendingPower.Get()
}

func (s *Service) AddConfirmed(amount *big.Int) error {
	return s.confirmedPower.Add(amount)
}

func (s *Service) SubConfirmed(amount *big.Int) error {
	return s.confirmedPower.Sub(amount)
}

func (s *Service) AddActive(amount *big.Int) error {
	return s.activePower.Add(amount)
}

func (s *Service) SubActive(amount *big.Int) error {
	return s.activePower.Sub(amount)
}

func (s *Service) AddPending(amount *big.Int) error {
	return s.pendingPower.Add(amount)
}

// SubPending lowers the pending total, clamping at zero to mirror the
// per-validator pending bookkeeping.
func (s *Service) SubPending(amount *big.Int) error {
	pending, err := s.pendingPower.Get()
	if err != nil {
		return err
	}
	if pending.Cmp(amount) < 0 {
		return s.pendingPower.Set(new(big.Int))
	}
	return s.pendingPower.Sub(amount)
}
