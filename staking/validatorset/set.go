// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package validatorset maintains the active and waiting validator sets.
//
// The active set holds the top scoring validators up to a configured
// limit, ordered by confirmed power with address bytes breaking ties.
// Everyone else with confirmed power waits in the waiting set. Every
// confirmed power change re-establishes that no waiting validator
// outranks an active one.
package validatorset

import (
	"math/big"

	"github.com/hiernet/subnet/staking/powerheap"
	"github.com/hiernet/subnet/staking/reverts"
	"github.com/hiernet/subnet/staking/stats"
	"github.com/hiernet/subnet/staking/validator"
	"github.com/hiernet/subnet/storage"
	"github.com/hiernet/subnet/subnet"
)

var (
	// active set min-heap, root is the weakest active member
	slotActiveSize  = subnet.BytesToBytes32([]byte("active-set-size"))
	slotActiveSlots = subnet.BytesToBytes32([]byte("active-set-slots"))
	slotActiveIndex = subnet.BytesToBytes32([]byte("active-set-index"))

	// waiting set max-heap, root is the strongest candidate
	slotWaitingSize  = subnet.BytesToBytes32([]byte("waiting-set-size"))
	slotWaitingSlots = subnet.BytesToBytes32([]byte("waiting-set-slots"))
	slotWaitingIndex = subnet.BytesToBytes32([]byte("waiting-set-index"))
)

type Set struct {
	limit uint64

	repo  *validator.Repository
	stats *stats.Service

	active  *powerheap.Queue
	waiting *powerheap.Queue
}

func New(sctx *storage.Context, repo *validator.Repository, stats *stats.Service, limit uint64) *Set {
	return &Set{
		limit: limit,
		repo:  repo,
		stats: stats,

		active:  powerheap.New(sctx, powerheap.Min, repo, slotActiveSize, slotActiveSlots, slotActiveIndex),
		waiting: powerheap.New(sctx, powerheap.Max, repo, slotWaitingSize, slotWaitingSlots, slotWaitingIndex),
	}
}

// Limit returns the maximum size of the active set.
func (s *Set) Limit() uint64 {
	return s.limit
}

// ConfirmDeposit raises the confirmed power of the address and places it
// in the active or waiting set according to its new rank.
func (s *Set) ConfirmDeposit(addr subnet.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.ErrInvalidAmount
	}

	entry, err := s.repo.Get(addr)
	if err != nil {
		return err
	}
	entry.ConfirmedPower.Add(entry.ConfirmedPower, amount)
	if err := s.repo.Set(addr, entry); err != nil {
		return err
	}
	if err := s.stats.AddConfirmed(amount); err != nil {
		return err
	}

	isActive, err := s.active.Contains(addr)
	if err != nil {
		return err
	}
	if isActive {
		if err := s.stats.AddActive(amount); err != nil {
			return err
		}
		return s.active.IncreaseReheapify(addr)
	}

	isWaiting, err := s.waiting.Contains(addr)
	if err != nil {
		return err
	}
	if isWaiting {
		if err := s.waiting.IncreaseReheapify(addr); err != nil {
			return err
		}
		return s.crossover()
	}

	return s.place(addr, entry.ConfirmedPower)
}

// ConfirmWithdraw lowers the confirmed power of the address, demoting or
// removing it once its rank no longer holds.
func (s *Set) ConfirmWithdraw(addr subnet.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.ErrInvalidAmount
	}

	exists, err := s.repo.Exists(addr)
	if err != nil {
		return err
	}
	if !exists {
		return reverts.ErrUnknownValidator
	}
	entry, err := s.repo.Get(addr)
	if err != nil {
		return err
	}
	if entry.ConfirmedPower.Cmp(amount) < 0 {
		return reverts.ErrInsufficientCollateral
	}
	entry.ConfirmedPower.Sub(entry.ConfirmedPower, amount)
	drained := entry.ConfirmedPower.Sign() == 0
	if err := s.repo.Set(addr, entry); err != nil {
		return err
	}
	if err := s.stats.SubConfirmed(amount); err != nil {
		return err
	}

	isActive, err := s.active.Contains(addr)
	if err != nil {
		return err
	}
	if isActive {
		if err := s.stats.SubActive(amount); err != nil {
			return err
		}
		if drained {
			if _, err := s.active.DeleteReheapify(addr); err != nil {
				return err
			}
			return s.refill()
		}
		if err := s.active.DecreaseReheapify(addr); err != nil {
			return err
		}
		return s.crossover()
	}

	isWaiting, err := s.waiting.Contains(addr)
	if err != nil {
		return err
	}
	if isWaiting {
		if drained {
			_, err := s.waiting.DeleteReheapify(addr)
			return err
		}
		return s.waiting.DecreaseReheapify(addr)
	}
	return nil
}

// SetMetadata replaces the metadata of a tracked validator.
func (s *Set) SetMetadata(addr subnet.Address, metadata []byte) error {
	exists, err := s.repo.Exists(addr)
	if err != nil {
		return err
	}
	if !exists {
		return reverts.ErrUnknownValidator
	}
	entry, err := s.repo.Get(addr)
	if err != nil {
		return err
	}
	entry.Metadata = metadata
	return s.repo.Set(addr, entry)
}

// IsActive returns whether the address sits in the active set.
func (s *Set) IsActive(addr subnet.Address) (bool, error) {
	return s.active.Contains(addr)
}

// IsWaiting returns whether the address sits in the waiting set.
func (s *Set) IsWaiting(addr subnet.Address) (bool, error) {
	return s.waiting.Contains(addr)
}

// ActiveCount returns the size of the active set.
func (s *Set) ActiveCount() (uint64, error) {
	return s.active.Size()
}

// WaitingCount returns the size of the waiting set.
func (s *Set) WaitingCount() (uint64, error) {
	return s.waiting.Size()
}

// ListActive returns the members of the active set in storage order.
func (s *Set) ListActive() ([]subnet.Address, error) {
	return s.active.List()
}

// ListWaiting returns the members of the waiting set in storage order.
func (s *Set) ListWaiting() ([]subnet.Address, error) {
	return s.waiting.List()
}

// place routes a newly powered address into the active set when a seat
// is free or its power beats the weakest active member, otherwise into
// the waiting set.
func (s *Set) place(addr subnet.Address, power *big.Int) error {
	if s.limit == 0 {
		return s.waiting.Insert(addr)
	}
	activeCount, err := s.active.Size()
	if err != nil {
		return err
	}
	if activeCount < s.limit {
		if err := s.active.Insert(addr); err != nil {
			return err
		}
		return s.stats.AddActive(power)
	}

	weakest, ok, err := s.active.Peek()
	if err != nil || !ok {
		return err
	}
	weakestPower, err := s.repo.PowerOf(weakest)
	if err != nil {
		return err
	}
	// ties keep the incumbent seated
	if power.Cmp(weakestPower) <= 0 {
		return s.waiting.Insert(addr)
	}

	if _, err := s.active.DeleteReheapify(weakest); err != nil {
		return err
	}
	if err := s.stats.SubActive(weakestPower); err != nil {
		return err
	}
	if err := s.waiting.Insert(weakest); err != nil {
		return err
	}
	if err := s.active.Insert(addr); err != nil {
		return err
	}
	return s.stats.AddActive(power)
}

// crossover swaps the strongest waiting validator with the weakest
// active one when the former strictly outranks the latter. A single
// power change can unseat at most one member, so one swap restores the
// set invariant.
func (s *Set) crossover() error {
	weakest, ok, err := s.active.Peek()
	if err != nil || !ok {
		return err
	}
	strongest, ok, err := s.waiting.Peek()
	if err != nil || !ok {
		return err
	}
	weakestPower, err := s.repo.PowerOf(weakest)
	if err != nil {
		return err
	}
	strongestPower, err := s.repo.PowerOf(strongest)
	if err != nil {
		return err
	}
	if strongestPower.Cmp(weakestPower) <= 0 {
		return nil
	}

	if _, err := s.active.DeleteReheapify(weakest); err != nil {
		return err
	}
	if _, err := s.waiting.DeleteReheapify(strongest); err != nil {
		return err
	}
	if err := s.active.Insert(strongest); err != nil {
		return err
	}
	if err := s.waiting.Insert(weakest); err != nil {
		return err
	}
	if err := s.stats.SubActive(weakestPower); err != nil {
		return err
	}
	return s.stats.AddActive(strongestPower)
}

// refill promotes the strongest waiting validator after an active seat
// was vacated.
func (s *Set) refill() error {
	activeCount, err := s.active.Size()
	if err != nil {
		return err
	}
	if activeCount >= s.limit {
		return nil
	}
	promoted, ok, err := s.waiting.Pop()
	if err != nil || !ok {
		return err
	}
	if err := s.active.Insert(promoted); err != nil {
		return err
	}
	power, err := s.repo.PowerOf(promoted)
	if err != nil {
		return err
	}
	return s.stats.AddActive(power)
}
