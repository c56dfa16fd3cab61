// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validator

import (
	"math/big"

	"github.com/hiernet/subnet/storage"
	"github.com/hiernet/subnet/subnet"
)

var (
	slotEntries = subnet.BytesToBytes32([]byte("validator-entries"))
	slotCount   = subnet.BytesToBytes32([]byte("validator-count"))
)

// Repository persists validator entries keyed by address and tracks
// how many addresses are registered.
type Repository struct {
	entries *storage.Mapping[subnet.Address, *Validator]
	count   *storage.Uint64
}

func NewRepository(sctx *storage.Context) *Repository {
	return &Repository{
		entries: storage.NewMapping[subnet.Address, *Validator](sctx, slotEntries),
		count:   storage.NewUint64(sctx, slotCount),
	}
}

// Count returns the number of tracked validators.
func (r *Repository) Count() (uint64, error) {
	return r.count.Get()
}

// Get returns the entry for the given address. An untracked address
// returns an empty entry, never nil.
func (r *Repository) Get(addr subnet.Address) (*Validator, error) {
	entry, err := r.entries.Get(addr)
	if err != nil {
		return nil, err
	}
	entry.normalize()
	return entry, nil
}

// Set stores the entry, removing it from the registry once empty.
// The validator count follows the entry lifecycle.
func (r *Repository) Set(addr subnet.Address, entry *Validator) error {
	entry.normalize()
	existed, err := r.entries.Has(addr)
	if err != nil {
		return err
	}
	if entry.IsEmpty() {
		if !existed {
			return nil
		}
		count, err := r.count.Get()
		if err != nil {
			return err
		}
		if err := r.count.Set(count - 1); err != nil {
			return err
		}
		return r.entries.Delete(addr)
	}
	if !existed {
		count, err := r.count.Get()
		if err != nil {
			return err
		}
		if err := r.count.Set(count + 1); err != nil {
			return err
		}
	}
	return r.entries.Set(addr, entry)
}

// Exists returns whether the address is tracked.
func (r *Repository) Exists(addr subnet.Address) (bool, error) {
	return r.entries.Has(addr)
}

// PowerOf returns the confirmed power of the given address.
// Heaps order their members through this accessor so rank always
// reflects the registry, never a cached copy.
func (r *Repository) PowerOf(addr subnet.Address) (*big.Int, error) {
	entry, err := r.Get(addr)
	if err != nil {
		return nil, err
	}
	return entry.ConfirmedPower, nil
}

// AddPending raises the pending power of the given address.
func (r *Repository) AddPending(addr subnet.Address, amount *big.Int) error {
	entry, err := r.Get(addr)
	if err != nil {
		return err
	}
	entry.PendingPower.Add(entry.PendingPower, amount)
	return r.Set(addr, entry)
}

// SubPending lowers the pending power of the given address, clamping
// at zero so replaying a confirmed withdraw never underflows.
func (r *Repository) SubPending(addr subnet.Address, amount *big.Int) error {
	entry, err := r.Get(addr)
	if err != nil {
		return err
	}
	if entry.PendingPower.Cmp(amount) < 0 {
		entry.PendingPower.SetInt64(0)
	} else {
		entry.PendingPower.Sub(entry.PendingPower, amount)
	}
	return r.Set(addr, entry)
}
