// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package changelog queues deferred staking changes for two-phase
// confirmation. Each submitted change receives a configuration number,
// and confirming up to a number applies and discards every queued
// change at or below it, in submission order.
package changelog

import (
	"math/big"

	"github.com/hiernet/subnet/storage"
	"github.com/hiernet/subnet/subnet"
)

// Kind discriminates queued change payloads.
type Kind uint8

const (
	SetMetadata Kind = iota + 1
	IncreasePower
	DecreasePower
)

// Change is a single queued staking change.
type Change struct {
	Validator subnet.Address
	Kind      Kind
	Amount    *big.Int
	Metadata  []byte
}

var (
	slotRecords = subnet.BytesToBytes32([]byte("changelog-records"))
	slotNext    = subnet.BytesToBytes32([]byte("changelog-next"))
	slotStart   = subnet.BytesToBytes32([]byte("changelog-start"))
)

// Service persists the queue. Configuration numbers start at 1 and only
// ever grow, so a cleared counter slot reads as the initial state.
type Service struct {
	records *storage.Mapping[storage.Uint64Key, *Change]
	next    *storage.Uint64
	start   *storage.Uint64
}

func New(sctx *storage.Context) *Service {
	return &Service{
		records: storage.NewMapping[storage.Uint64Key, *Change](sctx, slotRecords),
		next:    storage.NewUint64(sctx, slotNext),
		start:   storage.NewUint64(sctx, slotStart),
	}
}

// Numbers returns the oldest queued configuration number and the number
// the next submission will receive. start == next means an empty queue.
func (s *Service) Numbers() (start, next uint64, err error) {
	start, err = s.start.Get()
	if err != nil {
		return 0, 0, err
	}
	next, err = s.next.Get()
	if err != nil {
		return 0, 0, err
	}
	if start == 0 {
		start = 1
	}
	if next == 0 {
		next = 1
	}
	return start, next, nil
}

// Append queues a change and returns its configuration number.
func (s *Service) Append(change *Change) (uint64, error) {
	if change.Amount == nil {
		change.Amount = new(big.Int)
	}
	_, next, err := s.Numbers()
	if err != nil {
		return 0, err
	}
	if err := s.records.Set(storage.Uint64Key(next), change); err != nil {
		return 0, err
	}
	if err := s.next.Set(next + 1); err != nil {
		return 0, err
	}
	return next, nil
}

// Replay applies every queued change with a configuration number at or
// below upTo, oldest first, discarding each applied record. Numbers at
// or beyond the next submission clamp to the end of the queue, numbers
// below the oldest queued change are a no-op. The start marker advances
// record by record, so a failed apply keeps the remaining queue intact.
func (s *Service) Replay(upTo uint64, apply func(*Change) error) (uint64, error) {
	start, next, err := s.Numbers()
	if err != nil {
		return 0, err
	}
	if upTo >= next {
		upTo = next - 1
	}
	if upTo == 0 || upTo < start {
		return 0, nil
	}

	var applied uint64
	for number := start; number <= upTo; number++ {
		change, err := s.records.Get(storage.Uint64Key(number))
		if err != nil {
			return applied, err
		}
		if err := apply(change); err != nil {
			return applied, err
		}
		if err := s.records.Delete(storage.Uint64Key(number)); err != nil {
			return applied, err
		}
		if err := s.start.Set(number + 1); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}
