// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package powerheap provides a storage-backed indexed binary heap of
// validator addresses ordered by their power.
package powerheap

import (
	"bytes"
	"math/big"

	"github.com/hiernet/subnet/storage"
	"github.com/hiernet/subnet/subnet"
)

// Kind selects the heap ordering.
type Kind uint8

const (
	// Min keeps the lowest power at the root. The active set uses it to
	// find its weakest member.
	Min Kind = iota
	// Max keeps the highest power at the root. The waiting set uses it to
	// find its strongest candidate.
	Max
)

// PowerSource resolves the current power of an address. The heap never
// caches powers, so ordering always follows the source of truth.
type PowerSource interface {
	PowerOf(addr subnet.Address) (*big.Int, error)
}

// Queue is an indexed heap over storage slots. Positions are 1-based,
// position 0 in the index marks an absent member.
type Queue struct {
	kind   Kind
	source PowerSource

	size  *storage.Uint64
	slots *storage.Mapping[storage.Uint64Key, subnet.Address]
	index *storage.Mapping[subnet.Address, uint64]
}

func New(sctx *storage.Context, kind Kind, source PowerSource, slotSize, slotSlots, slotIndex subnet.Bytes32) *Queue {
	return &Queue{
		kind:   kind,
		source: source,
		size:   storage.NewUint64(sctx, slotSize),
		slots:  storage.NewMapping[storage.Uint64Key, subnet.Address](sctx, slotSlots),
		index:  storage.NewMapping[subnet.Address, uint64](sctx, slotIndex),
	}
}

// Size returns the number of members.
func (q *Queue) Size() (uint64, error) {
	return q.size.Get()
}

// Contains returns whether the address is a member.
func (q *Queue) Contains(addr subnet.Address) (bool, error) {
	pos, err := q.index.Get(addr)
	if err != nil {
		return false, err
	}
	return pos != 0, nil
}

// Peek returns the root member without removing it.
func (q *Queue) Peek() (subnet.Address, bool, error) {
	n, err := q.size.Get()
	if err != nil || n == 0 {
		return subnet.Address{}, false, err
	}
	root, err := q.at(1)
	if err != nil {
		return subnet.Address{}, false, err
	}
	return root, true, nil
}

// Insert adds a new member and restores heap order.
// Inserting an existing member is a no-op.
func (q *Queue) Insert(addr subnet.Address) error {
	pos, err := q.index.Get(addr)
	if err != nil {
		return err
	}
	if pos != 0 {
		return nil
	}
	n, err := q.size.Get()
	if err != nil {
		return err
	}
	n++
	if err := q.setAt(n, addr); err != nil {
		return err
	}
	if err := q.size.Set(n); err != nil {
		return err
	}
	return q.siftUp(n)
}

// Pop removes and returns the root member.
func (q *Queue) Pop() (subnet.Address, bool, error) {
	root, ok, err := q.Peek()
	if err != nil || !ok {
		return subnet.Address{}, false, err
	}
	if _, err := q.DeleteReheapify(root); err != nil {
		return subnet.Address{}, false, err
	}
	return root, true, nil
}

// DeleteReheapify removes the member, swapping the last slot into its
// place and restoring heap order in both directions.
func (q *Queue) DeleteReheapify(addr subnet.Address) (bool, error) {
	pos, err := q.index.Get(addr)
	if err != nil {
		return false, err
	}
	if pos == 0 {
		return false, nil
	}
	n, err := q.size.Get()
	if err != nil {
		return false, err
	}
	if pos != n {
		last, err := q.at(n)
		if err != nil {
			return false, err
		}
		if err := q.setAt(pos, last); err != nil {
			return false, err
		}
	}
	if err := q.slots.Delete(storage.Uint64Key(n)); err != nil {
		return false, err
	}
	if err := q.index.Delete(addr); err != nil {
		return false, err
	}
	if err := q.size.Set(n - 1); err != nil {
		return false, err
	}
	if pos < n {
		if err := q.siftUp(pos); err != nil {
			return false, err
		}
		if err := q.siftDown(pos); err != nil {
			return false, err
		}
	}
	return true, nil
}

// IncreaseReheapify restores heap order after the member's power increased.
// An absent member is a no-op.
func (q *Queue) IncreaseReheapify(addr subnet.Address) error {
	pos, err := q.index.Get(addr)
	if err != nil {
		return err
	}
	if pos == 0 {
		return nil
	}
	if q.kind == Max {
		return q.siftUp(pos)
	}
	return q.siftDown(pos)
}

// DecreaseReheapify restores heap order after the member's power decreased.
// An absent member is a no-op.
func (q *Queue) DecreaseReheapify(addr subnet.Address) error {
	pos, err := q.index.Get(addr)
	if err != nil {
		return err
	}
	if pos == 0 {
		return nil
	}
	if q.kind == Max {
		return q.siftDown(pos)
	}
	return q.siftUp(pos)
}

// List returns the members in slot order, which is heap order, not
// sorted order.
func (q *Queue) List() ([]subnet.Address, error) {
	n, err := q.size.Get()
	if err != nil {
		return nil, err
	}
	members := make([]subnet.Address, 0, n)
	for pos := uint64(1); pos <= n; pos++ {
		addr, err := q.at(pos)
		if err != nil {
			return nil, err
		}
		members = append(members, addr)
	}
	return members, nil
}

func (q *Queue) at(pos uint64) (subnet.Address, error) {
	return q.slots.Get(storage.Uint64Key(pos))
}

func (q *Queue) setAt(pos uint64, addr subnet.Address) error {
	if err := q.slots.Set(storage.Uint64Key(pos), addr); err != nil {
		return err
	}
	return q.index.Set(addr, pos)
}

// before reports whether a belongs closer to the root than b. Equal
// powers fall back to the address bytes so ordering is total and every
// replica resolves ties the same way.
func (q *Queue) before(a, b subnet.Address) (bool, error) {
	pa, err := q.source.PowerOf(a)
	if err != nil {
		return false, err
	}
	pb, err := q.source.PowerOf(b)
	if err != nil {
		return false, err
	}
	cmp := pa.Cmp(pb)
	if cmp == 0 {
		cmp = bytes.Compare(a.Bytes(), b.Bytes())
	}
	if q.kind == Max {
		return cmp > 0, nil
	}
	return cmp < 0, nil
}

func (q *Queue) swap(i, j uint64) error {
	a, err := q.at(i)
	if err != nil {
		return err
	}
	b, err := q.at(j)
	if err != nil {
		return err
	}
	if err := q.setAt(i, b); err != nil {
		return err
	}
	return q.setAt(j, a)
}

func (q *Queue) siftUp(pos uint64) error {
	for pos > 1 {
		parent := pos / 2
		child, err := q.at(pos)
		if err != nil {
			return err
		}
		above, err := q.at(parent)
		if err != nil {
			return err
		}
		better, err := q.before(child, above)
		if err != nil {
			return err
		}
		if !better {
			return nil
		}
		if err := q.swap(pos, parent); err != nil {
			return err
		}
		pos = parent
	}
	return nil
}

func (q *Queue) siftDown(pos uint64) error {
	n, err := q.size.Get()
	if err != nil {
		return err
	}
	for {
		best := pos
		for _, child := range []uint64{2 * pos, 2*pos + 1} {
			if child > n {
				break
			}
			childAddr, err := q.at(child)
			if err != nil {
				return err
			}
			bestAddr, err := q.at(best)
			if err != nil {
				return err
			}
			better, err := q.before(childAddr, bestAddr)
			if err != nil {
				return err
			}
			if better {
				best = child
			}
		}
		if best == pos {
			return nil
		}
		if err := q.swap(pos, best); err != nil {
			return err
		}
		pos = best
	}
}
