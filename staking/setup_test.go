// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"encoding/binary"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiernet/subnet/lvldb"
	"github.com/hiernet/subnet/subnet"
)

func newTestEngine(t *testing.T, activeLimit uint64) *Staking {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, activeLimit)
}

func testAddr(i uint64) subnet.Address {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], i)
	return subnet.BytesToAddress(subnet.Blake2b(raw[:]).Bytes())
}

type TestFunc func(t *testing.T)

type TestSequence struct {
	engine *Staking

	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(engine *Staking) *TestSequence {
	return &TestSequence{funcs: make([]TestFunc, 0), engine: engine}
}

func (ts *TestSequence) AddFunc(f TestFunc) *TestSequence {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.funcs = append(ts.funcs, f)
	return ts
}

func (ts *TestSequence) ConfirmDeposit(addr subnet.Address, amount *big.Int) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if err := ts.engine.ConfirmDeposit(addr, amount); err != nil {
			t.Fatalf("failed to confirm deposit for %s: %v", addr, err)
		}
	})
}

func (ts *TestSequence) ConfirmWithdraw(addr subnet.Address, amount *big.Int) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if err := ts.engine.ConfirmWithdraw(addr, amount); err != nil {
			t.Fatalf("failed to confirm withdraw for %s: %v", addr, err)
		}
	})
}

func (ts *TestSequence) Bootstrap() *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if err := ts.engine.Bootstrap(); err != nil {
			t.Fatalf("failed to bootstrap: %v", err)
		}
	})
}

func (ts *TestSequence) Deposit(addr subnet.Address, amount *big.Int, wantNumber uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		number, err := ts.engine.Deposit(addr, amount)
		if err != nil {
			t.Fatalf("failed to queue deposit for %s: %v", addr, err)
		}
		if number != wantNumber {
			t.Fatalf("deposit for %s got configuration number %d, want %d", addr, number, wantNumber)
		}
	})
}

func (ts *TestSequence) Withdraw(addr subnet.Address, amount *big.Int, wantNumber uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		number, err := ts.engine.Withdraw(addr, amount)
		if err != nil {
			t.Fatalf("failed to queue withdraw for %s: %v", addr, err)
		}
		if number != wantNumber {
			t.Fatalf("withdraw for %s got configuration number %d, want %d", addr, number, wantNumber)
		}
	})
}

func (ts *TestSequence) ConfirmChange(upTo uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if err := ts.engine.ConfirmChange(upTo); err != nil {
			t.Fatalf("failed to confirm changes up to %d: %v", upTo, err)
		}
	})
}

func (ts *TestSequence) Run(t *testing.T) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for _, f := range ts.funcs {
		f(t)
	}
}

type ValidatorAssertions struct {
	engine *Staking
	addr   subnet.Address

	confirmed *big.Int
	pending   *big.Int
	metadata  []byte
	active    *bool
	waiting   *bool
}

func AssertValidator(engine *Staking, addr subnet.Address) *ValidatorAssertions {
	return &ValidatorAssertions{engine: engine, addr: addr}
}

func (va *ValidatorAssertions) Confirmed(expected *big.Int) *ValidatorAssertions {
	va.confirmed = expected
	return va
}

func (va *ValidatorAssertions) Pending(expected *big.Int) *ValidatorAssertions {
	va.pending = expected
	return va
}

func (va *ValidatorAssertions) Metadata(expected []byte) *ValidatorAssertions {
	va.metadata = expected
	return va
}

func (va *ValidatorAssertions) Active(expected bool) *ValidatorAssertions {
	va.active = &expected
	return va
}

func (va *ValidatorAssertions) Waiting(expected bool) *ValidatorAssertions {
	va.waiting = &expected
	return va
}

func (va *ValidatorAssertions) Assert(t *testing.T) {
	entry, err := va.engine.GetValidator(va.addr)
	assert.NoError(t, err, "failed to get validator %s", va.addr)

	if va.confirmed != nil {
		assert.Zero(t, va.confirmed.Cmp(entry.ConfirmedPower),
			"validator %s confirmed power mismatch: want %s, got %s", va.addr, va.confirmed, entry.ConfirmedPower)
	}

	if va.pending != nil {
		assert.Zero(t, va.pending.Cmp(entry.PendingPower),
			"validator %s pending power mismatch: want %s, got %s", va.addr, va.pending, entry.PendingPower)
	}

	if va.metadata != nil {
		assert.Equal(t, va.metadata, entry.Metadata, "validator %s metadata mismatch", va.addr)
	}

	if va.active != nil {
		isActive, err := va.engine.IsActiveValidator(va.addr)
		assert.NoError(t, err)
		assert.Equal(t, *va.active, isActive, "validator %s active membership mismatch", va.addr)
	}

	if va.waiting != nil {
		isWaiting, err := va.engine.IsWaitingValidator(va.addr)
		assert.NoError(t, err)
		assert.Equal(t, *va.waiting, isWaiting, "validator %s waiting membership mismatch", va.addr)
	}
}
