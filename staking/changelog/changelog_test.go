// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package changelog

import (
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiernet/subnet/lvldb"
	"github.com/hiernet/subnet/storage"
	"github.com/hiernet/subnet/subnet"
)

func newTestService(t *testing.T) *Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(storage.NewContext(db))
}

func TestNumbersStartAtOne(t *testing.T) {
	s := newTestService(t)

	start, next, err := s.Numbers()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), start)
	assert.Equal(t, uint64(1), next)
}

func TestAppendAssignsSequentialNumbers(t *testing.T) {
	s := newTestService(t)
	addr := subnet.BytesToAddress([]byte("validator-1"))

	for want := uint64(1); want <= 3; want++ {
		got, err := s.Append(&Change{Validator: addr, Kind: IncreasePower, Amount: big.NewInt(10)})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	start, next, err := s.Numbers()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), start)
	assert.Equal(t, uint64(4), next)
}

func TestReplayAppliesInOrderAndDiscards(t *testing.T) {
	s := newTestService(t)
	addr := subnet.BytesToAddress([]byte("validator-1"))

	_, err := s.Append(&Change{Validator: addr, Kind: IncreasePower, Amount: big.NewInt(1)})
	require.NoError(t, err)
	_, err = s.Append(&Change{Validator: addr, Kind: DecreasePower, Amount: big.NewInt(2)})
	require.NoError(t, err)
	_, err = s.Append(&Change{Validator: addr, Kind: SetMetadata, Metadata: []byte("meta")})
	require.NoError(t, err)

	var seen []Kind
	applied, err := s.Replay(2, func(c *Change) error {
		seen = append(seen, c.Kind)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), applied)
	assert.Equal(t, []Kind{IncreasePower, DecreasePower}, seen)

	start, next, err := s.Numbers()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), start)
	assert.Equal(t, uint64(4), next)

	// replaying the same number again is a no-op
	applied, err = s.Replay(2, func(*Change) error {
		t.Fatal("must not re-apply discarded changes")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), applied)
}

func TestReplayClampsToQueueEnd(t *testing.T) {
	s := newTestService(t)
	addr := subnet.BytesToAddress([]byte("validator-1"))

	_, err := s.Append(&Change{Validator: addr, Kind: SetMetadata, Metadata: []byte("a")})
	require.NoError(t, err)

	applied, err := s.Replay(1_000_000, func(c *Change) error {
		assert.Equal(t, []byte("a"), c.Metadata)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), applied)

	start, next, err := s.Numbers()
	require.NoError(t, err)
	assert.Equal(t, next, start)
}

func TestReplayZeroIsNoop(t *testing.T) {
	s := newTestService(t)
	addr := subnet.BytesToAddress([]byte("validator-1"))

	_, err := s.Append(&Change{Validator: addr, Kind: IncreasePower, Amount: big.NewInt(1)})
	require.NoError(t, err)

	applied, err := s.Replay(0, func(*Change) error {
		t.Fatal("must not apply anything")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), applied)
}

func TestReplayStopsOnApplyError(t *testing.T) {
	s := newTestService(t)
	addr := subnet.BytesToAddress([]byte("validator-1"))

	for i := 0; i < 3; i++ {
		_, err := s.Append(&Change{Validator: addr, Kind: IncreasePower, Amount: big.NewInt(int64(i + 1))})
		require.NoError(t, err)
	}

	fault := errors.New("apply fault")
	applied, err := s.Replay(3, func(c *Change) error {
		if c.Amount.Int64() == 2 {
			return fault
		}
		return nil
	})
	assert.ErrorIs(t, err, fault)
	assert.Equal(t, uint64(1), applied)

	// the failed record and everything after it stay queued
	start, next, err := s.Numbers()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), start)
	assert.Equal(t, uint64(4), next)
}
