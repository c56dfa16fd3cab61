// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validator

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiernet/subnet/lvldb"
	"github.com/hiernet/subnet/storage"
	"github.com/hiernet/subnet/subnet"
)

func newTestRepository(t *testing.T) *Repository {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(storage.NewContext(db))
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	addr := subnet.BytesToAddress([]byte("validator-1"))

	// untracked address reads as empty, never nil
	entry, err := repo.Get(addr)
	require.NoError(t, err)
	assert.True(t, entry.IsEmpty())
	assert.Equal(t, 0, entry.ConfirmedPower.Sign())
	assert.Equal(t, 0, entry.PendingPower.Sign())

	exists, err := repo.Exists(addr)
	require.NoError(t, err)
	assert.False(t, exists)

	entry.ConfirmedPower = big.NewInt(100)
	entry.PendingPower = big.NewInt(150)
	entry.Metadata = []byte("meta")
	require.NoError(t, repo.Set(addr, entry))

	got, err := repo.Get(addr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), got.ConfirmedPower)
	assert.Equal(t, big.NewInt(150), got.PendingPower)
	assert.Equal(t, []byte("meta"), got.Metadata)

	power, err := repo.PowerOf(addr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), power)
}

func TestRepositoryRemovesEmptyEntries(t *testing.T) {
	repo := newTestRepository(t)
	addr := subnet.BytesToAddress([]byte("validator-2"))

	require.NoError(t, repo.Set(addr, &Validator{ConfirmedPower: big.NewInt(10)}))
	exists, err := repo.Exists(addr)
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, repo.Set(addr, &Validator{}))
	exists, err = repo.Exists(addr)
	require.NoError(t, err)
	assert.False(t, exists)

	count, err = repo.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	// clearing an untracked address stays a no-op
	require.NoError(t, repo.Set(addr, &Validator{}))
	count, err = repo.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestRepositoryPending(t *testing.T) {
	repo := newTestRepository(t)
	addr := subnet.BytesToAddress([]byte("validator-3"))

	require.NoError(t, repo.AddPending(addr, big.NewInt(100)))
	require.NoError(t, repo.AddPending(addr, big.NewInt(50)))

	entry, err := repo.Get(addr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(150), entry.PendingPower)

	require.NoError(t, repo.SubPending(addr, big.NewInt(60)))
	entry, err = repo.Get(addr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(90), entry.PendingPower)

	// clamped at zero, and the empty entry is dropped
	require.NoError(t, repo.SubPending(addr, big.NewInt(1000)))
	exists, err := repo.Exists(addr)
	require.NoError(t, err)
	assert.False(t, exists)
}
