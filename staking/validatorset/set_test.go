// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validatorset

import (
	"encoding/binary"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiernet/subnet/lvldb"
	"github.com/hiernet/subnet/staking/reverts"
	"github.com/hiernet/subnet/staking/stats"
	"github.com/hiernet/subnet/staking/validator"
	"github.com/hiernet/subnet/storage"
	"github.com/hiernet/subnet/subnet"
)

func testAddr(i uint64) subnet.Address {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], i)
	return subnet.BytesToAddress(subnet.Blake2b(raw[:]).Bytes())
}

func newTestSet(t *testing.T, limit uint64) (*Set, *validator.Repository) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sctx := storage.NewContext(db)
	repo := validator.NewRepository(sctx)
	return New(sctx, repo, stats.New(sctx), limit), repo
}

func TestDepositFillsActiveSet(t *testing.T) {
	set, repo := newTestSet(t, 3)

	for i := uint64(0); i < 3; i++ {
		require.NoError(t, set.ConfirmDeposit(testAddr(i), big.NewInt(int64(100+i))))
	}

	activeCount, err := set.ActiveCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), activeCount)

	waitingCount, err := set.WaitingCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), waitingCount)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestStrongerJoinEvictsWeakest(t *testing.T) {
	set, _ := newTestSet(t, 2)

	weak := testAddr(1)
	require.NoError(t, set.ConfirmDeposit(weak, big.NewInt(100)))
	require.NoError(t, set.ConfirmDeposit(testAddr(2), big.NewInt(200)))
	require.NoError(t, set.ConfirmDeposit(testAddr(3), big.NewInt(300)))

	isActive, err := set.IsActive(weak)
	require.NoError(t, err)
	assert.False(t, isActive)

	isWaiting, err := set.IsWaiting(weak)
	require.NoError(t, err)
	assert.True(t, isWaiting)

	isActive, err = set.IsActive(testAddr(3))
	require.NoError(t, err)
	assert.True(t, isActive)
}

func TestEqualPowerKeepsIncumbent(t *testing.T) {
	set, _ := newTestSet(t, 1)

	incumbent := testAddr(1)
	challenger := testAddr(2)
	require.NoError(t, set.ConfirmDeposit(incumbent, big.NewInt(100)))
	require.NoError(t, set.ConfirmDeposit(challenger, big.NewInt(100)))

	isActive, err := set.IsActive(incumbent)
	require.NoError(t, err)
	assert.True(t, isActive)

	isWaiting, err := set.IsWaiting(challenger)
	require.NoError(t, err)
	assert.True(t, isWaiting)
}

func TestWaitingDepositPromotes(t *testing.T) {
	set, _ := newTestSet(t, 1)

	first := testAddr(1)
	second := testAddr(2)
	require.NoError(t, set.ConfirmDeposit(first, big.NewInt(100)))
	require.NoError(t, set.ConfirmDeposit(second, big.NewInt(50)))

	// second tops up past first and takes the seat
	require.NoError(t, set.ConfirmDeposit(second, big.NewInt(100)))

	isActive, err := set.IsActive(second)
	require.NoError(t, err)
	assert.True(t, isActive)

	isWaiting, err := set.IsWaiting(first)
	require.NoError(t, err)
	assert.True(t, isWaiting)
}

func TestWithdrawDemotesWeakened(t *testing.T) {
	set, _ := newTestSet(t, 1)

	seated := testAddr(1)
	candidate := testAddr(2)
	require.NoError(t, set.ConfirmDeposit(seated, big.NewInt(200)))
	require.NoError(t, set.ConfirmDeposit(candidate, big.NewInt(150)))

	require.NoError(t, set.ConfirmWithdraw(seated, big.NewInt(100)))

	isActive, err := set.IsActive(candidate)
	require.NoError(t, err)
	assert.True(t, isActive)

	isWaiting, err := set.IsWaiting(seated)
	require.NoError(t, err)
	assert.True(t, isWaiting)
}

func TestFullWithdrawRefillsSeat(t *testing.T) {
	set, repo := newTestSet(t, 1)

	seated := testAddr(1)
	candidate := testAddr(2)
	require.NoError(t, set.ConfirmDeposit(seated, big.NewInt(200)))
	require.NoError(t, set.ConfirmDeposit(candidate, big.NewInt(150)))

	require.NoError(t, set.ConfirmWithdraw(seated, big.NewInt(200)))

	exists, err := repo.Exists(seated)
	require.NoError(t, err)
	assert.False(t, exists)

	isActive, err := set.IsActive(candidate)
	require.NoError(t, err)
	assert.True(t, isActive)

	waitingCount, err := set.WaitingCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), waitingCount)
}

func TestWithdrawReverts(t *testing.T) {
	set, _ := newTestSet(t, 1)
	addr := testAddr(1)

	err := set.ConfirmWithdraw(addr, big.NewInt(10))
	assert.ErrorIs(t, err, reverts.ErrUnknownValidator)

	require.NoError(t, set.ConfirmDeposit(addr, big.NewInt(100)))

	err = set.ConfirmWithdraw(addr, big.NewInt(101))
	assert.ErrorIs(t, err, reverts.ErrInsufficientCollateral)

	err = set.ConfirmWithdraw(addr, big.NewInt(0))
	assert.ErrorIs(t, err, reverts.ErrInvalidAmount)

	err = set.ConfirmDeposit(addr, new(big.Int).Neg(big.NewInt(5)))
	assert.ErrorIs(t, err, reverts.ErrInvalidAmount)

	// failed operations leave the set untouched
	isActive, err := set.IsActive(addr)
	require.NoError(t, err)
	assert.True(t, isActive)
}

func TestSetMetadata(t *testing.T) {
	set, repo := newTestSet(t, 1)
	addr := testAddr(1)

	err := set.SetMetadata(addr, []byte("key"))
	assert.ErrorIs(t, err, reverts.ErrUnknownValidator)

	require.NoError(t, set.ConfirmDeposit(addr, big.NewInt(100)))
	require.NoError(t, set.SetMetadata(addr, []byte("key")))

	entry, err := repo.Get(addr)
	require.NoError(t, err)
	assert.Equal(t, []byte("key"), entry.Metadata)

	require.NoError(t, set.SetMetadata(addr, nil))
	entry, err = repo.Get(addr)
	require.NoError(t, err)
	assert.Empty(t, entry.Metadata)
}

func TestRandomOperationsHoldInvariants(t *testing.T) {
	const limit = 8
	set, repo := newTestSet(t, limit)
	rng := rand.New(rand.NewSource(7))

	mirror := make(map[subnet.Address]*big.Int)
	addrs := make([]subnet.Address, 40)
	for i := range addrs {
		addrs[i] = testAddr(uint64(i))
	}

	for step := 0; step < 500; step++ {
		addr := addrs[rng.Intn(len(addrs))]
		power := mirror[addr]
		if power == nil {
			power = new(big.Int)
		}

		if rng.Intn(2) == 0 || power.Sign() == 0 {
			amount := big.NewInt(int64(rng.Intn(1000) + 1))
			require.NoError(t, set.ConfirmDeposit(addr, amount))
			mirror[addr] = new(big.Int).Add(power, amount)
		} else {
			amount := new(big.Int).Rand(rng, power)
			amount.Add(amount, big.NewInt(1)) // within (0, power]
			require.NoError(t, set.ConfirmWithdraw(addr, amount))
			remaining := new(big.Int).Sub(power, amount)
			if remaining.Sign() == 0 {
				delete(mirror, addr)
			} else {
				mirror[addr] = remaining
			}
		}

		assertInvariants(t, set, repo, mirror, limit)
	}
}

func assertInvariants(t *testing.T, set *Set, repo *validator.Repository, mirror map[subnet.Address]*big.Int, limit uint64) {
	t.Helper()

	tracked := uint64(len(mirror))
	count, err := repo.Count()
	require.NoError(t, err)
	require.Equal(t, tracked, count)

	activeCount, err := set.ActiveCount()
	require.NoError(t, err)
	want := tracked
	if want > limit {
		want = limit
	}
	require.Equal(t, want, activeCount)

	waitingCount, err := set.WaitingCount()
	require.NoError(t, err)
	require.Equal(t, tracked-want, waitingCount)

	active, err := set.ListActive()
	require.NoError(t, err)
	waiting, err := set.ListWaiting()
	require.NoError(t, err)

	// no waiting member outranks an active one
	minActive := (*big.Int)(nil)
	for _, addr := range active {
		if minActive == nil || mirror[addr].Cmp(minActive) < 0 {
			minActive = mirror[addr]
		}
	}
	for _, addr := range waiting {
		if minActive != nil {
			require.True(t, mirror[addr].Cmp(minActive) <= 0,
				"waiting member must not outrank the weakest active member")
		}
	}
}
