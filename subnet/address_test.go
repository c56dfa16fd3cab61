// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	require.NoError(t, err)
	assert.Equal(t, "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", addr.String())

	_, err = ParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed00")
	assert.Error(t, err)

	_, err = ParseAddress("zz67d83b7b8d80addcb281a71d54fc7b3364ffed")
	assert.Error(t, err)

	noPrefix, err := ParseAddress("7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	require.NoError(t, err)
	assert.Equal(t, *addr, *noPrefix)
}

func TestBytesToAddress(t *testing.T) {
	assert.Equal(t, Address{}, BytesToAddress(nil))
	assert.True(t, BytesToAddress(nil).IsZero())

	addr := BytesToAddress([]byte{1})
	assert.False(t, addr.IsZero())
	assert.Equal(t, byte(1), addr[AddressLength-1])
}
