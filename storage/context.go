// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"github.com/pkg/errors"

	"github.com/hiernet/subnet/kv"
	"github.com/hiernet/subnet/subnet"
)

// Context scopes the storage slots of a staking engine instance to a key/value store.
// All typed slot views (Mapping, Uint256, Uint64) read and write through it.
type Context struct {
	store kv.GetPutter
}

func NewContext(store kv.GetPutter) *Context {
	return &Context{store: store}
}

// Get reads the raw content of a slot. A missing slot reads as empty.
func (c *Context) Get(pos subnet.Bytes32) ([]byte, error) {
	raw, err := c.store.Get(pos.Bytes())
	if err != nil {
		if c.store.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get storage slot")
	}
	return raw, nil
}

// Put writes the raw content of a slot. Empty content clears the slot.
func (c *Context) Put(pos subnet.Bytes32, raw []byte) error {
	if len(raw) == 0 {
		if err := c.store.Delete(pos.Bytes()); err != nil {
			return errors.Wrap(err, "clear storage slot")
		}
		return nil
	}
	if err := c.store.Put(pos.Bytes(), raw); err != nil {
		return errors.Wrap(err, "put storage slot")
	}
	return nil
}
