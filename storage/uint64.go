// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"encoding/binary"

	"github.com/hiernet/subnet/subnet"
)

// Uint64 is a slot view over a counter. A cleared slot reads as zero.
type Uint64 struct {
	context *Context
	pos     subnet.Bytes32
}

func NewUint64(context *Context, pos subnet.Bytes32) *Uint64 {
	return &Uint64{context: context, pos: pos}
}

func (u *Uint64) Get() (uint64, error) {
	raw, err := u.context.Get(u.pos)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (u *Uint64) Set(value uint64) error {
	if value == 0 {
		return u.context.Put(u.pos, nil)
	}
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], value)
	return u.context.Put(u.pos, raw[:])
}

// Uint64Key adapts a counter value for use as a mapping key.
type Uint64Key uint64

func (k Uint64Key) Bytes() []byte {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], uint64(k))
	return raw[:]
}
