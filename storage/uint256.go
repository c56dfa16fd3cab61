// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/hiernet/subnet/subnet"
)

// Uint256 is a slot view over an unsigned big integer, stored as its
// minimal big-endian bytes. A cleared slot reads as zero.
type Uint256 struct {
	context *Context
	pos     subnet.Bytes32
}

func NewUint256(context *Context, pos subnet.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: pos}
}

func (u *Uint256) Get() (*big.Int, error) {
	raw, err := u.context.Get(u.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

func (u *Uint256) Set(value *big.Int) error {
	return u.context.Put(u.pos, value.Bytes())
}

func (u *Uint256) Add(value *big.Int) error {
	stored, err := u.Get()
	if err != nil {
		return err
	}
	stored.Add(stored, value)
	return u.Set(stored)
}

// Sub subtracts value from the stored total. Unlike unchecked integer math
// a result below zero is reported instead of wrapped.
func (u *Uint256) Sub(value *big.Int) error {
	stored, err := u.Get()
	if err != nil {
		return err
	}
	if stored.Cmp(value) < 0 {
		return errors.New("uint256 underflow")
	}
	stored.Sub(stored, value)
	return u.Set(stored)
}
