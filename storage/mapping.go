// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/hiernet/subnet/subnet"
)

type Key interface {
	Bytes() []byte
}

// Mapping is a key/value slot view, similar to the mapping in Solidity.
// Each entry lives in its own slot derived from the key and the mapping's base position.
type Mapping[K Key, V any] struct {
	context *Context
	basePos subnet.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos subnet.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) subnet.Bytes32 {
	return subnet.Blake2b(key.Bytes(), m.basePos.Bytes())
}

// Get decodes the entry for the given key. An absent entry decodes as the zero
// value, with pointer kinds allocated so callers never see a nil dereference.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	raw, err := m.context.Get(m.position(key))
	if err != nil {
		return value, err
	}
	if reflect.ValueOf(&value).Elem().Kind() == reflect.Ptr {
		value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
	}
	if len(raw) == 0 {
		return value, nil
	}
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return value, errors.Wrap(err, "decode mapping entry")
	}
	return value, nil
}

// Set encodes the entry for the given key. A nil pointer value clears the entry.
func (m *Mapping[K, V]) Set(key K, value V) error {
	rv := reflect.ValueOf(&value).Elem()
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return m.Delete(key)
	}
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return errors.Wrap(err, "encode mapping entry")
	}
	return m.context.Put(m.position(key), raw)
}

// Delete clears the entry for the given key.
func (m *Mapping[K, V]) Delete(key K) error {
	return m.context.Put(m.position(key), nil)
}

// Has returns whether an entry exists for the given key.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	raw, err := m.context.Get(m.position(key))
	if err != nil {
		return false, err
	}
	return len(raw) > 0, nil
}
