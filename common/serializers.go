// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import "encoding/binary"

// Serializer allows to convert the type to a slice of bytes and back
type Serializer[T any] interface {
	// ToBytes serialize the type to bytes
	ToBytes(T) []byte
	// FromBytes deserialize the type from bytes
	FromBytes([]byte) T
	// Size provides the size of the type when serialized (bytes)
	Size() int
}

// AddressSerializer is a Serializer of the Address type
type AddressSerializer struct{}

func (a AddressSerializer) ToBytes(address Address) []byte {
	return address[:]
}
func (a AddressSerializer) FromBytes(bytes []byte) Address {
	var address Address
	copy(address[:], bytes)
	return address
}
func (a AddressSerializer) Size() int {
	return AddressSize
}

// FingerprintSerializer is a Serializer of the Fingerprint type
type FingerprintSerializer struct{}

func (a FingerprintSerializer) ToBytes(fp Fingerprint) []byte {
	return fp[:]
}
func (a FingerprintSerializer) FromBytes(bytes []byte) Fingerprint {
	var fp Fingerprint
	copy(fp[:], bytes)
	return fp
}
func (a FingerprintSerializer) Size() int {
	return FingerprintSize
}

// HeightSerializer is a Serializer of the Height type.
// Heights are serialized big-endian so that iterating a key range visits
// records in height order.
type HeightSerializer struct{}

func (a HeightSerializer) ToBytes(height Height) []byte {
	bytes := make([]byte, 4)
	binary.BigEndian.PutUint32(bytes, height)
	return bytes
}
func (a HeightSerializer) FromBytes(bytes []byte) Height {
	return binary.BigEndian.Uint32(bytes)
}
func (a HeightSerializer) Size() int {
	return 4
}

// BalanceSerializer is a Serializer of account balances
type BalanceSerializer struct{}

func (a BalanceSerializer) ToBytes(balance uint64) []byte {
	bytes := make([]byte, 8)
	binary.BigEndian.PutUint64(bytes, balance)
	return bytes
}
func (a BalanceSerializer) FromBytes(bytes []byte) uint64 {
	return binary.BigEndian.Uint64(bytes)
}
func (a BalanceSerializer) Size() int {
	return 8
}

// HashSerializer is a Serializer of the Hash type
type HashSerializer struct{}

func (a HashSerializer) ToBytes(hash Hash) []byte {
	return hash[:]
}
func (a HashSerializer) FromBytes(bytes []byte) Hash {
	var hash Hash
	copy(hash[:], bytes)
	return hash
}
func (a HashSerializer) Size() int {
	return HashSize
}
