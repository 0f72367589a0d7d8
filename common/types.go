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

import (
	"encoding/hex"
	"hash"
)

// AddressSize is the size of an account address.
const AddressSize = 20

// Address is an account address - an opaque identifier of a balance-holding
// account. Two addresses are the same account iff their bytes are equal.
type Address [AddressSize]byte

// FingerprintSize is the size of a transaction fingerprint.
const FingerprintSize = 64

// Fingerprint uniquely identifies a transaction. For signed transactions the
// signature itself serves as the fingerprint.
type Fingerprint [FingerprintSize]byte

// HashSize is the byte length of a cryptographic hash.
const HashSize = 32

// Hash is a cryptographic hash value.
type Hash [HashSize]byte

// Height labels an applied block. Height 0 is the pre-genesis empty state,
// applying the genesis block yields height 1.
type Height = uint32

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// GetHash computes the hash of the given data using the given hashing algorithm.
func GetHash(h hash.Hash, data []byte) (res Hash) {
	h.Reset()
	h.Write(data)
	copy(res[:], h.Sum(nil)[:])
	return
}
