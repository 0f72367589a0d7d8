// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package backend

import (
	"fmt"

	"github.com/Fantom-foundation/Fidelio/common"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// TableSpace divide key-value storage into spaces by adding a prefix to the key.
type TableSpace byte

const (
	// HeightMarkerKey is a tablespace for the singleton state height marker
	HeightMarkerKey TableSpace = 'H'
	// LastChangeKey is a tablespace mapping each account address to the height
	// of its most recent change record
	LastChangeKey TableSpace = 'L'
	// ChangeRecordKey is a tablespace for per-account change records keyed by
	// address and height
	ChangeRecordKey TableSpace = 'C'
	// IncludedKey is a tablespace mapping transaction fingerprints to the
	// height at which they were first included
	IncludedKey TableSpace = 'I'
)

// DbKey expects the table prefix byte plus at most a fingerprint-sized key,
// the largest key stored (change record keys are address plus height).
type DbKey []byte

func (d DbKey) ToBytes() []byte {
	return d
}

// ToDBKey converts the input key to its respective table space key
func ToDBKey(t TableSpace, key []byte) DbKey {
	if len(key) > common.FingerprintSize {
		panic(fmt.Sprintf("input key does not fit into dbkey: %d > %d", len(key), common.FingerprintSize))
	}
	dbKey := make(DbKey, 0, len(key)+1)
	dbKey = append(dbKey, byte(t))
	dbKey = append(dbKey, key...)
	return dbKey
}

// TableRange provides the key range covering the whole given table space.
func TableRange(t TableSpace) *util.Range {
	return util.BytesPrefix([]byte{byte(t)})
}

// LevelDB is an interface missing in original LevelDB design.
// It contains methods common for the LevelDB instance and its Transactions.
// It allows for easy switching between transactional and non-transactional accesses.
type LevelDB interface {
	LevelDBReader

	// Put sets the value for the given key. It overwrites any previous value
	// for that key; a DB is not a multi-map.
	//
	// It is safe to modify the contents of the arguments after Put returns.
	Put(key, value []byte, wo *opt.WriteOptions) error

	// Delete deletes the value for the given key.
	//
	// It is safe to modify the contents of the arguments after Delete returns.
	Delete(key []byte, wo *opt.WriteOptions) error
}

// LevelDBReader is an interface missing in original LevelDB design.
// It contains methods common for the LevelDB instance and its Snapshots.
type LevelDBReader interface {
	// Get gets the value for the given key. It returns ErrNotFound if the
	// DB does not contain the key.
	//
	// The returned slice is its own copy, it is safe to modify the contents
	// of the returned slice.
	// It is safe to modify the contents of the argument after Get returns.
	Get(key []byte, ro *opt.ReadOptions) (value []byte, err error)

	// Has returns true if the DB does contain the given key.
	//
	// It is safe to modify the contents of the argument after Has returns.
	Has(key []byte, ro *opt.ReadOptions) (bool, error)

	// NewIterator returns an iterator over the latest state of the underlying
	// DB. The returned iterator is not safe for concurrent use.
	//
	// Slice allows slicing the iterator to only contains keys in the given
	// range. A nil Range.Start is treated as a key before all keys in the
	// DB. And a nil Range.Limit is treated as a key after all keys in
	// the DB.
	//
	// The iterator must be released after use, by calling Release method.
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}
