// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kvstore

import (
	"fmt"

	"github.com/Fantom-foundation/Fidelio/backend"
	"github.com/Fantom-foundation/Fidelio/common"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrClosed is returned by all operations on a store that has been closed.
const ErrClosed = common.ConstError("kvstore already closed")

// ErrNotFound is returned by Get when the store does not contain the key.
var ErrNotFound = leveldb.ErrNotFound

// DefaultWriteBufferMB is the size of the uncommitted-write buffer used when
// the caller does not configure one.
const DefaultWriteBufferMB = 128

// Store is a single-owner, transactional key-value store over one LevelDB
// instance. All writes are buffered in an open LevelDB transaction and become
// durable only when Commit is called; Discard drops everything written since
// the last commit. Reads observe the buffered writes.
//
// A store left uncommitted by a crashed process recovers to its last
// committed snapshot on the next Open, as LevelDB never publishes an
// unfinished transaction.
type Store struct {
	db     *leveldb.DB
	tx     *leveldb.Transaction
	closed bool
}

var _ backend.LevelDB = (*Store)(nil)

// Open opens the store in the given directory, creating it if needed.
// An empty directory name selects a non-persistent in-memory backend.
func Open(directory string, writeBufferMB int) (*Store, error) {
	if writeBufferMB <= 0 {
		writeBufferMB = DefaultWriteBufferMB
	}
	opts := &opt.Options{WriteBuffer: writeBufferMB * opt.MiB}

	var db *leveldb.DB
	var err error
	if directory == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), opts)
	} else {
		db, err = leveldb.OpenFile(directory, opts)
		if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
			db, err = leveldb.RecoverFile(directory, opts)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open kvstore: %w", err)
	}

	tx, err := db.OpenTransaction()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open kvstore transaction: %w", err)
	}
	return &Store{db: db, tx: tx}, nil
}

// Get gets the value for the given key, observing uncommitted writes.
// It returns ErrNotFound if the store does not contain the key.
func (s *Store) Get(key []byte, ro *opt.ReadOptions) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.tx.Get(key, ro)
}

// Has returns true if the store does contain the given key.
func (s *Store) Has(key []byte, ro *opt.ReadOptions) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	return s.tx.Has(key, ro)
}

// NewIterator returns an iterator over the given key range, observing
// uncommitted writes. The iterator must be released after use.
func (s *Store) NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator {
	return s.tx.NewIterator(slice, ro)
}

// Put buffers a write of the given key-value pair.
func (s *Store) Put(key, value []byte, wo *opt.WriteOptions) error {
	if s.closed {
		return ErrClosed
	}
	return s.tx.Put(key, value, wo)
}

// Delete buffers a removal of the given key.
func (s *Store) Delete(key []byte, wo *opt.WriteOptions) error {
	if s.closed {
		return ErrClosed
	}
	return s.tx.Delete(key, wo)
}

// Commit durably publishes all writes buffered since the last commit and
// starts a new uncommitted transaction.
func (s *Store) Commit() error {
	if s.closed {
		return ErrClosed
	}
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit kvstore transaction: %w", err)
	}
	return s.reopen()
}

// Discard drops all writes buffered since the last commit and starts a new
// uncommitted transaction.
func (s *Store) Discard() error {
	if s.closed {
		return ErrClosed
	}
	s.tx.Discard()
	return s.reopen()
}

func (s *Store) reopen() error {
	tx, err := s.db.OpenTransaction()
	if err != nil {
		s.closed = true
		_ = s.db.Close()
		return fmt.Errorf("failed to reopen kvstore transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Close drops uncommitted writes and releases the underlying database.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.tx.Discard()
	return s.db.Close()
}
