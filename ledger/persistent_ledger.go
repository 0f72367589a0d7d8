// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ledger

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Fidelio/backend"
	"github.com/Fantom-foundation/Fidelio/backend/kvstore"
	"github.com/Fantom-foundation/Fidelio/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/crypto/sha3"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	addressSerializer common.AddressSerializer
	heightSerializer  common.HeightSerializer
	balanceSerializer common.BalanceSerializer

	// heightMarkerDbKey is the singleton key holding the current state height.
	heightMarkerDbKey = backend.ToDBKey(backend.HeightMarkerKey, []byte("height"))
)

// persistentLedger implements the Ledger over a transactional key-value
// store. Four table spaces hold the state: the height marker, the per-account
// head pointers, the per-account change records keyed by (address, height),
// and the inclusion index keyed by transaction fingerprint.
//
// The struct is not synchronized; Open wraps it into a syncedLedger.
type persistentLedger struct {
	store *kvstore.Store
	log   log.Logger
}

func lastChangeDbKey(address common.Address) backend.DbKey {
	return backend.ToDBKey(backend.LastChangeKey, address[:])
}

func changeRecordDbKey(address common.Address, height common.Height) backend.DbKey {
	key := make([]byte, 0, common.AddressSize+heightSerializer.Size())
	key = append(key, address[:]...)
	key = append(key, heightSerializer.ToBytes(height)...)
	return backend.ToDBKey(backend.ChangeRecordKey, key)
}

func includedDbKey(fp common.Fingerprint) backend.DbKey {
	return backend.ToDBKey(backend.IncludedKey, fp[:])
}

func (s *persistentLedger) stateHeight() (common.Height, error) {
	data, err := s.store.Get(heightMarkerDbKey.ToBytes(), nil)
	if err == kvstore.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read height marker: %w", err)
	}
	if len(data) != heightSerializer.Size() {
		return 0, fmt.Errorf("%w: height marker has %d bytes", ErrCorrupted, len(data))
	}
	return heightSerializer.FromBytes(data), nil
}

// lastChangeHeight provides the height of the most recent change record of
// the given account, zero if the account was never touched.
func (s *persistentLedger) lastChangeHeight(address common.Address) (common.Height, error) {
	data, err := s.store.Get(lastChangeDbKey(address).ToBytes(), nil)
	if err == kvstore.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read last change of %s: %w", address, err)
	}
	if len(data) != heightSerializer.Size() {
		return 0, fmt.Errorf("%w: last change of %s has %d bytes", ErrCorrupted, address, len(data))
	}
	return heightSerializer.FromBytes(data), nil
}

// changeRecord reads the change record of the given account at the given
// height. A missing record is a broken chain link and reported as corruption.
func (s *persistentLedger) changeRecord(address common.Address, height common.Height) (*ChangeRecord, error) {
	data, err := s.store.Get(changeRecordDbKey(address, height).ToBytes(), nil)
	if err == kvstore.ErrNotFound {
		return nil, fmt.Errorf("%w: missing change record of %s at height %d", ErrCorrupted, address, height)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read change record of %s at height %d: %w", address, height, err)
	}
	return decodeChangeRecord(data)
}

// balanceAt walks the account's history chain backwards and returns the
// balance of the first record at or below the given height.
func (s *persistentLedger) balanceAt(address common.Address, height common.Height) (uint64, error) {
	current, err := s.lastChangeHeight(address)
	if err != nil {
		return 0, err
	}
	for current > 0 {
		record, err := s.changeRecord(address, current)
		if err != nil {
			return 0, err
		}
		if current <= height {
			if record.State.Balance < 0 {
				return 0, fmt.Errorf("%w: negative balance of %s at height %d", ErrCorrupted, address, current)
			}
			return uint64(record.State.Balance), nil
		}
		if record.PrevHeight >= current {
			return 0, fmt.Errorf("%w: non-decreasing chain link of %s at height %d", ErrCorrupted, address, current)
		}
		current = record.PrevHeight
	}
	return 0, nil
}

func (s *persistentLedger) Balance(address common.Address) (uint64, error) {
	height, err := s.stateHeight()
	if err != nil {
		return 0, err
	}
	return s.balanceAt(address, height)
}

func (s *persistentLedger) BalanceAt(address common.Address, height common.Height) (uint64, error) {
	return s.balanceAt(address, height)
}

func (s *persistentLedger) BalanceWithConfirmations(address common.Address, confirmations uint32) (uint64, error) {
	height, err := s.stateHeight()
	if err != nil {
		return 0, err
	}
	at := common.Height(1)
	if height > confirmations+1 {
		at = height - confirmations
	}
	return s.balanceAt(address, at)
}

// inclusionHeight reads the inclusion index entry of the given fingerprint.
func (s *persistentLedger) inclusionHeight(fp common.Fingerprint) (common.Height, bool, error) {
	data, err := s.store.Get(includedDbKey(fp).ToBytes(), nil)
	if err == kvstore.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read inclusion of %s: %w", fp, err)
	}
	if len(data) != heightSerializer.Size() {
		return 0, false, fmt.Errorf("%w: inclusion of %s has %d bytes", ErrCorrupted, fp, len(data))
	}
	return heightSerializer.FromBytes(data), true, nil
}

func (s *persistentLedger) Included(fp common.Fingerprint) (common.Height, bool, error) {
	return s.inclusionHeight(fp)
}

func (s *persistentLedger) IncludedBefore(fp common.Fingerprint, upperBound common.Height) (common.Height, bool, error) {
	height, found, err := s.inclusionHeight(fp)
	if err != nil || !found || height >= upperBound {
		return 0, false, err
	}
	return height, true, nil
}

// workingChange accumulates the balance and reasons of one account while a
// block is folded.
type workingChange struct {
	balance int64
	reason  []ReasonItem
}

func (s *persistentLedger) ProcessBlock(block Block) error {
	if err := s.processBlock(block); err != nil {
		// nothing has been committed; drop the in-flight writes
		if derr := s.store.Discard(); derr != nil {
			return errors.Join(err, derr)
		}
		return err
	}
	return nil
}

func (s *persistentLedger) processBlock(block Block) error {
	height, err := s.stateHeight()
	if err != nil {
		return err
	}
	transactions := block.Transactions()

	// no transaction may be included twice, neither across blocks nor within
	seen := make(map[common.Fingerprint]struct{}, len(transactions))
	for _, tx := range transactions {
		fp := tx.Fingerprint()
		if _, duplicate := seen[fp]; duplicate {
			return fmt.Errorf("%w: %s", ErrDuplicateInclusion, fp)
		}
		seen[fp] = struct{}{}
		if _, included, err := s.inclusionHeight(fp); err != nil {
			return err
		} else if included {
			return fmt.Errorf("%w: %s", ErrDuplicateInclusion, fp)
		}
	}

	working := make(map[common.Address]*workingChange)
	touch := func(address common.Address) (*workingChange, error) {
		if change, exists := working[address]; exists {
			return change, nil
		}
		balance, err := s.balanceAt(address, height)
		if err != nil {
			return nil, err
		}
		change := &workingChange{balance: int64(balance)}
		working[address] = change
		return change, nil
	}

	// seed the working map with the block's fee distribution
	feeDistribution, err := block.ConsensusModule().FeeDistribution(block)
	if err != nil {
		return fmt.Errorf("failed to obtain fee distribution: %w", err)
	}
	for _, address := range sortedAddresses(maps.Keys(feeDistribution)) {
		change, err := touch(address)
		if err != nil {
			return err
		}
		fee := feeDistribution[address]
		change.balance += int64(fee)
		change.reason = append(change.reason, FeeCredit{Amount: fee})
	}

	// fold the transaction deltas, keeping per-account reasons newest first
	for _, tx := range transactions {
		item, supported := tx.(ReasonItem)
		if !supported {
			return fmt.Errorf("%w: %T", ErrUnknownVariant, tx)
		}
		touched := make(map[common.Address]struct{}, 2)
		for _, delta := range tx.BalanceChanges() {
			change, err := touch(delta.Account)
			if err != nil {
				return err
			}
			change.balance += delta.Delta
			if _, done := touched[delta.Account]; !done {
				touched[delta.Account] = struct{}{}
				change.reason = append([]ReasonItem{item}, change.reason...)
			}
		}
	}

	// no account may be driven below zero
	affected := sortedAddresses(maps.Keys(working))
	for _, address := range affected {
		if working[address].balance < 0 {
			return fmt.Errorf("%w: account %s", ErrNegativeBalance, address)
		}
	}

	// append one height worth of change records and publish
	next := height + 1
	if err := s.store.Put(heightMarkerDbKey.ToBytes(), heightSerializer.ToBytes(next), nil); err != nil {
		return err
	}
	for _, address := range affected {
		change := working[address]
		previous, err := s.lastChangeHeight(address)
		if err != nil {
			return err
		}
		record := &ChangeRecord{
			State:      AccountState{Balance: change.balance},
			Reason:     change.reason,
			PrevHeight: previous,
		}
		data, err := encodeChangeRecord(record)
		if err != nil {
			return err
		}
		if err := s.store.Put(changeRecordDbKey(address, next).ToBytes(), data, nil); err != nil {
			return err
		}
		if err := s.store.Put(lastChangeDbKey(address).ToBytes(), heightSerializer.ToBytes(next), nil); err != nil {
			return err
		}
		for _, tx := range record.Transactions() {
			if err := s.store.Put(includedDbKey(tx.Fingerprint()).ToBytes(), heightSerializer.ToBytes(next), nil); err != nil {
				return err
			}
		}
	}
	if err := s.store.Commit(); err != nil {
		return err
	}
	s.log.Debug("block applied", "height", next, "transactions", len(transactions))
	return nil
}

func (s *persistentLedger) RollbackTo(height common.Height) error {
	if err := s.rollbackTo(height); err != nil {
		if derr := s.store.Discard(); derr != nil {
			return errors.Join(err, derr)
		}
		return err
	}
	return nil
}

func (s *persistentLedger) rollbackTo(target common.Height) error {
	height, err := s.stateHeight()
	if err != nil {
		return err
	}
	if target >= height {
		return nil
	}
	accounts, err := s.Accounts()
	if err != nil {
		return err
	}
	for _, address := range accounts {
		head, err := s.lastChangeHeight(address)
		if err != nil {
			return err
		}
		current := head
		for current > target {
			record, err := s.changeRecord(address, current)
			if err != nil {
				return err
			}
			if err := s.store.Delete(changeRecordDbKey(address, current).ToBytes(), nil); err != nil {
				return err
			}
			for _, tx := range record.Transactions() {
				if err := s.store.Delete(includedDbKey(tx.Fingerprint()).ToBytes(), nil); err != nil {
					return err
				}
			}
			if record.PrevHeight >= current {
				return fmt.Errorf("%w: non-decreasing chain link of %s at height %d", ErrCorrupted, address, current)
			}
			current = record.PrevHeight
		}
		if current == head {
			continue
		}
		if current == 0 {
			if err := s.store.Delete(lastChangeDbKey(address).ToBytes(), nil); err != nil {
				return err
			}
		} else {
			if err := s.store.Put(lastChangeDbKey(address).ToBytes(), heightSerializer.ToBytes(current), nil); err != nil {
				return err
			}
		}
	}
	if err := s.store.Put(heightMarkerDbKey.ToBytes(), heightSerializer.ToBytes(target), nil); err != nil {
		return err
	}
	if err := s.store.Commit(); err != nil {
		return err
	}
	s.log.Info("rolled back", "from", height, "to", target)
	return nil
}

func (s *persistentLedger) AccountTransactions(address common.Address) ([]Transaction, error) {
	current, err := s.lastChangeHeight(address)
	if err != nil {
		return nil, err
	}
	var transactions []Transaction
	for current > 0 {
		record, err := s.changeRecord(address, current)
		if err != nil {
			return nil, err
		}
		for _, tx := range record.Transactions() {
			if tx.Type() == PaymentType {
				transactions = append(transactions, tx)
			}
		}
		if record.PrevHeight >= current {
			return nil, fmt.Errorf("%w: non-decreasing chain link of %s at height %d", ErrCorrupted, address, current)
		}
		current = record.PrevHeight
	}
	return transactions, nil
}

// Accounts lists all accounts ever touched. The list is in address order, as
// the underlying table is iterated in key order.
func (s *persistentLedger) Accounts() ([]common.Address, error) {
	iter := s.store.NewIterator(backend.TableRange(backend.LastChangeKey), nil)
	defer iter.Release()
	var accounts []common.Address
	for iter.Next() {
		accounts = append(accounts, addressSerializer.FromBytes(iter.Key()[1:]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

func (s *persistentLedger) StateHeight() (common.Height, error) {
	return s.stateHeight()
}

func (s *persistentLedger) TotalBalance() (uint64, error) {
	height, err := s.stateHeight()
	if err != nil {
		return 0, err
	}
	accounts, err := s.Accounts()
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, address := range accounts {
		balance, err := s.balanceAt(address, height)
		if err != nil {
			return 0, err
		}
		total += balance
	}
	return total, nil
}

// Hash fingerprints the sorted non-zero balances of the current height.
func (s *persistentLedger) Hash() (int32, error) {
	height, err := s.stateHeight()
	if err != nil {
		return 0, err
	}
	accounts, err := s.Accounts()
	if err != nil {
		return 0, err
	}
	hasher := sha3.NewLegacyKeccak256()
	for _, address := range accounts {
		balance, err := s.balanceAt(address, height)
		if err != nil {
			return 0, err
		}
		if balance == 0 {
			continue
		}
		hasher.Write(address[:])
		hasher.Write(balanceSerializer.ToBytes(balance))
	}
	sum := hasher.Sum(nil)
	return int32(binary.BigEndian.Uint32(sum[:4])), nil
}

func (s *persistentLedger) Close() error {
	s.log.Info("ledger closed")
	return s.store.Close()
}

func sortedAddresses(addresses []common.Address) []common.Address {
	slices.SortFunc(addresses, func(a, b common.Address) bool {
		return bytes.Compare(a[:], b[:]) < 0
	})
	return addresses
}
