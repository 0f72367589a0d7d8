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
	"sync"

	"github.com/Fantom-foundation/Fidelio/common"
)

// syncedLedger wraps a ledger implementation with a lock restricting the
// number of concurrent accesses to one for the underlying ledger. Mutations
// are thereby serialized and readers only observe committed state.
type syncedLedger struct {
	ledger Ledger
	mu     sync.Mutex
}

// wrapIntoSyncedLedger wraps the given ledger into a synchronized ledger
// ensuring mutual exclusive access to the underlying ledger.
func wrapIntoSyncedLedger(ledger Ledger) Ledger {
	if _, ok := ledger.(*syncedLedger); ok {
		return ledger
	}
	return &syncedLedger{ledger: ledger}
}

func (s *syncedLedger) ProcessBlock(block Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ProcessBlock(block)
}

func (s *syncedLedger) RollbackTo(height common.Height) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.RollbackTo(height)
}

func (s *syncedLedger) Balance(address common.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balance(address)
}

func (s *syncedLedger) BalanceAt(address common.Address, height common.Height) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.BalanceAt(address, height)
}

func (s *syncedLedger) BalanceWithConfirmations(address common.Address, confirmations uint32) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.BalanceWithConfirmations(address, confirmations)
}

func (s *syncedLedger) Included(fp common.Fingerprint) (common.Height, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Included(fp)
}

func (s *syncedLedger) IncludedBefore(fp common.Fingerprint, upperBound common.Height) (common.Height, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.IncludedBefore(fp, upperBound)
}

func (s *syncedLedger) Validate(candidates []Transaction) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Validate(candidates)
}

func (s *syncedLedger) ValidateAt(candidates []Transaction, height common.Height) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ValidateAt(candidates, height)
}

func (s *syncedLedger) AccountTransactions(address common.Address) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.AccountTransactions(address)
}

func (s *syncedLedger) Accounts() ([]common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Accounts()
}

func (s *syncedLedger) StateHeight() (common.Height, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.StateHeight()
}

func (s *syncedLedger) TotalBalance() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.TotalBalance()
}

func (s *syncedLedger) Hash() (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Hash()
}

func (s *syncedLedger) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Close()
}
