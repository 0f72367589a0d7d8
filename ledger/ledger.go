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
	"fmt"

	"github.com/Fantom-foundation/Fidelio/backend/kvstore"
	"github.com/Fantom-foundation/Fidelio/common"
	"github.com/ethereum/go-ethereum/log"
)

// ErrDuplicateInclusion is returned when a block carries a transaction that
// has already been included at an earlier height.
const ErrDuplicateInclusion = common.ConstError("transaction already included")

// ErrNegativeBalance is returned when applying a block would drive an
// account's balance below zero.
const ErrNegativeBalance = common.ConstError("balance must not become negative")

// ErrUnknownVariant is returned when a transaction is neither a genesis seed
// nor a payment.
const ErrUnknownVariant = common.ConstError("unknown transaction variant")

// ErrCorrupted indicates the persistent state violates an internal invariant,
// e.g. a missing link of an account's history chain. It is not recoverable;
// the ledger refuses to produce misleading answers instead.
const ErrCorrupted = common.ConstError("ledger state corrupted")

// Parameters struct defining configuration parameters for ledger instances.
type Parameters struct {
	// Directory holding the persistent state. An empty directory selects a
	// non-persistent in-memory backend.
	Directory string
	// WriteBufferMB bounds the size of the uncommitted write buffer; zero
	// selects a default.
	WriteBufferMB int
}

// Ledger is a persistent, rollback-capable account-balance state machine for
// a linear chain of blocks. It maintains per-account balances, records which
// transactions have been included and at which height, validates candidate
// transaction batches, and can atomically roll back to any prior height.
//
// All mutations performed by one operation are published atomically; readers
// only ever observe committed state. Instances returned by Open are safe for
// concurrent use.
type Ledger interface {
	// ProcessBlock applies the given block on top of the current height.
	// On failure no state change is observable.
	ProcessBlock(block Block) error

	// RollbackTo reverts the ledger to the given height. Rolling back to the
	// current height is a no-op; rolling back to zero empties the state.
	RollbackTo(height common.Height) error

	// Balance provides the balance of the given account at the current height.
	// Accounts never touched have balance zero.
	Balance(address common.Address) (uint64, error)

	// BalanceAt provides the balance the given account had at the given height.
	BalanceAt(address common.Address, height common.Height) (uint64, error)

	// BalanceWithConfirmations provides the balance of the account as of the
	// given number of blocks before the current height.
	BalanceWithConfirmations(address common.Address, confirmations uint32) (uint64, error)

	// Included reports the height at which the transaction with the given
	// fingerprint was included, if it was.
	Included(fp common.Fingerprint) (common.Height, bool, error)

	// IncludedBefore is Included restricted to heights below the given
	// exclusive upper bound.
	IncludedBefore(fp common.Fingerprint, upperBound common.Height) (common.Height, bool, error)

	// Validate returns the largest subset of the candidates that can be
	// jointly applied on top of the current height: authorship-correct,
	// statically valid, not yet included, and driving no sender negative.
	// The returned transactions keep their input order.
	Validate(candidates []Transaction) ([]Transaction, error)

	// ValidateAt is Validate against the state at the given height.
	ValidateAt(candidates []Transaction, height common.Height) ([]Transaction, error)

	// AccountTransactions lists all payments ever touching the given account,
	// newest first.
	AccountTransactions(address common.Address) ([]Transaction, error)

	// Accounts lists all accounts ever touched, in address order.
	Accounts() ([]common.Address, error)

	// StateHeight reports the height of the last applied block.
	StateHeight() (common.Height, error)

	// TotalBalance sums the balances of all accounts at the current height.
	TotalBalance() (uint64, error)

	// Hash provides a stable fingerprint of the current non-zero balances,
	// for diagnostics and test equivalence. It is not a commitment.
	Hash() (int32, error)

	// Close releases the underlying store. The ledger must not be used
	// afterwards.
	Close() error
}

// Open opens a ledger over the store in the given directory, creating the
// store if needed. Uncommitted leftovers of a crashed run are discarded,
// restoring the last committed state.
func Open(params Parameters) (Ledger, error) {
	store, err := kvstore.Open(params.Directory, params.WriteBufferMB)
	if err != nil {
		return nil, err
	}
	ledger := &persistentLedger{
		store: store,
		log:   log.New("module", "ledger"),
	}
	height, err := ledger.stateHeight()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	ledger.log.Info("ledger opened", "directory", params.Directory, "height", height)
	return wrapIntoSyncedLedger(ledger), nil
}
