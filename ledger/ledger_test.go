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
	"crypto/ed25519"
	"errors"
	"fmt"
	"testing"

	"github.com/Fantom-foundation/Fidelio/common"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

const genesisAmount = 1_000_000

// senderFeeConsensus credits each payment's fee back to its sender. It keeps
// the system closed, which makes balance expectations easy to state.
type senderFeeConsensus struct{}

func (senderFeeConsensus) FeeDistribution(block Block) (map[common.Address]uint64, error) {
	distribution := make(map[common.Address]uint64)
	for _, tx := range block.Transactions() {
		if payment, ok := tx.(*PaymentTransaction); ok {
			distribution[payment.Sender] += payment.Fee
		}
	}
	return distribution, nil
}

func testKey(i byte) ed25519.PrivateKey {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = i + 1
	return ed25519.NewKeyFromSeed(seed)
}

func testAddress(i byte) common.Address {
	return AddressOf(testKey(i).Public().(ed25519.PublicKey))
}

func openTestLedger(t *testing.T) Ledger {
	t.Helper()
	db, err := Open(Parameters{})
	if err != nil {
		t.Fatalf("failed to open in-memory ledger: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// genesisBlock seeds ten accounts with one million units each.
func genesisBlock() Block {
	transactions := make([]Transaction, 0, 10)
	for i := byte(0); i < 10; i++ {
		transactions = append(transactions, &GenesisTransaction{
			Recipient: testAddress(i),
			Amount:    genesisAmount,
			Time:      uint64(i),
		})
	}
	return NewBlock(common.Hash{}, transactions, senderFeeConsensus{})
}

func applyGenesis(t *testing.T, db Ledger) {
	t.Helper()
	if err := db.ProcessBlock(genesisBlock()); err != nil {
		t.Fatalf("failed to apply genesis block: %v", err)
	}
}

func payment(from byte, to byte, amount, fee uint64) *PaymentTransaction {
	return SignPayment(testKey(from), testAddress(to), amount, fee, 0)
}

func paymentBlock(transactions ...Transaction) Block {
	return NewBlock(common.Hash{}, transactions, senderFeeConsensus{})
}

func TestLedger_GenesisSeedsAccounts(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)

	height, err := db.StateHeight()
	if err != nil {
		t.Fatalf("failed to get state height: %v", err)
	}
	if height != 1 {
		t.Errorf("state height after genesis is %d, wanted 1", height)
	}

	total, err := db.TotalBalance()
	if err != nil {
		t.Fatalf("failed to get total balance: %v", err)
	}
	if total != 10*genesisAmount {
		t.Errorf("total balance is %d, wanted %d", total, 10*genesisAmount)
	}

	for i := byte(0); i < 10; i++ {
		balance, err := db.Balance(testAddress(i))
		if err != nil {
			t.Fatalf("failed to get balance of account %d: %v", i, err)
		}
		if balance != genesisAmount {
			t.Errorf("balance of account %d is %d, wanted %d", i, balance, genesisAmount)
		}
	}

	for _, tx := range genesisBlock().Transactions() {
		height, included, err := db.Included(tx.Fingerprint())
		if err != nil {
			t.Fatalf("failed to query inclusion: %v", err)
		}
		if !included || height != 1 {
			t.Errorf("genesis transaction not included at height 1, got (%d,%t)", height, included)
		}
	}
}

func TestLedger_SimplePayment(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)

	if err := db.ProcessBlock(paymentBlock(payment(0, 1, 500, 10))); err != nil {
		t.Fatalf("failed to apply payment block: %v", err)
	}

	require := require.New(t)
	balance, err := db.Balance(testAddress(0))
	require.NoError(err)
	require.Equal(uint64(999_500), balance, "sender pays amount plus fee, fee is credited back")

	balance, err = db.Balance(testAddress(1))
	require.NoError(err)
	require.Equal(uint64(1_000_500), balance)

	total, err := db.TotalBalance()
	require.NoError(err)
	require.Equal(uint64(10*genesisAmount), total)

	height, err := db.StateHeight()
	require.NoError(err)
	require.Equal(uint32(2), height)
}

func TestLedger_DuplicateInclusionRejected(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)

	tx := payment(0, 1, 500, 10)
	if err := db.ProcessBlock(paymentBlock(tx)); err != nil {
		t.Fatalf("failed to apply payment block: %v", err)
	}

	before, err := db.Hash()
	if err != nil {
		t.Fatalf("failed to hash state: %v", err)
	}

	if err := db.ProcessBlock(paymentBlock(tx)); !errors.Is(err, ErrDuplicateInclusion) {
		t.Fatalf("re-applying an included transaction returned %v, wanted ErrDuplicateInclusion", err)
	}

	after, err := db.Hash()
	if err != nil {
		t.Fatalf("failed to hash state: %v", err)
	}
	if before != after {
		t.Errorf("state changed by a rejected block: %08x != %08x", uint32(before), uint32(after))
	}
	height, err := db.StateHeight()
	if err != nil {
		t.Fatalf("failed to get state height: %v", err)
	}
	if height != 2 {
		t.Errorf("state height changed by a rejected block: %d", height)
	}
}

func TestLedger_DuplicateWithinBlockRejected(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)

	tx := payment(0, 1, 500, 10)
	if err := db.ProcessBlock(paymentBlock(tx, tx)); !errors.Is(err, ErrDuplicateInclusion) {
		t.Fatalf("block with a repeated transaction returned %v, wanted ErrDuplicateInclusion", err)
	}
}

func TestLedger_NegativeBalanceRejected(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)

	before, err := db.Hash()
	if err != nil {
		t.Fatalf("failed to hash state: %v", err)
	}

	// the fee is credited back to the sender, so the amount alone must
	// exceed the balance
	overdraft := payment(0, 1, genesisAmount+1, 1)
	if err := db.ProcessBlock(paymentBlock(overdraft)); !errors.Is(err, ErrNegativeBalance) {
		t.Fatalf("overdrafting block returned %v, wanted ErrNegativeBalance", err)
	}

	after, err := db.Hash()
	if err != nil {
		t.Fatalf("failed to hash state: %v", err)
	}
	if before != after {
		t.Errorf("state changed by a rejected block")
	}
}

// unknownTransaction is a transaction variant the ledger does not support.
type unknownTransaction struct{}

func (unknownTransaction) Type() TransactionType           { return TransactionType(99) }
func (unknownTransaction) Fingerprint() common.Fingerprint { return common.Fingerprint{0xFF} }
func (unknownTransaction) BalanceChanges() []BalanceChange { return nil }
func (unknownTransaction) AuthorshipOk() bool              { return true }
func (unknownTransaction) Validate() ValidationResult      { return ValidationOk }

func TestLedger_UnknownVariantRejected(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)

	if err := db.ProcessBlock(paymentBlock(unknownTransaction{})); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("block with unsupported variant returned %v, wanted ErrUnknownVariant", err)
	}
}

func TestLedger_RollbackRestoresPriorState(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)

	before, err := db.Hash()
	if err != nil {
		t.Fatalf("failed to hash state: %v", err)
	}

	tx := payment(0, 1, 500, 10)
	if err := db.ProcessBlock(paymentBlock(tx)); err != nil {
		t.Fatalf("failed to apply payment block: %v", err)
	}
	if err := db.RollbackTo(1); err != nil {
		t.Fatalf("failed to roll back: %v", err)
	}

	require := require.New(t)
	balance, err := db.Balance(testAddress(0))
	require.NoError(err)
	require.Equal(uint64(genesisAmount), balance)

	balance, err = db.Balance(testAddress(1))
	require.NoError(err)
	require.Equal(uint64(genesisAmount), balance)

	_, included, err := db.Included(tx.Fingerprint())
	require.NoError(err)
	require.False(included, "rolled back transaction must not stay included")

	height, err := db.StateHeight()
	require.NoError(err)
	require.Equal(uint32(1), height)

	after, err := db.Hash()
	require.NoError(err)
	require.Equal(before, after, "rollback must restore the state fingerprint")
}

func TestLedger_RollbackIsIdempotent(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)
	if err := db.ProcessBlock(paymentBlock(payment(0, 1, 500, 10))); err != nil {
		t.Fatalf("failed to apply payment block: %v", err)
	}

	if err := db.RollbackTo(1); err != nil {
		t.Fatalf("failed to roll back: %v", err)
	}
	first, err := db.Hash()
	if err != nil {
		t.Fatalf("failed to hash state: %v", err)
	}
	if err := db.RollbackTo(1); err != nil {
		t.Fatalf("repeated rollback failed: %v", err)
	}
	second, err := db.Hash()
	if err != nil {
		t.Fatalf("failed to hash state: %v", err)
	}
	if first != second {
		t.Errorf("repeated rollback changed the state")
	}
}

func TestLedger_RollbackToZeroEmptiesState(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)
	if err := db.ProcessBlock(paymentBlock(payment(0, 1, 500, 10))); err != nil {
		t.Fatalf("failed to apply payment block: %v", err)
	}

	if err := db.RollbackTo(0); err != nil {
		t.Fatalf("failed to roll back to zero: %v", err)
	}

	height, err := db.StateHeight()
	if err != nil {
		t.Fatalf("failed to get state height: %v", err)
	}
	if height != 0 {
		t.Errorf("state height is %d, wanted 0", height)
	}
	accounts, err := db.Accounts()
	if err != nil {
		t.Fatalf("failed to list accounts: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("state still tracks %d accounts after rollback to zero", len(accounts))
	}
	total, err := db.TotalBalance()
	if err != nil {
		t.Fatalf("failed to get total balance: %v", err)
	}
	if total != 0 {
		t.Errorf("total balance is %d, wanted 0", total)
	}
}

func TestLedger_PointInTimeBalance(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)
	if err := db.ProcessBlock(paymentBlock(payment(0, 1, 500, 10))); err != nil {
		t.Fatalf("failed to apply payment block: %v", err)
	}

	past, err := db.BalanceAt(testAddress(0), 1)
	if err != nil {
		t.Fatalf("failed to get point-in-time balance: %v", err)
	}
	if past != genesisAmount {
		t.Errorf("balance at height 1 is %d, wanted %d", past, genesisAmount)
	}
	current, err := db.Balance(testAddress(0))
	if err != nil {
		t.Fatalf("failed to get balance: %v", err)
	}
	if current != 999_500 {
		t.Errorf("current balance is %d, wanted 999500", current)
	}
}

func TestLedger_BalanceWithConfirmations(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)
	for i := 0; i < 3; i++ {
		tx := SignPayment(testKey(0), testAddress(1), 100, 0, uint64(i))
		if err := db.ProcessBlock(paymentBlock(tx)); err != nil {
			t.Fatalf("failed to apply payment block: %v", err)
		}
	}

	// heights 2..4 each move 100 from account 0 to account 1
	tests := []struct {
		confirmations uint32
		want          uint64
	}{
		{0, genesisAmount - 300},
		{1, genesisAmount - 200},
		{2, genesisAmount - 100},
		{3, genesisAmount},
		{10, genesisAmount}, // clamped to height 1
	}
	for _, test := range tests {
		got, err := db.BalanceWithConfirmations(testAddress(0), test.confirmations)
		if err != nil {
			t.Fatalf("failed to get balance with %d confirmations: %v", test.confirmations, err)
		}
		if got != test.want {
			t.Errorf("balance with %d confirmations is %d, wanted %d", test.confirmations, got, test.want)
		}
	}
}

func TestLedger_AccountTransactionsNewestFirst(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)

	first := payment(0, 1, 100, 0)
	second := payment(2, 0, 200, 0)
	if err := db.ProcessBlock(paymentBlock(first)); err != nil {
		t.Fatalf("failed to apply payment block: %v", err)
	}
	if err := db.ProcessBlock(paymentBlock(second)); err != nil {
		t.Fatalf("failed to apply payment block: %v", err)
	}

	transactions, err := db.AccountTransactions(testAddress(0))
	if err != nil {
		t.Fatalf("failed to list account transactions: %v", err)
	}
	if len(transactions) != 2 {
		t.Fatalf("account lists %d transactions, wanted 2", len(transactions))
	}
	if transactions[0].Fingerprint() != second.Fingerprint() {
		t.Errorf("newest transaction is not first")
	}
	if transactions[1].Fingerprint() != first.Fingerprint() {
		t.Errorf("oldest transaction is not last")
	}

	// genesis seeds are not payments and must not be listed
	for _, tx := range transactions {
		if tx.Type() != PaymentType {
			t.Errorf("non-payment transaction in account history")
		}
	}
}

func TestLedger_FeeDistributionFailureRejectsBlock(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)

	ctrl := gomock.NewController(t)
	consensus := NewMockConsensusModule(ctrl)
	consensus.EXPECT().FeeDistribution(gomock.Any()).Return(nil, fmt.Errorf("consensus failure"))

	block := NewBlock(common.Hash{}, []Transaction{payment(0, 1, 500, 10)}, consensus)
	if err := db.ProcessBlock(block); err == nil {
		t.Fatalf("block with failing consensus module was accepted")
	}

	height, err := db.StateHeight()
	if err != nil {
		t.Fatalf("failed to get state height: %v", err)
	}
	if height != 1 {
		t.Errorf("state height changed by a rejected block: %d", height)
	}
}

func TestLedger_FeeDistributionToThirdParty(t *testing.T) {
	db := openTestLedger(t)
	applyGenesis(t, db)

	miner := testAddress(9)
	ctrl := gomock.NewController(t)
	consensus := NewMockConsensusModule(ctrl)
	consensus.EXPECT().FeeDistribution(gomock.Any()).Return(map[common.Address]uint64{miner: 10}, nil)

	block := NewBlock(common.Hash{}, []Transaction{payment(0, 1, 500, 10)}, consensus)
	if err := db.ProcessBlock(block); err != nil {
		t.Fatalf("failed to apply block: %v", err)
	}

	require := require.New(t)
	balance, err := db.Balance(testAddress(0))
	require.NoError(err)
	require.Equal(uint64(genesisAmount-510), balance)
	balance, err = db.Balance(miner)
	require.NoError(err)
	require.Equal(uint64(genesisAmount+10), balance)
	total, err := db.TotalBalance()
	require.NoError(err)
	require.Equal(uint64(10*genesisAmount), total)
}

func TestLedger_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(Parameters{Directory: dir})
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	applyGenesis(t, db)
	if err := db.ProcessBlock(paymentBlock(payment(0, 1, 500, 10))); err != nil {
		t.Fatalf("failed to apply payment block: %v", err)
	}
	before, err := db.Hash()
	if err != nil {
		t.Fatalf("failed to hash state: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("failed to close ledger: %v", err)
	}

	db, err = Open(Parameters{Directory: dir})
	if err != nil {
		t.Fatalf("failed to reopen ledger: %v", err)
	}
	defer db.Close()

	height, err := db.StateHeight()
	if err != nil {
		t.Fatalf("failed to get state height: %v", err)
	}
	if height != 2 {
		t.Errorf("state height after reopen is %d, wanted 2", height)
	}
	after, err := db.Hash()
	if err != nil {
		t.Fatalf("failed to hash state: %v", err)
	}
	if before != after {
		t.Errorf("state fingerprint changed across reopen")
	}
}

func TestLedger_HashIgnoresZeroBalances(t *testing.T) {
	// one state seeds account 0 and spends it empty towards account 1, the
	// other seeds account 1 directly; the emptied account must not
	// contribute to the fingerprint
	db := openTestLedger(t)
	seed := &GenesisTransaction{Recipient: testAddress(0), Amount: 100, Time: 1}
	if err := db.ProcessBlock(NewBlock(common.Hash{}, []Transaction{seed}, senderFeeConsensus{})); err != nil {
		t.Fatalf("failed to apply genesis block: %v", err)
	}
	if err := db.ProcessBlock(paymentBlock(payment(0, 1, 100, 0))); err != nil {
		t.Fatalf("failed to apply payment block: %v", err)
	}

	other := openTestLedger(t)
	seedOther := &GenesisTransaction{Recipient: testAddress(1), Amount: 100, Time: 1}
	if err := other.ProcessBlock(NewBlock(common.Hash{}, []Transaction{seedOther}, senderFeeConsensus{})); err != nil {
		t.Fatalf("failed to apply genesis block: %v", err)
	}

	left, err := db.Hash()
	if err != nil {
		t.Fatalf("failed to hash state: %v", err)
	}
	right, err := other.Hash()
	if err != nil {
		t.Fatalf("failed to hash state: %v", err)
	}
	if left != right {
		t.Errorf("states with equal non-zero balances have fingerprints %08x and %08x", uint32(left), uint32(right))
	}
}

func TestLedger_EmptyStateQueries(t *testing.T) {
	db := openTestLedger(t)

	height, err := db.StateHeight()
	if err != nil {
		t.Fatalf("failed to get state height: %v", err)
	}
	if height != 0 {
		t.Errorf("empty state height is %d, wanted 0", height)
	}
	balance, err := db.Balance(testAddress(0))
	if err != nil {
		t.Fatalf("failed to get balance: %v", err)
	}
	if balance != 0 {
		t.Errorf("untouched account has balance %d", balance)
	}
	_, included, err := db.Included(common.Fingerprint{0x01})
	if err != nil {
		t.Fatalf("failed to query inclusion: %v", err)
	}
	if included {
		t.Errorf("unknown fingerprint reported as included")
	}
	if err := db.RollbackTo(0); err != nil {
		t.Fatalf("rollback of an empty state failed: %v", err)
	}
}
