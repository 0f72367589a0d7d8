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

	"github.com/Fantom-foundation/Fidelio/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// AccountState is the persisted state of one account. The balance is kept
// signed so that underflows are detectable during computation; a persisted
// balance is always non-negative.
type AccountState struct {
	Balance int64
}

// ReasonItem is one cause of a balance change: a transaction touching the
// account, or a fee credit assigned by the consensus module. The interface is
// sealed; the variants are FeeCredit, *GenesisTransaction and
// *PaymentTransaction.
type ReasonItem interface {
	reasonKind() uint8
}

const (
	reasonFeeCredit uint8 = iota
	reasonGenesis
	reasonPayment
)

// FeeCredit marks fees credited to an account by the block's fee
// distribution. It contributes to the balance change but carries no
// transaction fingerprint.
type FeeCredit struct {
	Amount uint64
}

func (FeeCredit) reasonKind() uint8           { return reasonFeeCredit }
func (*GenesisTransaction) reasonKind() uint8 { return reasonGenesis }
func (*PaymentTransaction) reasonKind() uint8 { return reasonPayment }

// ChangeRecord is one link of an account's history chain: the account state
// after a block, the reasons for the change, and the height of the previous
// change of the same account. PrevHeight zero terminates the chain.
// Records are immutable once committed; rollback removes them.
type ChangeRecord struct {
	State      AccountState
	Reason     []ReasonItem
	PrevHeight common.Height
}

// Transactions extracts the transactions from the record's reason, in reason
// order (newest first). Fee credits are skipped.
func (r *ChangeRecord) Transactions() []Transaction {
	var txs []Transaction
	for _, item := range r.Reason {
		if tx, ok := item.(Transaction); ok {
			txs = append(txs, tx)
		}
	}
	return txs
}

type encodedReasonItem struct {
	Kind    uint8
	Payload []byte
}

type encodedChangeRecord struct {
	Balance    uint64
	Reason     []encodedReasonItem
	PrevHeight uint32
}

func encodeChangeRecord(record *ChangeRecord) ([]byte, error) {
	if record.State.Balance < 0 {
		return nil, fmt.Errorf("%w: refusing to persist negative balance %d", ErrNegativeBalance, record.State.Balance)
	}
	encoded := encodedChangeRecord{
		Balance:    uint64(record.State.Balance),
		Reason:     make([]encodedReasonItem, 0, len(record.Reason)),
		PrevHeight: record.PrevHeight,
	}
	for _, item := range record.Reason {
		payload, err := rlp.EncodeToBytes(item)
		if err != nil {
			return nil, err
		}
		encoded.Reason = append(encoded.Reason, encodedReasonItem{Kind: item.reasonKind(), Payload: payload})
	}
	return rlp.EncodeToBytes(&encoded)
}

func decodeChangeRecord(data []byte) (*ChangeRecord, error) {
	var encoded encodedChangeRecord
	if err := rlp.DecodeBytes(data, &encoded); err != nil {
		return nil, fmt.Errorf("%w: undecodable change record: %v", ErrCorrupted, err)
	}
	record := &ChangeRecord{
		State:      AccountState{Balance: int64(encoded.Balance)},
		Reason:     make([]ReasonItem, 0, len(encoded.Reason)),
		PrevHeight: encoded.PrevHeight,
	}
	for _, entry := range encoded.Reason {
		item, err := decodeReasonItem(entry)
		if err != nil {
			return nil, err
		}
		record.Reason = append(record.Reason, item)
	}
	return record, nil
}

func decodeReasonItem(entry encodedReasonItem) (ReasonItem, error) {
	switch entry.Kind {
	case reasonFeeCredit:
		var credit FeeCredit
		if err := rlp.DecodeBytes(entry.Payload, &credit); err != nil {
			return nil, fmt.Errorf("%w: undecodable fee credit: %v", ErrCorrupted, err)
		}
		return credit, nil
	case reasonGenesis:
		tx := new(GenesisTransaction)
		if err := rlp.DecodeBytes(entry.Payload, tx); err != nil {
			return nil, fmt.Errorf("%w: undecodable genesis transaction: %v", ErrCorrupted, err)
		}
		return tx, nil
	case reasonPayment:
		tx := new(PaymentTransaction)
		if err := rlp.DecodeBytes(entry.Payload, tx); err != nil {
			return nil, fmt.Errorf("%w: undecodable payment transaction: %v", ErrCorrupted, err)
		}
		return tx, nil
	}
	return nil, fmt.Errorf("%w: reason kind %d", ErrUnknownVariant, entry.Kind)
}
