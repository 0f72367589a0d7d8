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
	"math"

	"github.com/Fantom-foundation/Fidelio/common"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// ValidationResult is the outcome of the static validation of a transaction.
type ValidationResult int

const (
	ValidationOk ValidationResult = iota
	ValidationInvalidAddress
	ValidationNegativeAmount
	ValidationNegativeFee
	ValidationNoBalance
)

func (r ValidationResult) String() string {
	switch r {
	case ValidationOk:
		return "ok"
	case ValidationInvalidAddress:
		return "invalid address"
	case ValidationNegativeAmount:
		return "negative amount"
	case ValidationNegativeFee:
		return "negative fee"
	case ValidationNoBalance:
		return "no balance"
	}
	return "unknown"
}

// TransactionType distinguishes the supported transaction variants.
type TransactionType byte

const (
	GenesisType TransactionType = iota + 1
	PaymentType
)

// BalanceChange is one signed balance delta a transaction applies to an account.
type BalanceChange struct {
	Account common.Address
	Delta   int64
}

// Transaction is the surface the ledger needs from a transaction: its
// identity, its balance effects, and its validity checks. Implementations are
// the Genesis and Payment variants.
type Transaction interface {
	// Type reports the transaction variant.
	Type() TransactionType
	// Fingerprint returns the unique identifier of the transaction.
	Fingerprint() common.Fingerprint
	// BalanceChanges lists the balance deltas the transaction applies.
	BalanceChanges() []BalanceChange
	// AuthorshipOk verifies the transaction was produced by the claimed sender.
	AuthorshipOk() bool
	// Validate statically checks the transaction in isolation.
	Validate() ValidationResult
}

// emptyAddress is the zero address, not a valid account.
var emptyAddress common.Address

// GenesisTransaction seeds an account balance. It is only valid in the first
// block applied to an empty state.
type GenesisTransaction struct {
	Recipient common.Address
	Amount    uint64
	Time      uint64
}

func (t *GenesisTransaction) Type() TransactionType {
	return GenesisType
}

// Fingerprint of a genesis transaction is derived from its content, as there
// is no signature to identify it by.
func (t *GenesisTransaction) Fingerprint() common.Fingerprint {
	data, err := rlp.EncodeToBytes(t)
	if err != nil {
		panic(err) // the struct is statically RLP-serializable
	}
	head := common.GetHash(sha3.NewLegacyKeccak256(), data)
	tail := common.GetHash(sha3.NewLegacyKeccak256(), head[:])
	var fp common.Fingerprint
	copy(fp[:common.HashSize], head[:])
	copy(fp[common.HashSize:], tail[:])
	return fp
}

func (t *GenesisTransaction) BalanceChanges() []BalanceChange {
	return []BalanceChange{{Account: t.Recipient, Delta: int64(t.Amount)}}
}

// AuthorshipOk always holds for genesis seeds, they carry no author.
func (t *GenesisTransaction) AuthorshipOk() bool {
	return true
}

func (t *GenesisTransaction) Validate() ValidationResult {
	if t.Recipient == emptyAddress {
		return ValidationInvalidAddress
	}
	if t.Amount > math.MaxInt64 {
		return ValidationNegativeAmount
	}
	return ValidationOk
}

// PaymentTransaction transfers an amount from the sender to the recipient,
// charging the sender an additional fee collected by the block producer.
type PaymentTransaction struct {
	Sender    common.Address
	Recipient common.Address
	Amount    uint64
	Fee       uint64
	Time      uint64
	SenderKey []byte // ed25519 public key of the sender
	Signature [common.FingerprintSize]byte
}

// SignPayment builds a payment from the given sender key and signs it.
func SignPayment(key ed25519.PrivateKey, recipient common.Address, amount, fee, time uint64) *PaymentTransaction {
	public := key.Public().(ed25519.PublicKey)
	t := &PaymentTransaction{
		Sender:    AddressOf(public),
		Recipient: recipient,
		Amount:    amount,
		Fee:       fee,
		Time:      time,
		SenderKey: public,
	}
	copy(t.Signature[:], ed25519.Sign(key, t.signedBytes()))
	return t
}

// AddressOf derives the account address owned by the given public key.
func AddressOf(key ed25519.PublicKey) common.Address {
	hash := common.GetHash(sha3.NewLegacyKeccak256(), key)
	var address common.Address
	copy(address[:], hash[:common.AddressSize])
	return address
}

func (t *PaymentTransaction) Type() TransactionType {
	return PaymentType
}

// Fingerprint of a payment is its signature.
func (t *PaymentTransaction) Fingerprint() common.Fingerprint {
	return common.Fingerprint(t.Signature)
}

func (t *PaymentTransaction) BalanceChanges() []BalanceChange {
	return []BalanceChange{
		{Account: t.Sender, Delta: -(int64(t.Amount) + int64(t.Fee))},
		{Account: t.Recipient, Delta: int64(t.Amount)},
	}
}

// AuthorshipOk checks that the sender key owns the sender address and that
// the signature covers the payment content.
func (t *PaymentTransaction) AuthorshipOk() bool {
	if len(t.SenderKey) != ed25519.PublicKeySize {
		return false
	}
	if AddressOf(t.SenderKey) != t.Sender {
		return false
	}
	return ed25519.Verify(t.SenderKey, t.signedBytes(), t.Signature[:])
}

// Validate checks addresses and that the amounts fit the signed delta range.
// Amounts beyond the signed range would flip the sign of a balance change.
func (t *PaymentTransaction) Validate() ValidationResult {
	if t.Sender == emptyAddress || t.Recipient == emptyAddress {
		return ValidationInvalidAddress
	}
	if t.Amount > math.MaxInt64 {
		return ValidationNegativeAmount
	}
	if t.Fee > math.MaxInt64-t.Amount {
		return ValidationNegativeFee
	}
	return ValidationOk
}

// signedBytes is the canonical payload covered by the payment signature.
func (t *PaymentTransaction) signedBytes() []byte {
	data, err := rlp.EncodeToBytes(&paymentPayload{
		Sender:    t.Sender,
		Recipient: t.Recipient,
		Amount:    t.Amount,
		Fee:       t.Fee,
		Time:      t.Time,
	})
	if err != nil {
		panic(err) // the struct is statically RLP-serializable
	}
	return data
}

type paymentPayload struct {
	Sender    common.Address
	Recipient common.Address
	Amount    uint64
	Fee       uint64
	Time      uint64
}
