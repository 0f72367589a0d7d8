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

//go:generate mockgen -source block.go -destination block_mock.go -package ledger

import "github.com/Fantom-foundation/Fidelio/common"

// ConsensusModule decides who is credited the fees collected in a block.
type ConsensusModule interface {
	// FeeDistribution returns the fee credit per account for the given block.
	// It must be a pure function of the block.
	FeeDistribution(block Block) (map[common.Address]uint64, error)
}

// Block is an ordered sequence of transactions applied as one atomic state
// transition, together with the consensus module that produced it.
type Block interface {
	// Transactions lists the block's transactions in application order.
	Transactions() []Transaction
	// ConsensusModule provides the consensus module that produced the block.
	ConsensusModule() ConsensusModule
	// Reference identifies the parent block.
	Reference() common.Hash
}

type blockData struct {
	reference    common.Hash
	transactions []Transaction
	consensus    ConsensusModule
}

// NewBlock bundles transactions and their consensus module into a Block.
func NewBlock(reference common.Hash, transactions []Transaction, consensus ConsensusModule) Block {
	return &blockData{
		reference:    reference,
		transactions: transactions,
		consensus:    consensus,
	}
}

func (b *blockData) Transactions() []Transaction {
	return b.transactions
}

func (b *blockData) ConsensusModule() ConsensusModule {
	return b.consensus
}

func (b *blockData) Reference() common.Hash {
	return b.reference
}
