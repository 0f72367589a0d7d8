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
	"golang.org/x/exp/slices"

	"github.com/Fantom-foundation/Fidelio/common"
)

func (s *persistentLedger) Validate(candidates []Transaction) ([]Transaction, error) {
	height, err := s.stateHeight()
	if err != nil {
		return nil, err
	}
	return s.validateAt(candidates, height)
}

func (s *persistentLedger) ValidateAt(candidates []Transaction, height common.Height) ([]Transaction, error) {
	return s.validateAt(candidates, height)
}

// validateAt returns the largest subset of the candidates that can be jointly
// applied on top of the given height. Individually invalid candidates are
// filtered first; then senders whose combined outflow exceeds their balance
// are trimmed, dropping their largest payments first, until a fixed point is
// reached. Removing a payment also lowers its recipient's projected balance,
// which may tip a downstream sender negative, hence the iteration.
func (s *persistentLedger) validateAt(candidates []Transaction, height common.Height) ([]Transaction, error) {
	transactions := make([]Transaction, 0, len(candidates))
	seen := make(map[common.Fingerprint]struct{}, len(candidates))
	for _, tx := range candidates {
		if _, supported := tx.(ReasonItem); !supported {
			continue
		}
		if tx.Type() == GenesisType && height != 0 {
			continue
		}
		if tx.Validate() != ValidationOk {
			continue
		}
		if !tx.AuthorshipOk() {
			continue
		}
		fp := tx.Fingerprint()
		if _, duplicate := seen[fp]; duplicate {
			continue
		}
		if _, included, err := s.IncludedBefore(fp, height+1); err != nil {
			return nil, err
		} else if included {
			continue
		}
		seen[fp] = struct{}{}
		transactions = append(transactions, tx)
	}

	for len(transactions) > 0 {
		working := make(map[common.Address]int64)
		for _, tx := range transactions {
			for _, delta := range tx.BalanceChanges() {
				if _, touched := working[delta.Account]; !touched {
					balance, err := s.balanceAt(delta.Account, height)
					if err != nil {
						return nil, err
					}
					working[delta.Account] = int64(balance)
				}
				working[delta.Account] += delta.Delta
			}
		}

		var offenders []common.Address
		for account, balance := range working {
			if balance < 0 {
				offenders = append(offenders, account)
			}
		}
		if len(offenders) == 0 {
			return transactions, nil
		}

		toRemove := make(map[common.Fingerprint]struct{})
		for _, offender := range sortedAddresses(offenders) {
			var payments []*PaymentTransaction
			for _, tx := range transactions {
				if payment, ok := tx.(*PaymentTransaction); ok && payment.Sender == offender {
					payments = append(payments, payment)
				}
			}
			// largest first; ties keep their input order for reproducibility
			slices.SortStableFunc(payments, func(a, b *PaymentTransaction) bool {
				return a.Amount > b.Amount
			})
			running := working[offender]
			for _, payment := range payments {
				if running >= 0 {
					break
				}
				toRemove[payment.Fingerprint()] = struct{}{}
				running += int64(payment.Amount) + int64(payment.Fee)
			}
		}
		if len(toRemove) == 0 {
			// cannot happen: only payments of the offender produce negative deltas
			break
		}

		kept := transactions[:0]
		for _, tx := range transactions {
			if _, removed := toRemove[tx.Fingerprint()]; !removed {
				kept = append(kept, tx)
			}
		}
		transactions = kept
	}
	return transactions, nil
}
