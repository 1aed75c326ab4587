// Package balance computes net member balances from a group's expense
// ledger. Balances are never stored; they are derived on read.
package balance

import (
	"github.com/shopspring/decimal"

	"github.com/vaibhavdeo21/Finance-Server/internal/models"
)

// Compute returns a mapping from member email to signed net balance,
// considering only unsettled expenses. The payer of each expense is
// credited the full amount and every split member is debited their share;
// a payer who also holds a split nets to amount paid minus amount owed.
//
// Positive balance = net receivable (owed money), negative = net payable.
// Members with no ledger activity are omitted; settled expenses contribute
// nothing; an empty ledger yields an empty map.
func Compute(expenses []*models.Expense) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)

	for _, expense := range expenses {
		if expense.IsSettled {
			continue
		}

		payer := models.NormalizeEmail(expense.PayerEmail)
		balances[payer] = balances[payer].Add(expense.Amount)

		for _, split := range expense.Splits {
			email := models.NormalizeEmail(split.Email)
			balances[email] = balances[email].Sub(split.Amount)
		}
	}

	return balances
}

// Of returns one member's net balance from a computed balance map, zero if
// the member has no ledger activity.
func Of(balances map[string]decimal.Decimal, email string) decimal.Decimal {
	return balances[models.NormalizeEmail(email)]
}
