package core

import (
	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary is the aggregate of a transaction sequence. ExpensesByCategory is
// ordered by the first occurrence of each expense category in the input and
// only holds categories that occurred.
type Summary struct {
	TotalIncome        decimal.Decimal  `json:"totalIncome"`
	TotalExpenses      decimal.Decimal  `json:"totalExpenses"`
	Balance            decimal.Decimal  `json:"balance"`
	ExpensesByCategory []CategoryAmount `json:"expensesByCategory"`
}

// Summarize partitions txs into income and expenses and totals them.
// It does not validate, round or mutate its input and is safe for
// concurrent use.
func Summarize(txs []Transaction) Summary {
	s := Summary{
		TotalIncome:        decimal.Zero,
		TotalExpenses:      decimal.Zero,
		ExpensesByCategory: []CategoryAmount{},
	}
	index := make(map[string]int)

	for _, t := range txs {
		if t.IsIncome() {
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
			continue
		}
		s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
		if i, ok := index[t.Category]; ok {
			s.ExpensesByCategory[i].Amount = s.ExpensesByCategory[i].Amount.Add(t.Amount)
			continue
		}
		index[t.Category] = len(s.ExpensesByCategory)
		s.ExpensesByCategory = append(s.ExpensesByCategory, CategoryAmount{Name: t.Category, Amount: t.Amount})
	}

	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// Category returns the expense total for name.
func (s Summary) Category(name string) (decimal.Decimal, bool) {
	for _, c := range s.ExpensesByCategory {
		if c.Name == name {
			return c.Amount, true
		}
	}
	return decimal.Zero, false
}

// CategoryNames returns expense categories in first-seen order.
func (s Summary) CategoryNames() []string {
	names := make([]string, len(s.ExpensesByCategory))
	for i, c := range s.ExpensesByCategory {
		names[i] = c.Name
	}
	return names
}
