package core

import "github.com/shopspring/decimal"

// SampleTransactions returns the demo ledger shown when no other source is
// configured. A fresh slice is returned on every call.
func SampleTransactions() []Transaction {
	return []Transaction{
		{ID: 1, Description: "Salary", Amount: decimal.RequireFromString("3000"), Category: CategoryIncome, Date: NewDate(2023, 6, 1)},
		{ID: 2, Description: "Freelance Work", Amount: decimal.RequireFromString("200"), Category: CategoryIncome, Date: NewDate(2023, 6, 5)},
		{ID: 3, Description: "Rent", Amount: decimal.RequireFromString("1000"), Category: "housing", Date: NewDate(2023, 6, 1)},
		{ID: 4, Description: "Groceries", Amount: decimal.RequireFromString("150.25"), Category: "food", Date: NewDate(2023, 6, 2)},
		{ID: 5, Description: "Dinner Out", Amount: decimal.RequireFromString("45.50"), Category: "food", Date: NewDate(2023, 6, 3)},
		{ID: 6, Description: "Movie Tickets", Amount: decimal.RequireFromString("25"), Category: "entertainment", Date: NewDate(2023, 6, 4)},
		{ID: 7, Description: "Gas", Amount: decimal.RequireFromString("38.50"), Category: "transport", Date: NewDate(2023, 6, 5)},
		{ID: 8, Description: "Phone Bill", Amount: decimal.RequireFromString("60"), Category: "other", Date: NewDate(2023, 6, 5)},
		{ID: 9, Description: "Gym Membership", Amount: decimal.RequireFromString("30"), Category: "other", Date: NewDate(2023, 6, 5)},
		{ID: 10, Description: "Coffee", Amount: decimal.RequireFromString("12"), Category: "food", Date: NewDate(2023, 6, 6)},
	}
}
