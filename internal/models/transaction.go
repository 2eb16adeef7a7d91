package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types recognized by the summary aggregation. The stored value
// is free-form; anything else simply never contributes to a total.
const (
	TypeRevenue = "receita"
	TypeExpense = "despesa"
)

// Transaction is a single income or expense record owned by exactly one user.
type Transaction struct {
	ID              int             `json:"id" db:"id"`
	Description     string          `json:"description" db:"description"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	TransactionType string          `json:"transaction_type" db:"transaction_type"`
	Date            time.Time       `json:"date" db:"date"`
	UserID          int             `json:"-" db:"user_id"`
}

// Summary holds per-user aggregate totals. Values are decimal-formatted
// strings taken straight from the store so scale is preserved ("1000.00",
// or a bare "0" when no rows matched).
type Summary struct {
	TotalRevenue  string `json:"total_revenue"`
	TotalExpenses string `json:"total_expenses"`
	Balance       string `json:"balance"`
}
