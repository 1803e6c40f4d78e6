package domain

import "github.com/shopspring/decimal"

// MonthlySummary aggregates a loan's entries for one calendar month.
// ClosingBalance is the balance amount after the month's last entry.
type MonthlySummary struct {
	Year              int32           `json:"year"`
	Month             int32           `json:"month"`
	EntryCount        int64           `json:"entryCount"`
	PrincipalReceived decimal.Decimal `json:"principalReceived"`
	InterestReceived  decimal.Decimal `json:"interestReceived"`
	ClosingBalance    decimal.Decimal `json:"closingBalance"`
}
