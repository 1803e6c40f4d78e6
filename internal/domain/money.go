package domain

import "github.com/shopspring/decimal"

// CurrencySymbol prefixes every money figure rendered to users.
const CurrencySymbol = "₹"

// FormatMoney renders a money value with the currency glyph and a fixed
// 2-decimal fractional part, e.g. "₹500.00".
func FormatMoney(d decimal.Decimal) string {
	return CurrencySymbol + d.StringFixed(2)
}
