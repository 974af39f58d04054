package domain

import "github.com/shopspring/decimal"

// MarketDetails describes the pricing metadata needed to convert price
// distances into P&L for one market.
type MarketDetails struct {
	Name string // e.g. "EUR/USD"

	// PipSize is the price increment of one pip (0.0001 for most pairs,
	// 0.01 for JPY pairs).
	PipSize decimal.Decimal

	// PipValue is the account-currency value of a one-pip move per unit
	// of quantity.
	PipValue decimal.Decimal
}
