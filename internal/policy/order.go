package policy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fx-trade-lab/internal/domain"
)

// OriginalOrder leaves scheduled order prices unchanged.
type OriginalOrder struct{}

func (OriginalOrder) ID() string { return domain.OrderModeOriginal }

func (OriginalOrder) Adjust(price decimal.Decimal, _ domain.Direction) decimal.Decimal {
	return price
}

// PercentShiftOrder shifts every scheduled order price by a fixed
// percentage. A positive Percent moves the order to a better fill for
// the trade's direction (down for a long, up for a short); negative
// moves it worse.
type PercentShiftOrder struct {
	Percent decimal.Decimal
}

func (o PercentShiftOrder) ID() string {
	return fmt.Sprintf("%s_%s", domain.OrderModePercentShift, o.Percent)
}

func (o PercentShiftOrder) Adjust(price decimal.Decimal, direction domain.Direction) decimal.Decimal {
	fraction := o.Percent.Div(decimal.NewFromInt(100))
	if direction == domain.DirectionLong {
		fraction = fraction.Neg()
	}
	return price.Mul(decimal.NewFromInt(1).Add(fraction))
}
