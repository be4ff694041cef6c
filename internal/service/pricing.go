package service

import (
	"github.com/shopspring/decimal"

	"billora/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// PriceCart computes the money totals for a cart, all in minor currency
// units. GST is charged per line on the pre-discount amount; the discount
// is a percentage of the goods subtotal only and never reduces tax.
// Percentages outside [0,100] are clamped. Every rounding step is
// half-up to the nearest minor unit.
func PriceCart(lines []domain.CartLine, discountPercent float64) (domain.Totals, []domain.TransactionLine) {
	if discountPercent < 0 {
		discountPercent = 0
	}
	if discountPercent > 100 {
		discountPercent = 100
	}

	priced := make([]domain.TransactionLine, 0, len(lines))
	subtotal := int64(0)
	taxTotal := int64(0)
	for _, line := range lines {
		amount := line.UnitPriceCents * int64(line.Quantity)
		tax := decimal.NewFromInt(amount).
			Mul(decimal.NewFromFloat(line.GSTPercent)).
			Div(hundred).
			Round(0).
			IntPart()

		subtotal += amount
		taxTotal += tax
		priced = append(priced, domain.TransactionLine{
			ProductID:      line.ProductID,
			Name:           line.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			GSTPercent:     line.GSTPercent,
			TaxCents:       tax,
			TotalCents:     amount + tax,
		})
	}

	discount := decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromFloat(discountPercent)).
		Div(hundred).
		Round(0).
		IntPart()

	grand := subtotal + taxTotal - discount
	if grand < 0 {
		grand = 0
	}

	return domain.Totals{
		SubtotalCents:   subtotal,
		TaxCents:        taxTotal,
		DiscountCents:   discount,
		GrandTotalCents: grand,
	}, priced
}

// ChangeDue is the cash handed back to the customer. Card and UPI
// payments settle exactly, so change only exists for cash.
func ChangeDue(paymentMode string, tenderedCents int64, grandTotalCents int64) int64 {
	if paymentMode != domain.PaymentModeCash {
		return 0
	}
	change := tenderedCents - grandTotalCents
	if change < 0 {
		return 0
	}
	return change
}
