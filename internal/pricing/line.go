package pricing

import "github.com/shopspring/decimal"

// Line is the pricing input for one offer item. UnitPrice is VAT-exclusive.
type Line struct {
	UnitPrice     decimal.Decimal
	VATRate       int
	Quantity      int
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
}

// LineTotals holds the computed figures for one line, discounted and gross.
type LineTotals struct {
	UnitPriceWithVAT    decimal.Decimal `json:"unit_price_with_vat"`
	UnitDiscountAmount  decimal.Decimal `json:"unit_discount_amount"`
	DiscountedUnitPrice decimal.Decimal `json:"discounted_unit_price"`
	LineSubtotal        decimal.Decimal `json:"line_subtotal"`
	DiscountAmount      decimal.Decimal `json:"discount_amount"`
	VATAmount           decimal.Decimal `json:"vat_amount"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	GrossLineSubtotal   decimal.Decimal `json:"gross_line_subtotal"`
	GrossVATAmount      decimal.Decimal `json:"gross_vat_amount"`
	GrossTotalPrice     decimal.Decimal `json:"gross_total_price"`
}

// ComputeLine computes the totals of a single line.
func ComputeLine(l Line) LineTotals {
	qty := decimal.NewFromInt(int64(l.Quantity))
	if l.Quantity < 0 {
		qty = decimal.Zero
	}

	unitDiscount := apply(l.DiscountType, l.DiscountValue, l.UnitPrice)
	discounted := decimal.Max(l.UnitPrice.Sub(unitDiscount), decimal.Zero)
	subtotal := discounted.Mul(qty)
	lineVAT := vat(subtotal, l.VATRate)

	gross := l.UnitPrice.Mul(qty)
	grossVAT := vat(gross, l.VATRate)

	return LineTotals{
		UnitPriceWithVAT:    WithVAT(l.UnitPrice, l.VATRate),
		UnitDiscountAmount:  unitDiscount,
		DiscountedUnitPrice: discounted,
		LineSubtotal:        subtotal,
		DiscountAmount:      unitDiscount.Mul(qty),
		VATAmount:           lineVAT,
		TotalPrice:          subtotal.Add(lineVAT),
		GrossLineSubtotal:   gross,
		GrossVATAmount:      grossVAT,
		GrossTotalPrice:     gross.Add(grossVAT),
	}
}
