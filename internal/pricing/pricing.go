// Package pricing computes line and offer totals: item discounts, the overall
// discount, VAT and the final billed amount.
//
// Every monetary rounding point rounds half-up to two decimals. Running totals are
// sums of already-rounded values and are never rounded again.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	DiscountNone    DiscountType = "none"
	DiscountPercent DiscountType = "percent"
	DiscountAmount  DiscountType = "amount"
)

var (
	ErrInvalidDiscountType = errors.New("invalid_discount_type")
	ErrNegativeDiscount    = errors.New("negative_discount")
	ErrPercentOverHundred  = errors.New("percent_over_100")
)

var hundred = decimal.NewFromInt(100)

// Round rounds half-up to two decimals. Amounts handled here are never negative,
// so rounding half away from zero is half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// NetPrice derives the VAT-exclusive price from a VAT-inclusive one.
func NetPrice(gross decimal.Decimal, vatRate int) decimal.Decimal {
	divisor := decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(vatRate)).Div(hundred))
	return Round(gross.Div(divisor))
}

// WithVAT returns the VAT-inclusive value of a net amount.
func WithVAT(net decimal.Decimal, vatRate int) decimal.Decimal {
	return Round(net.Add(net.Mul(decimal.NewFromInt(int64(vatRate))).Div(hundred)))
}

// ValidateDiscount rejects unknown types, negative values and percentages above 100.
func ValidateDiscount(t DiscountType, value decimal.Decimal) error {
	switch t {
	case DiscountNone, "":
		return nil
	case DiscountPercent:
		if value.IsNegative() {
			return ErrNegativeDiscount
		}
		if value.GreaterThan(hundred) {
			return ErrPercentOverHundred
		}
		return nil
	case DiscountAmount:
		if value.IsNegative() {
			return ErrNegativeDiscount
		}
		return nil
	default:
		return ErrInvalidDiscountType
	}
}

// Discount pairs a discount type with its value.
type Discount struct {
	Type  DiscountType
	Value decimal.Decimal
}

// MaxPercent returns the largest percentage among percent-typed discounts, zero if none.
func MaxPercent(discounts ...Discount) decimal.Decimal {
	highest := decimal.Zero
	for _, d := range discounts {
		if d.Type == DiscountPercent && d.Value.GreaterThan(highest) {
			highest = d.Value
		}
	}
	return highest
}

// apply computes the discount taken off base. Amount discounts are capped at base;
// negative values count as no discount.
func apply(t DiscountType, value, base decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	switch t {
	case DiscountPercent:
		return decimal.Min(Round(base.Mul(value).Div(hundred)), base)
	case DiscountAmount:
		return decimal.Min(value, base)
	default:
		return decimal.Zero
	}
}

func vat(amount decimal.Decimal, rate int) decimal.Decimal {
	return Round(amount.Mul(decimal.NewFromInt(int64(rate))).Div(hundred))
}
