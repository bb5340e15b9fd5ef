package pricing

import "github.com/shopspring/decimal"

// Order is the pricing input for a whole offer.
type Order struct {
	Lines                []Line
	OverallDiscountType  DiscountType
	OverallDiscountValue decimal.Decimal
}

// OrderTotals holds the offer level figures. FinalTotal is the billed amount.
type OrderTotals struct {
	Lines                        []LineTotals    `json:"lines"`
	ItemsSubtotalNet             decimal.Decimal `json:"items_subtotal_net"`
	ItemsSubtotalGross           decimal.Decimal `json:"items_subtotal_gross"`
	ItemsNetAfterItemDiscounts   decimal.Decimal `json:"items_net_after_item_discounts"`
	ItemsVATAfterItemDiscounts   decimal.Decimal `json:"items_vat_after_item_discounts"`
	ItemsGrossAfterItemDiscounts decimal.Decimal `json:"items_gross_after_item_discounts"`
	OverallDiscountAmount        decimal.Decimal `json:"overall_discount_amount"`
	NetAfterOverallDiscount      decimal.Decimal `json:"net_after_overall_discount"`
	VATAfterOverallDiscount      decimal.Decimal `json:"vat_after_overall_discount"`
	FinalTotal                   decimal.Decimal `json:"final_total"`
	TotalItemDiscounts           decimal.Decimal `json:"total_item_discounts"`
}

// ComputeOrder computes the totals of an offer.
//
// The overall discount applies to N, the net total after item discounts. Because
// lines may carry different VAT rates, the discount is spread over the lines in
// proportion to their share of N and VAT is recomputed per line on what remains.
func ComputeOrder(o Order) OrderTotals {
	t := OrderTotals{
		Lines:                        make([]LineTotals, len(o.Lines)),
		ItemsSubtotalNet:             decimal.Zero,
		ItemsSubtotalGross:           decimal.Zero,
		ItemsNetAfterItemDiscounts:   decimal.Zero,
		ItemsVATAfterItemDiscounts:   decimal.Zero,
		ItemsGrossAfterItemDiscounts: decimal.Zero,
		VATAfterOverallDiscount:      decimal.Zero,
	}
	for i, l := range o.Lines {
		lt := ComputeLine(l)
		t.Lines[i] = lt
		t.ItemsSubtotalNet = t.ItemsSubtotalNet.Add(lt.GrossLineSubtotal)
		t.ItemsSubtotalGross = t.ItemsSubtotalGross.Add(lt.GrossTotalPrice)
		t.ItemsNetAfterItemDiscounts = t.ItemsNetAfterItemDiscounts.Add(lt.LineSubtotal)
		t.ItemsVATAfterItemDiscounts = t.ItemsVATAfterItemDiscounts.Add(lt.VATAmount)
		t.ItemsGrossAfterItemDiscounts = t.ItemsGrossAfterItemDiscounts.Add(lt.TotalPrice)
	}

	n := t.ItemsNetAfterItemDiscounts
	t.OverallDiscountAmount = apply(o.OverallDiscountType, o.OverallDiscountValue, n)
	t.NetAfterOverallDiscount = n.Sub(t.OverallDiscountAmount)

	if n.IsPositive() {
		for i, l := range o.Lines {
			sub := t.Lines[i].LineSubtotal
			share := t.OverallDiscountAmount.Mul(sub).Div(n)
			t.VATAfterOverallDiscount = t.VATAfterOverallDiscount.Add(vat(sub.Sub(share), l.VATRate))
		}
	}

	t.FinalTotal = t.NetAfterOverallDiscount.Add(t.VATAfterOverallDiscount)
	t.TotalItemDiscounts = t.ItemsSubtotalNet.Sub(t.ItemsNetAfterItemDiscounts)
	return t
}
