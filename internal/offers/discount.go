package offers

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
	"github.com/diewo77/go-offers/internal/pricing"
)

// ItemDiscount is the requested discount for one line. A nil Note keeps the
// existing note.
type ItemDiscount struct {
	ItemID uint
	Type   pricing.DiscountType
	Value  decimal.Decimal
	Note   *string
}

// DiscountInput carries the pharmacy's discounts for a sent offer. Lines not
// listed keep their current discount.
type DiscountInput struct {
	Items        []ItemDiscount
	OverallType  pricing.DiscountType
	OverallValue decimal.Decimal
}

func (in DiscountInput) discounts() []pricing.Discount {
	out := make([]pricing.Discount, 0, len(in.Items)+1)
	for _, it := range in.Items {
		out = append(out, pricing.Discount{Type: it.Type, Value: it.Value})
	}
	return append(out, pricing.Discount{Type: in.OverallType, Value: in.OverallValue})
}

// ApplyDiscounts writes item and overall discounts on a sent offer. The
// largest requested percentage decides whether discount:apply_high is needed;
// nothing is written when the check fails.
func (s *Service) ApplyDiscounts(ctx context.Context, offerID, actorID uint, in DiscountInput) (*models.Offer, error) {
	const op = "apply_discounts"

	if in.OverallType == "" {
		in.OverallType = pricing.DiscountNone
	}
	for i := range in.Items {
		if in.Items[i].Type == "" {
			in.Items[i].Type = pricing.DiscountNone
		}
		if err := pricing.ValidateDiscount(in.Items[i].Type, in.Items[i].Value); err != nil {
			return nil, validationErr(op, fmt.Sprintf("item %d: %v", in.Items[i].ItemID, err))
		}
	}
	if err := pricing.ValidateDiscount(in.OverallType, in.OverallValue); err != nil {
		return nil, validationErr(op, "overall discount: "+err.Error())
	}

	var out *models.Offer
	g := s.grantsOf(ctx, actorID, policy.CapDiscountApply, policy.CapDiscountApplyHigh)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.loadOffer(ctx, tx, op, offerID)
		if err != nil {
			return err
		}
		if o.Status != models.OfferSent {
			return stateErr(op, "discounts can only be applied to sent offers")
		}
		if !g[policy.CapDiscountApply] {
			return authErr(op, "missing capability "+string(policy.CapDiscountApply))
		}
		maxPct := pricing.MaxPercent(in.discounts()...)
		if maxPct.GreaterThanOrEqual(s.cfg.HighDiscountPercent) && !g[policy.CapDiscountApplyHigh] {
			return authErr(op, fmt.Sprintf("discounts of %s%% and above need %s",
				s.cfg.HighDiscountPercent.String(), policy.CapDiscountApplyHigh))
		}

		owned := make(map[uint]bool, len(o.Items))
		for _, it := range o.Items {
			owned[it.ID] = true
		}
		for _, d := range in.Items {
			if !owned[d.ItemID] {
				return notFound(op, fmt.Sprintf("offer item %d", d.ItemID))
			}
		}

		err = transition(tx, op, o.ID, models.OfferSent, nil, map[string]any{
			"overall_discount_type":  in.OverallType,
			"overall_discount_value": in.OverallValue,
		})
		if err != nil {
			return err
		}
		for _, d := range in.Items {
			updates := map[string]any{
				"discount_type":  d.Type,
				"discount_value": d.Value,
			}
			if d.Note != nil {
				updates["note"] = strings.TrimSpace(*d.Note)
			}
			if err := tx.Model(&models.OfferItem{}).Where("id = ? AND offer_id = ?", d.ItemID, o.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		out, err = s.loadOffer(ctx, tx, op, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	tot := out.Totals()
	s.record(ctx, activity(actorID, models.ActivityDiscountApplied, out, &out.UserID,
		fmt.Sprintf("Discounts applied to %s, final total %s", out.Label(), tot.FinalTotal.StringFixed(2)),
		map[string]any{
			"max_percent":      maxPercentString(in),
			"overall_type":     in.OverallType,
			"overall_value":    in.OverallValue.String(),
			"item_discounts":   tot.TotalItemDiscounts.StringFixed(2),
			"overall_discount": tot.OverallDiscountAmount.StringFixed(2),
		}))
	return out, nil
}

func maxPercentString(in DiscountInput) string {
	return pricing.MaxPercent(in.discounts()...).String()
}
