package offers

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/go-offers/internal/models"
)

// AssignDeliveryAddresses sets the delivery address of items of an approved
// offer. assignments maps item id to address id; every address must be an
// active address of the offer owner.
func (s *Service) AssignDeliveryAddresses(ctx context.Context, offerID, actorID uint, assignments map[uint]uint) (*models.Offer, error) {
	const op = "assign_delivery"
	var out *models.Offer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.loadOffer(ctx, tx, op, offerID)
		if err != nil {
			return err
		}
		if o.Status != models.OfferApproved {
			return stateErr(op, "delivery addresses can only be assigned to approved offers")
		}
		if o.UserID != actorID {
			return authErr(op, "only the offer owner can assign delivery addresses")
		}

		items := make(map[uint]bool, len(o.Items))
		for _, it := range o.Items {
			items[it.ID] = true
		}
		addrIDs := make([]uint, 0, len(assignments))
		for itemID, addrID := range assignments {
			if !items[itemID] {
				return notFound(op, fmt.Sprintf("offer item %d", itemID))
			}
			addrIDs = append(addrIDs, addrID)
		}

		var count int64
		if len(addrIDs) > 0 {
			err := tx.Model(&models.Address{}).
				Where("id IN ? AND user_id = ? AND is_active = ?", dedupe(addrIDs), o.UserID, true).
				Count(&count).Error
			if err != nil {
				return err
			}
		}
		if int(count) != len(dedupe(addrIDs)) {
			return notFound(op, "delivery address")
		}

		approved := tx.Session(&gorm.Session{NewDB: true}).Model(&models.Offer{}).Select("id").
			Where("id = ? AND status = ?", o.ID, models.OfferApproved)
		for itemID, addrID := range assignments {
			res := tx.Model(&models.OfferItem{}).
				Where("id = ? AND offer_id IN (?)", itemID, approved).
				Update("delivery_address_id", addrID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return stateErr(op, "offer changed concurrently")
			}
		}
		out, err = s.loadOffer(ctx, tx, op, o.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, activity(actorID, models.ActivityDeliveryAssigned, out, nil,
		fmt.Sprintf("Delivery addresses assigned for %d items of %s", len(assignments), out.Label()), nil))
	return out, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
