package offers

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
	"github.com/diewo77/go-offers/internal/pricing"
)

// ActiveDraft returns the user's cart draft, creating it on first use.
// The cart_owner_id unique index makes concurrent calls converge on one row.
func (s *Service) ActiveDraft(ctx context.Context, userID uint) (*models.Offer, error) {
	const op = "active_draft"
	if !s.has(ctx, userID, policy.CapOfferCreate) {
		return nil, authErr(op, "missing capability "+string(policy.CapOfferCreate))
	}
	return s.activeDraft(ctx, s.db.WithContext(ctx), userID)
}

func (s *Service) activeDraft(ctx context.Context, tx *gorm.DB, userID uint) (*models.Offer, error) {
	if o, err := s.findCart(ctx, tx, userID); err == nil || !errors.Is(err, ErrNotFound) {
		return o, err
	}

	owner := userID
	draft := models.Offer{
		UserID:              userID,
		Status:              models.OfferDraft,
		OverallDiscountType: pricing.DiscountNone,
		RevisionNumber:      1,
		CartOwnerID:         &owner,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&draft)
	if res.Error != nil {
		return nil, res.Error
	}
	o, err := s.findCart(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected > 0 {
		s.record(ctx, activity(userID, models.ActivityOfferCreated, o, nil, o.Label()+" created", nil))
	}
	return o, nil
}

func (s *Service) findCart(ctx context.Context, tx *gorm.DB, userID uint) (*models.Offer, error) {
	var o models.Offer
	err := tx.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("offer_items.id")
	}).Where("cart_owner_id = ?", userID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("active_draft", "cart")
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// AddItem puts quantity units of a product into the user's cart. The unit
// price and VAT rate are copied from the product; adding a product that is
// already in the cart increases its quantity.
func (s *Service) AddItem(ctx context.Context, userID, productID uint, quantity int) (*models.OfferItem, error) {
	const op = "add_item"
	if quantity < 1 {
		return nil, validationErr(op, "quantity must be at least 1")
	}
	if !s.has(ctx, userID, policy.CapOfferCreate) {
		return nil, authErr(op, "missing capability "+string(policy.CapOfferCreate))
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(op, "product")
		}
		return nil, err
	}

	cart, err := s.activeDraft(ctx, s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}

	var item models.OfferItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.OfferItem{}).
			Where("offer_id = ? AND product_id = ?", cart.ID, product.ID).
			Where("offer_id IN (?)", mutableOffers(tx, cart.ID)).
			Update("quantity", gorm.Expr("quantity + ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var o models.Offer
			if err := tx.Select("id", "status", "manager_approval_pending").First(&o, cart.ID).Error; err != nil {
				return err
			}
			if !o.IsMutable() {
				return stateErr(op, "cart is no longer editable")
			}
			item = models.OfferItem{
				OfferID:      cart.ID,
				ProductID:    product.ID,
				ProductName:  product.Name,
				Quantity:     quantity,
				UnitPrice:    product.NetPrice(),
				VATRate:      product.VATRate,
				DiscountType: pricing.DiscountNone,
			}
			return tx.Create(&item).Error
		}
		return tx.Where("offer_id = ? AND product_id = ?", cart.ID, product.ID).First(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItemQuantity sets the quantity of a line of a mutable draft.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, itemID uint, quantity int) (*models.OfferItem, error) {
	const op = "update_item"
	if quantity < 1 {
		return nil, validationErr(op, "quantity must be at least 1")
	}
	var item models.OfferItem
	editAll := s.has(ctx, userID, policy.CapOfferEditAll)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		it, err := s.editableItem(ctx, tx, op, userID, itemID, editAll)
		if err != nil {
			return err
		}
		res := tx.Model(&models.OfferItem{}).
			Where("id = ? AND offer_id IN (?)", it.ID, mutableOffers(tx, it.OfferID)).
			Update("quantity", quantity)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return stateErr(op, "offer is no longer editable")
		}
		return tx.First(&item, it.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveItem deletes a line from a mutable draft.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID uint) error {
	const op = "remove_item"
	editAll := s.has(ctx, userID, policy.CapOfferEditAll)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		it, err := s.editableItem(ctx, tx, op, userID, itemID, editAll)
		if err != nil {
			return err
		}
		res := tx.Where("id = ? AND offer_id IN (?)", it.ID, mutableOffers(tx, it.OfferID)).Delete(&models.OfferItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return stateErr(op, "offer is no longer editable")
		}
		return nil
	})
}

func (s *Service) editableItem(ctx context.Context, tx *gorm.DB, op string, userID, itemID uint, editAll bool) (*models.OfferItem, error) {
	var it models.OfferItem
	if err := tx.First(&it, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(op, "offer item")
		}
		return nil, err
	}
	o, err := s.loadOffer(ctx, tx, op, it.OfferID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID && !editAll {
		return nil, authErr(op, "offer belongs to another user")
	}
	if !o.IsMutable() {
		return nil, stateErr(op, "only drafts that are not awaiting approval can be edited")
	}
	return &it, nil
}

// mutableOffers selects offerID while it is a draft not awaiting the manager.
func mutableOffers(tx *gorm.DB, offerID uint) *gorm.DB {
	return tx.Session(&gorm.Session{NewDB: true}).Model(&models.Offer{}).Select("id").
		Where("id = ? AND status = ? AND manager_approval_pending = ?", offerID, models.OfferDraft, false)
}

// ActivateDraft makes a parked draft (a revision or a draft returned by the
// manager) the user's cart. The previous cart stays a draft, out of the slot.
func (s *Service) ActivateDraft(ctx context.Context, userID, offerID uint) (*models.Offer, error) {
	const op = "activate_draft"
	var out *models.Offer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.loadOffer(ctx, tx, op, offerID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return authErr(op, "offer belongs to another user")
		}
		if !o.IsMutable() {
			return stateErr(op, "only drafts that are not awaiting approval can become the cart")
		}
		if o.IsActiveCart() {
			out = o
			return nil
		}
		if err := tx.Model(&models.Offer{}).Where("cart_owner_id = ?", userID).
			Update("cart_owner_id", nil).Error; err != nil {
			return err
		}
		err = transition(tx, op, o.ID, models.OfferDraft, map[string]any{"manager_approval_pending": false, "user_id": userID},
			map[string]any{"cart_owner_id": userID})
		if err != nil {
			return err
		}
		out, err = s.loadOffer(ctx, tx, op, o.ID)
		return err
	})
	return out, err
}

// Delete removes a draft offer and its items. Non-draft offers are kept forever.
func (s *Service) Delete(ctx context.Context, offerID, actorID uint) error {
	const op = "delete"
	var deleted *models.Offer
	g := s.grantsOf(ctx, actorID, policy.CapOfferDelete, policy.CapOfferDeleteAll, policy.CapOfferManagerApprove)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.loadOffer(ctx, tx, op, offerID)
		if err != nil {
			return err
		}
		if !o.IsDraft() {
			return stateErr(op, "only draft offers can be deleted")
		}
		actor, err := s.loadUser(ctx, tx, op, actorID)
		if err != nil {
			return err
		}
		owner, err := s.loadUser(ctx, tx, op, o.UserID)
		if err != nil {
			return err
		}
		allowed := g[policy.CapOfferDeleteAll] ||
			(actor.ID == owner.ID && g[policy.CapOfferDelete]) ||
			isManagerOf(actor, owner, g)
		if !allowed {
			return authErr(op, "not allowed to delete this offer")
		}

		if err := tx.Where("offer_id = ?", o.ID).Delete(&models.FavoriteDraft{}).Error; err != nil {
			return err
		}
		if err := tx.Where("offer_id = ?", o.ID).Delete(&models.OfferItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND status = ?", o.ID, models.OfferDraft).Delete(&models.Offer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return stateErr(op, "offer changed concurrently")
		}
		deleted = o
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, activity(actorID, models.ActivityOfferDeleted, deleted, &deleted.UserID,
		fmt.Sprintf("%s deleted", deleted.Label()), nil))
	return nil
}
