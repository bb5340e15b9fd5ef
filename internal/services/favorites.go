package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-offers/internal/models"
)

// FavoriteService toggles favourite products and bookmarked drafts.
type FavoriteService struct {
	db *gorm.DB
}

func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{db: db}
}

// ToggleProduct adds or removes a favourite product and reports whether it
// is a favourite afterwards.
func (s *FavoriteService) ToggleProduct(ctx context.Context, userID, productID uint) (bool, error) {
	var added bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.Select("id").First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		res := tx.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.FavoriteProduct{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		added = true
		return tx.Create(&models.FavoriteProduct{UserID: userID, ProductID: productID}).Error
	})
	return added, err
}

// Products lists the user's favourite products that are still in the catalogue.
func (s *FavoriteService) Products(ctx context.Context, userID uint) ([]models.FavoriteProduct, error) {
	favs := []models.FavoriteProduct{}
	err := s.db.WithContext(ctx).
		InnerJoins("Product").
		Where("favorite_products.user_id = ?", userID).
		Order("favorite_products.created_at DESC").
		Find(&favs).Error
	return favs, err
}

// ToggleDraft bookmarks or un-bookmarks one of the user's own drafts.
func (s *FavoriteService) ToggleDraft(ctx context.Context, userID, offerID uint, note string) (bool, error) {
	var added bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Offer
		err := tx.Select("id").
			Where("id = ? AND user_id = ? AND status = ?", offerID, userID, models.OfferDraft).
			First(&o).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND offer_id = ?", userID, offerID).Delete(&models.FavoriteDraft{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		added = true
		return tx.Create(&models.FavoriteDraft{UserID: userID, OfferID: offerID, Note: strings.TrimSpace(note)}).Error
	})
	return added, err
}

// Drafts lists the user's bookmarked drafts with their offers.
func (s *FavoriteService) Drafts(ctx context.Context, userID uint) ([]models.FavoriteDraft, error) {
	favs := []models.FavoriteDraft{}
	err := s.db.WithContext(ctx).
		Preload("Offer.Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favs).Error
	return favs, err
}
