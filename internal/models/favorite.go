package models

import "time"

// FavoriteProduct marks a product for quick access.
type FavoriteProduct struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_fav_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_fav_product" json:"product_id"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// FavoriteDraft bookmarks a draft offer with an optional note.
type FavoriteDraft struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_fav_draft" json:"user_id"`
	OfferID   uint      `gorm:"not null;uniqueIndex:idx_fav_draft" json:"offer_id"`
	Offer     *Offer    `gorm:"foreignKey:OfferID;constraint:OnDelete:CASCADE" json:"offer,omitempty"`
	Note      string    `gorm:"size:255" json:"note,omitempty"`
}

// All lists every model for AutoMigrate, parents first.
func All() []any {
	return []any{
		&Permission{},
		&Profile{},
		&User{},
		&UserPermission{},
		&Product{},
		&Address{},
		&Offer{},
		&OfferItem{},
		&Notification{},
		&ActivityLog{},
		&FavoriteProduct{},
		&FavoriteDraft{},
	}
}
