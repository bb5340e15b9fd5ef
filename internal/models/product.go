package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/go-offers/internal/pricing"
)

// DefaultVATRate applies when a product is created without a rate.
const DefaultVATRate = 10

// Product is a catalogue entry shared by every firma account.
// Price is VAT-inclusive.
type Product struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name    string          `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Barcode *string         `gorm:"size:64;index" json:"barcode,omitempty"`
	Price   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	VATRate int             `gorm:"not null" json:"vat_rate"`

	PriceUpdatedAt time.Time `json:"price_updated_at"`
}

// NetPrice returns the VAT-exclusive unit price.
func (p *Product) NetPrice() decimal.Decimal {
	return pricing.NetPrice(p.Price, p.VATRate)
}

// BeforeCreate stamps the initial price date.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.PriceUpdatedAt.IsZero() {
		p.PriceUpdatedAt = time.Now()
	}
	return nil
}
