package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/go-offers/internal/pricing"
)

// OfferStatus is the lifecycle state of an offer.
type OfferStatus string

const (
	OfferDraft    OfferStatus = "draft"
	OfferSent     OfferStatus = "sent"
	OfferApproved OfferStatus = "approved"
	OfferRejected OfferStatus = "rejected"
	OfferRevised  OfferStatus = "revised"
)

// Offer is one quote document. Revisions point at the root of their chain
// through OriginalOfferID; the root itself has none and RevisionNumber 1.
type Offer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint  `gorm:"index;not null" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Status OfferStatus `gorm:"size:20;not null;index" json:"status"`
	SentAt *time.Time  `json:"sent_at,omitempty"`

	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	ApprovedByID *uint      `json:"approved_by_id,omitempty"`
	RejectedAt   *time.Time `json:"rejected_at,omitempty"`
	RejectedByID *uint      `json:"rejected_by_id,omitempty"`
	RejectReason string     `gorm:"type:text" json:"reject_reason,omitempty"`

	OverallDiscountType  pricing.DiscountType `gorm:"size:10;not null" json:"overall_discount_type"`
	OverallDiscountValue decimal.Decimal      `gorm:"type:decimal(12,2);not null" json:"overall_discount_value"`

	// Revision chain
	OriginalOfferID *uint      `gorm:"uniqueIndex:idx_offer_revision" json:"original_offer_id,omitempty"`
	RevisionNumber  int        `gorm:"not null;uniqueIndex:idx_offer_revision" json:"revision_number"`
	RevisedAt       *time.Time `json:"revised_at,omitempty"`
	RevisionNote    string     `gorm:"type:text" json:"revision_note,omitempty"`

	// Manager pre-approval for high-value offers
	RequiresManagerApproval bool       `gorm:"not null" json:"requires_manager_approval"`
	ManagerApprovalPending  bool       `gorm:"not null;index" json:"manager_approval_pending"`
	ApprovedByManagerID     *uint      `json:"approved_by_manager_id,omitempty"`
	ManagerApprovedAt       *time.Time `json:"manager_approved_at,omitempty"`
	ManagerRejectionReason  string     `gorm:"type:text" json:"manager_rejection_reason,omitempty"`

	// Invoice metadata entered by the pharmacy after approval
	InvoiceNumber                string     `gorm:"size:100" json:"invoice_number,omitempty"`
	InvoiceDate                  *time.Time `json:"invoice_date,omitempty"`
	DeliveryDeadline             *time.Time `json:"delivery_deadline,omitempty"`
	InvoiceRevisionPending       bool       `gorm:"not null" json:"invoice_revision_pending"`
	InvoiceRevisionApproved      bool       `gorm:"not null" json:"invoice_revision_approved"`
	InvoiceRevisionReason        string     `gorm:"type:text" json:"invoice_revision_reason,omitempty"`
	InvoiceRevisionRequestedByID *uint      `json:"invoice_revision_requested_by_id,omitempty"`
	InvoiceRevisionRequestedAt   *time.Time `json:"invoice_revision_requested_at,omitempty"`

	// CartOwnerID is set to UserID only while this draft is the owner's
	// active cart. The unique index keeps one active cart per user.
	CartOwnerID *uint `gorm:"uniqueIndex" json:"-"`

	Items []OfferItem `gorm:"foreignKey:OfferID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// GetUserID returns the owner, for ownership policies.
func (o *Offer) GetUserID() uint {
	return o.UserID
}

func (o *Offer) IsDraft() bool { return o.Status == OfferDraft }

// AwaitingManager is true while a high-value draft waits for the manager.
func (o *Offer) AwaitingManager() bool {
	return o.Status == OfferDraft && o.ManagerApprovalPending
}

// IsMutable reports whether items and quantities may still change.
func (o *Offer) IsMutable() bool {
	return o.Status == OfferDraft && !o.ManagerApprovalPending
}

// IsActiveCart reports whether this draft currently occupies the owner's cart slot.
func (o *Offer) IsActiveCart() bool {
	return o.CartOwnerID != nil
}

// RootID is the id of the first offer of the revision chain.
func (o *Offer) RootID() uint {
	if o.OriginalOfferID != nil {
		return *o.OriginalOfferID
	}
	return o.ID
}

// InvoiceComplete is true once number, date and delivery deadline are all set.
func (o *Offer) InvoiceComplete() bool {
	return o.InvoiceNumber != "" && o.InvoiceDate != nil && o.DeliveryDeadline != nil
}

// Label is the human readable offer reference used in notifications and exports.
func (o *Offer) Label() string {
	if o.RevisionNumber > 1 {
		return fmt.Sprintf("Offer #%d (Rev.%d)", o.ID, o.RevisionNumber)
	}
	return fmt.Sprintf("Offer #%d", o.ID)
}

// Order converts the offer and its loaded items into pricing input.
func (o *Offer) Order() pricing.Order {
	lines := make([]pricing.Line, len(o.Items))
	for i := range o.Items {
		lines[i] = o.Items[i].Line()
	}
	return pricing.Order{
		Lines:                lines,
		OverallDiscountType:  o.OverallDiscountType,
		OverallDiscountValue: o.OverallDiscountValue,
	}
}

// Totals computes the offer totals from the loaded items.
func (o *Offer) Totals() pricing.OrderTotals {
	return pricing.ComputeOrder(o.Order())
}

// OfferItem is one line of an offer. UnitPrice (net) and VATRate are
// snapshots taken when the line was created.
type OfferItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OfferID     uint     `gorm:"not null;uniqueIndex:idx_offer_item_product" json:"offer_id"`
	ProductID   uint     `gorm:"not null;uniqueIndex:idx_offer_item_product" json:"product_id"`
	Product     *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ProductName string   `gorm:"size:255;not null" json:"product_name"`

	Quantity      int                  `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal      `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	VATRate       int                  `gorm:"not null" json:"vat_rate"`
	DiscountType  pricing.DiscountType `gorm:"size:10;not null" json:"discount_type"`
	DiscountValue decimal.Decimal      `gorm:"type:decimal(12,2);not null" json:"discount_value"`
	Note          string               `gorm:"type:text" json:"note,omitempty"`

	DeliveryAddressID *uint    `gorm:"index" json:"delivery_address_id,omitempty"`
	DeliveryAddress   *Address `gorm:"foreignKey:DeliveryAddressID;constraint:OnDelete:SET NULL" json:"delivery_address,omitempty"`
}

// Line converts the item into pricing input.
func (i *OfferItem) Line() pricing.Line {
	return pricing.Line{
		UnitPrice:     i.UnitPrice,
		VATRate:       i.VATRate,
		Quantity:      i.Quantity,
		DiscountType:  i.DiscountType,
		DiscountValue: i.DiscountValue,
	}
}

// Totals computes the totals of this line.
func (i *OfferItem) Totals() pricing.LineTotals {
	return pricing.ComputeLine(i.Line())
}
