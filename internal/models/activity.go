package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityAction names a recorded event.
type ActivityAction string

const (
	ActivityOfferCreated             ActivityAction = "offer_created"
	ActivityOfferSent                ActivityAction = "offer_sent"
	ActivityOfferSentForApproval     ActivityAction = "offer_sent_for_approval"
	ActivityManagerApprovedOffer     ActivityAction = "manager_approved_offer"
	ActivityManagerRejectedOffer     ActivityAction = "manager_rejected_offer"
	ActivityOfferApproved            ActivityAction = "offer_approved"
	ActivityOfferRejected            ActivityAction = "offer_rejected"
	ActivityDiscountApplied          ActivityAction = "discount_applied"
	ActivityInvoiceUpdated           ActivityAction = "invoice_updated"
	ActivityInvoiceRevisionRequested ActivityAction = "invoice_revision_requested"
	ActivityInvoiceRevisionApproved  ActivityAction = "invoice_revision_approved"
	ActivityInvoiceRevisionRejected  ActivityAction = "invoice_revision_rejected"
	ActivityOfferRevised             ActivityAction = "offer_revised"
	ActivityOfferDeleted             ActivityAction = "offer_deleted"
	ActivityDeliveryAssigned         ActivityAction = "delivery_addresses_assigned"
	ActivityUserApproved             ActivityAction = "user_approved"
	ActivityUserPermissionsChanged   ActivityAction = "user_permissions_changed"
)

// ActivityLog records who did what to which offer or user.
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID       uint           `gorm:"index;not null" json:"user_id"`
	Action       ActivityAction `gorm:"size:50;not null;index" json:"action"`
	OfferID      *uint          `gorm:"index" json:"offer_id,omitempty"`
	TargetUserID *uint          `json:"target_user_id,omitempty"`
	Description  string         `gorm:"type:text" json:"description"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
	IPAddress    string         `gorm:"size:45" json:"ip_address,omitempty"`
}
