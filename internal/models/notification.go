package models

import "time"

// NotificationKind controls how a notification is presented.
type NotificationKind string

const (
	NotifyInfo    NotificationKind = "info"
	NotifySuccess NotificationKind = "success"
	NotifyWarning NotificationKind = "warning"
	NotifyError   NotificationKind = "error"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID  uint             `gorm:"index;not null" json:"user_id"`
	Title   string           `gorm:"size:200;not null" json:"title"`
	Message string           `gorm:"type:text;not null" json:"message"`
	Kind    NotificationKind `gorm:"size:20;not null" json:"kind"`
	OfferID *uint            `gorm:"index" json:"offer_id,omitempty"`
	Link    string           `gorm:"size:500" json:"link,omitempty"`

	IsRead bool       `gorm:"not null;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}
