package models

import (
	"time"

	"gorm.io/gorm"
)

// Role separates supplier accounts from pharmacy accounts.
type Role string

const (
	RoleFirma  Role = "firma"
	RoleEczane Role = "eczane"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleFirma || r == RoleEczane
}

// User represents an authenticated user in the system.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string         `gorm:"size:255" json:"name,omitempty"`
	Password  string         `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON
	Phone     string         `gorm:"size:50" json:"phone,omitempty"`

	Role             Role   `gorm:"size:20;not null;index" json:"role"`
	OrganizationName string `gorm:"size:255" json:"organization_name,omitempty"`

	IsManager  bool `gorm:"not null" json:"is_manager"`
	IsApproved bool `gorm:"not null;index" json:"is_approved"`
	IsActive   bool `gorm:"not null" json:"is_active"`

	// ManagerID and ApprovedByID are plain references to other users; deleting
	// either user leaves this row untouched.
	ManagerID    *uint      `gorm:"index" json:"manager_id,omitempty"`
	ApprovedByID *uint      `json:"approved_by_id,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`

	// ProfileID links the user to an authorization profile.
	// A nil value means the user has no profile assigned (limited access).
	ProfileID *uint    `gorm:"index" json:"profile_id,omitempty"`
	Profile   *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`

	// PermissionOverrides adjust the profile for this user only.
	PermissionOverrides []UserPermission `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"permission_overrides,omitempty"`
}

func (u *User) IsFirma() bool  { return u.Role == RoleFirma }
func (u *User) IsEczane() bool { return u.Role == RoleEczane }

// CanLogin is true for approved, active accounts.
func (u *User) CanLogin() bool {
	return u.IsApproved && u.IsActive
}

// DisplayName prefers the organization, then the person, then the email.
func (u *User) DisplayName() string {
	switch {
	case u.OrganizationName != "":
		return u.OrganizationName
	case u.Name != "":
		return u.Name
	default:
		return u.Email
	}
}

// Manages reports whether u is the manager of member.
func (u *User) Manages(member *User) bool {
	return u.IsManager && member.ManagerID != nil && *member.ManagerID == u.ID
}
