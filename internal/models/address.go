package models

import (
	"strings"
	"time"
)

// AddressType classifies an address in the address book.
type AddressType string

const (
	AddressHeadquarter AddressType = "headquarter"
	AddressBranch      AddressType = "branch"
	AddressWarehouse   AddressType = "warehouse"
	AddressOther       AddressType = "other"
)

// Valid reports whether t is a known address type.
func (t AddressType) Valid() bool {
	switch t {
	case AddressHeadquarter, AddressBranch, AddressWarehouse, AddressOther:
		return true
	}
	return false
}

// Address is a delivery or billing address owned by a user.
type Address struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint `gorm:"index;not null" json:"user_id"`

	Title         string      `gorm:"size:100;not null" json:"title"`
	Type          AddressType `gorm:"size:20;not null" json:"type"`
	Line          string      `gorm:"type:text;not null" json:"line"`
	City          string      `gorm:"size:100;not null" json:"city"`
	District      string      `gorm:"size:100;not null" json:"district"`
	PostalCode    string      `gorm:"size:10" json:"postal_code,omitempty"`
	ContactPerson string      `gorm:"size:100" json:"contact_person,omitempty"`
	Phone         string      `gorm:"size:20" json:"phone,omitempty"`
	Email         string      `gorm:"size:255" json:"email,omitempty"`
	Notes         string      `gorm:"type:text" json:"notes,omitempty"`

	IsDefault bool `gorm:"not null" json:"is_default"`
	IsActive  bool `gorm:"not null" json:"is_active"`
}

// GetUserID implements the Ownable interface.
func (a *Address) GetUserID() uint {
	return a.UserID
}

// FullAddress joins the address parts on one line.
func (a *Address) FullAddress() string {
	parts := []string{a.Line}
	if a.District != "" {
		parts = append(parts, a.District)
	}
	city := a.City
	if a.PostalCode != "" {
		city = a.PostalCode + " " + city
	}
	if strings.TrimSpace(city) != "" {
		parts = append(parts, strings.TrimSpace(city))
	}
	return strings.Join(parts, ", ")
}
