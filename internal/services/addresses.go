package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/validation"
)

// AddressInput is the editable part of an address.
type AddressInput struct {
	Title         string             `json:"title"`
	Type          models.AddressType `json:"type"`
	Line          string             `json:"line"`
	City          string             `json:"city"`
	District      string             `json:"district"`
	PostalCode    string             `json:"postal_code"`
	ContactPerson string             `json:"contact_person"`
	Phone         string             `json:"phone"`
	Email         string             `json:"email"`
	Notes         string             `json:"notes"`
	IsDefault     bool               `json:"is_default"`
	IsActive      *bool              `json:"is_active"`
}

func (in *AddressInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Line = strings.TrimSpace(in.Line)
	in.City = strings.TrimSpace(in.City)
	in.District = strings.TrimSpace(in.District)
	in.Email = strings.TrimSpace(in.Email)
	if in.Type == "" {
		in.Type = models.AddressBranch
	}

	v := validation.Violations{}
	validation.Required("title", in.Title, v)
	validation.MaxLen("title", in.Title, 100, v)
	validation.Required("line", in.Line, v)
	validation.Required("city", in.City, v)
	validation.MaxLen("postal_code", in.PostalCode, 10, v)
	validation.MaxLen("phone", in.Phone, 20, v)
	validation.Email("email", in.Email, v)
	if !in.Type.Valid() {
		v.Add("type", "invalid_choice")
	}
	return invalid(v)
}

func (in *AddressInput) apply(a *models.Address) {
	a.Title = in.Title
	a.Type = in.Type
	a.Line = in.Line
	a.City = in.City
	a.District = in.District
	a.PostalCode = in.PostalCode
	a.ContactPerson = in.ContactPerson
	a.Phone = in.Phone
	a.Email = in.Email
	a.Notes = in.Notes
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
}

// AddressService manages the per-user address book. Ownership is checked by
// the caller before an address is passed in.
type AddressService struct {
	db *gorm.DB
}

func NewAddressService(db *gorm.DB) *AddressService {
	return &AddressService{db: db}
}

// List returns the user's addresses, default first, then newest.
func (s *AddressService) List(ctx context.Context, userID uint) ([]models.Address, error) {
	addrs := []models.Address{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC, id DESC").
		Find(&addrs).Error
	return addrs, err
}

func (s *AddressService) Get(ctx context.Context, id uint) (*models.Address, error) {
	var a models.Address
	err := s.db.WithContext(ctx).First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create adds an address. The first address of a user becomes the default.
func (s *AddressService) Create(ctx context.Context, userID uint, in AddressInput) (*models.Address, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	a := &models.Address{UserID: userID, IsActive: true}
	in.apply(a)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Address{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
			return err
		}
		a.IsDefault = in.IsDefault || n == 0
		if a.IsDefault {
			if err := clearDefault(tx, userID); err != nil {
				return err
			}
		}
		return tx.Create(a).Error
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Update replaces the fields of a. IsDefault only ever promotes; the default
// moves through SetDefault or Delete.
func (s *AddressService) Update(ctx context.Context, a *models.Address, in AddressInput) error {
	if err := in.normalize(); err != nil {
		return err
	}
	in.apply(a)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.IsDefault && !a.IsDefault {
			if err := clearDefault(tx, a.UserID); err != nil {
				return err
			}
			a.IsDefault = true
		}
		return tx.Save(a).Error
	})
}

// SetDefault makes a the only default address of its owner.
func (s *AddressService) SetDefault(ctx context.Context, a *models.Address) error {
	if !a.IsActive {
		return invalid(validation.Violations{"is_active": "inactive_address"})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearDefault(tx, a.UserID); err != nil {
			return err
		}
		if err := tx.Model(a).Update("is_default", true).Error; err != nil {
			return err
		}
		a.IsDefault = true
		return nil
	})
}

// Delete removes a. When it was the default, the newest remaining active
// address takes over.
func (s *AddressService) Delete(ctx context.Context, a *models.Address) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Address{}, a.ID).Error; err != nil {
			return err
		}
		if !a.IsDefault {
			return nil
		}
		var next models.Address
		err := tx.Where("user_id = ? AND is_active = ?", a.UserID, true).
			Order("created_at DESC, id DESC").
			First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).Update("is_default", true).Error
	})
}

func clearDefault(tx *gorm.DB, userID uint) error {
	return tx.Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}
