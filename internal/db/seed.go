package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/go-offers/gate"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
)

var profileDescriptions = map[string]string{
	policy.ProfileAdmin:        "Full system administrator with all permissions",
	policy.ProfileFirmaStaff:   "Supplier staff: build, send and revise own offers",
	policy.ProfileFirmaManager: "Supplier manager: team offers, high-value sending and approvals",
	policy.ProfileEczaneStaff:  "Pharmacy staff: reject offers, apply discounts, enter invoices",
	policy.ProfileEczaci:       "Pharmacist: approvals, high discounts, catalogue and invoice corrections",
}

// Seed creates the capability catalogue and the system profiles.
func Seed(db *gorm.DB) error {
	return SeedProfiles(db)
}

// SeedPermissions creates one row per known capability plus the superadmin
// wildcard. Existing rows are left untouched.
func SeedPermissions(db *gorm.DB) error {
	rows := append([]policy.Capability{{Perm: gate.PermissionSuperAdmin, Description: "Full system access"}}, policy.Catalogue...)
	for _, c := range rows {
		resource, action := c.Perm.Parse()
		perm := models.Permission{
			ResourceType: resource,
			Action:       string(action),
			Description:  c.Description,
		}
		result := db.Where("resource_type = ? AND action = ?", resource, string(action)).
			FirstOrCreate(&perm)
		if result.Error != nil {
			return fmt.Errorf("seed permission %s: %w", c.Perm, result.Error)
		}
	}
	return nil
}

// SeedProfiles creates the default system profiles and resets their
// permissions to the built-in sets.
func SeedProfiles(db *gorm.DB) error {
	if err := SeedPermissions(db); err != nil {
		return err
	}

	for name, caps := range policy.SystemProfiles {
		var profile models.Profile
		err := db.Where("name = ?", name).First(&profile).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = models.Profile{
				Name:        name,
				Description: profileDescriptions[name],
				IsSystem:    true,
			}
			if err := db.Create(&profile).Error; err != nil {
				return fmt.Errorf("create profile %s: %w", name, err)
			}
		}

		perms := make([]models.Permission, 0, len(caps))
		for _, c := range caps {
			resource, action := c.Parse()
			var perm models.Permission
			if err := db.Where("resource_type = ? AND action = ?", resource, string(action)).First(&perm).Error; err != nil {
				return fmt.Errorf("profile %s: permission %s: %w", name, c, err)
			}
			perms = append(perms, perm)
		}
		if err := db.Model(&profile).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("assign permissions to %s: %w", name, err)
		}
	}
	return nil
}

// SeedAdmin makes sure an approved account with the admin profile exists for
// email. The password of an existing account is not changed.
func SeedAdmin(db *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	var profile models.Profile
	if err := db.Where("name = ?", policy.ProfileAdmin).First(&profile).Error; err != nil {
		return fmt.Errorf("admin profile: %w", err)
	}

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if err == nil {
		return db.Model(&user).Updates(map[string]any{
			"profile_id":  profile.ID,
			"is_approved": true,
			"is_active":   true,
		}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	now := time.Now()
	user = models.User{
		Email:      email,
		Name:       "Administrator",
		Password:   string(hash),
		Role:       models.RoleFirma,
		IsApproved: true,
		IsActive:   true,
		ApprovedAt: &now,
		ProfileID:  &profile.ID,
	}
	return db.Create(&user).Error
}
