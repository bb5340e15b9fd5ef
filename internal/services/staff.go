package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/go-offers/gate"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
)

// CacheInvalidator drops cached capability sets after a change.
type CacheInvalidator interface {
	InvalidateUser(userIDs ...uint)
}

// StaffService lets managers tune the capabilities of their own team.
type StaffService struct {
	db       *gorm.DB
	cache    CacheInvalidator
	activity *ActivityService
}

// NewStaffService creates the service. cache and activity may be nil.
func NewStaffService(db *gorm.DB, cache CacheInvalidator, activity *ActivityService) *StaffService {
	return &StaffService{db: db, cache: cache, activity: activity}
}

// Team lists the members reporting to managerID with their overrides.
func (s *StaffService) Team(ctx context.Context, managerID uint) ([]models.User, error) {
	team := []models.User{}
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Preload("PermissionOverrides.Permission").
		Where("manager_id = ?", managerID).
		Order("name, email").
		Find(&team).Error
	return team, err
}

// Grantable returns the capabilities a manager of role may hand out: those
// of the manager profile of that side.
func Grantable(role models.Role) []gate.Permission {
	return policy.SystemProfiles[policy.DefaultProfile(role == models.RoleFirma, true)]
}

func (s *StaffService) member(ctx context.Context, tx *gorm.DB, managerID, staffID uint) (*models.User, *models.User, error) {
	var manager, staff models.User
	if err := tx.WithContext(ctx).First(&manager, managerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrForbidden
		}
		return nil, nil, err
	}
	if err := tx.WithContext(ctx).First(&staff, staffID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if !manager.Manages(&staff) || staff.IsManager {
		return nil, nil, ErrForbidden
	}
	return &manager, &staff, nil
}

// SetCapability grants (granted=true) or revokes one capability for a team
// member on top of their profile.
func (s *StaffService) SetCapability(ctx context.Context, managerID, staffID uint, perm gate.Permission, granted bool) error {
	var staff *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		manager, member, err := s.member(ctx, tx, managerID, staffID)
		if err != nil {
			return err
		}
		staff = member
		if !slices.Contains(Grantable(manager.Role), perm) {
			return invalid(map[string]string{"permission": "not_grantable"})
		}
		p, err := permissionRow(tx, perm)
		if err != nil {
			return err
		}
		override := models.UserPermission{
			UserID:       staffID,
			PermissionID: p.ID,
			Granted:      granted,
			ChangedByID:  &managerID,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"granted", "changed_by_id", "updated_at"}),
		}).Create(&override).Error
	})
	if err != nil {
		return err
	}
	s.changed(ctx, managerID, staff, map[string]any{"permission": perm, "granted": granted})
	return nil
}

// ResetCapability removes an override so the profile decides again.
func (s *StaffService) ResetCapability(ctx context.Context, managerID, staffID uint, perm gate.Permission) error {
	var staff *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, member, err := s.member(ctx, tx, managerID, staffID)
		if err != nil {
			return err
		}
		staff = member
		p, err := permissionRow(tx, perm)
		if err != nil {
			return err
		}
		return tx.Where("user_id = ? AND permission_id = ?", staffID, p.ID).Delete(&models.UserPermission{}).Error
	})
	if err != nil {
		return err
	}
	s.changed(ctx, managerID, staff, map[string]any{"permission": perm, "reset": true})
	return nil
}

// SetActive enables or disables a team member's account.
func (s *StaffService) SetActive(ctx context.Context, managerID, staffID uint, active bool) error {
	var staff *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, member, err := s.member(ctx, tx, managerID, staffID)
		if err != nil {
			return err
		}
		staff = member
		return tx.Model(member).Update("is_active", active).Error
	})
	if err != nil {
		return err
	}
	s.changed(ctx, managerID, staff, map[string]any{"is_active": active})
	return nil
}

func (s *StaffService) changed(ctx context.Context, managerID uint, staff *models.User, meta map[string]any) {
	if s.cache != nil {
		s.cache.InvalidateUser(staff.ID)
	}
	target := staff.ID
	entry := models.ActivityLog{
		UserID:       managerID,
		Action:       models.ActivityUserPermissionsChanged,
		TargetUserID: &target,
		Description:  fmt.Sprintf("Permissions of %s changed", staff.DisplayName()),
		Metadata:     jsonMeta(meta),
	}
	recordQuietly(ctx, s.activity, entry)
}

func permissionRow(tx *gorm.DB, perm gate.Permission) (*models.Permission, error) {
	resource, action := perm.Parse()
	var p models.Permission
	err := tx.Where("resource_type = ? AND action = ?", resource, string(action)).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalid(map[string]string{"permission": "unknown"})
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func jsonMeta(meta map[string]any) datatypes.JSON {
	b, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
