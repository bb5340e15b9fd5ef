package policy

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/go-offers/gate"
	"github.com/diewo77/go-offers/internal/models"
)

// DBProfileResolver fetches user profiles from the database.
// It implements the gate.ProfileResolver interface for uint user IDs.
type DBProfileResolver struct {
	DB *gorm.DB
}

// NewDBProfileResolver creates a new database-backed profile resolver.
func NewDBProfileResolver(db *gorm.DB) *DBProfileResolver {
	return &DBProfileResolver{DB: db}
}

// Resolve loads the user's profile and per-user overrides. Inactive users
// and users with neither a profile nor grants resolve to nil.
func (r *DBProfileResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Preload("Profile.Permissions").
		Preload("PermissionOverrides.Permission").
		First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", userID, gate.ErrNoProfile)
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}

	var base gate.Profile
	if user.Profile != nil {
		base = &dbProfileAdapter{profile: user.Profile}
	}
	if len(user.PermissionOverrides) == 0 {
		return base, nil
	}

	var grants, revokes []gate.Permission
	for _, o := range user.PermissionOverrides {
		perm := gate.NewPermission(o.Permission.ResourceType, gate.Action(o.Permission.Action))
		if o.Granted {
			grants = append(grants, perm)
		} else {
			revokes = append(revokes, perm)
		}
	}
	return gate.NewOverlayProfile(base, grants, revokes), nil
}

// dbProfileAdapter wraps a models.Profile to implement gate.Profile interface.
type dbProfileAdapter struct {
	profile *models.Profile
}

func (a *dbProfileAdapter) ID() uint {
	return a.profile.ID
}

func (a *dbProfileAdapter) Name() string {
	return a.profile.Name
}

// HasPermission checks if the profile has the requested permission.
// Supports wildcards: "*:*" (superadmin) and "resource:*" (all actions on resource).
func (a *dbProfileAdapter) HasPermission(perm gate.Permission) bool {
	for _, p := range a.profile.Permissions {
		if gate.NewPermission(p.ResourceType, gate.Action(p.Action)).Matches(perm) {
			return true
		}
	}
	return false
}

// Permissions returns all permissions as gate.Permission slice.
func (a *dbProfileAdapter) Permissions() []gate.Permission {
	result := make([]gate.Permission, len(a.profile.Permissions))
	for i, p := range a.profile.Permissions {
		result[i] = gate.NewPermission(p.ResourceType, gate.Action(p.Action))
	}
	return result
}
