package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
	"github.com/diewo77/go-offers/validation"
)

// MinPasswordLength applies to signup and password changes.
const MinPasswordLength = 8

// SignupInput registers a new account. ManagerID attaches staff to the
// manager of their organisation.
type SignupInput struct {
	Email            string      `json:"email"`
	Password         string      `json:"password"`
	Name             string      `json:"name"`
	Phone            string      `json:"phone"`
	Role             models.Role `json:"role"`
	OrganizationName string      `json:"organization_name"`
	IsManager        bool        `json:"is_manager"`
	ManagerID        *uint       `json:"manager_id"`
}

// AccountService handles signup, login and account approval.
type AccountService struct {
	db       *gorm.DB
	cache    CacheInvalidator
	activity *ActivityService
	now      func() time.Time
}

// NewAccountService creates the service. cache and activity may be nil.
func NewAccountService(db *gorm.DB, cache CacheInvalidator, activity *ActivityService) *AccountService {
	return &AccountService{db: db, cache: cache, activity: activity, now: time.Now}
}

// Signup creates an account awaiting approval.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.OrganizationName = strings.TrimSpace(in.OrganizationName)

	v := validation.Violations{}
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.MinLen("password", in.Password, MinPasswordLength, v)
	validation.MaxLen("password", in.Password, 72, v)
	validation.MaxLen("phone", in.Phone, 50, v)
	if !in.Role.Valid() {
		v.Add("role", "invalid_choice")
	}
	if in.IsManager && in.ManagerID != nil {
		v.Add("manager_id", "managers_have_no_manager")
	}
	if err := invalid(v); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if in.ManagerID != nil {
		var m models.User
		err := db.Where("id = ? AND role = ? AND is_manager = ? AND is_approved = ?", *in.ManagerID, in.Role, true, true).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid(validation.Violations{"manager_id": "invalid_manager"})
		}
		if err != nil {
			return nil, err
		}
		if in.OrganizationName == "" {
			in.OrganizationName = m.OrganizationName
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Email:            in.Email,
		Password:         string(hash),
		Name:             in.Name,
		Phone:            in.Phone,
		Role:             in.Role,
		OrganizationName: in.OrganizationName,
		IsManager:        in.IsManager,
		IsActive:         true,
		ManagerID:        in.ManagerID,
	}
	if err := db.Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return u, nil
}

// Authenticate checks the credentials. Unknown emails and wrong passwords
// are indistinguishable; valid credentials of a pending or disabled account
// yield ErrNotApproved.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.CanLogin() {
		return nil, ErrNotApproved
	}
	return &u, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	v := validation.Violations{}
	validation.MinLen("new_password", next, MinPasswordLength, v)
	validation.MaxLen("new_password", next, 72, v)
	if err := invalid(v); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.db.WithContext(ctx).Model(u).Update("password", string(hash)).Error
}

// Get loads a user with the profile.
func (s *AccountService) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Preload("Profile").First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns every account, optionally only those awaiting approval.
func (s *AccountService) List(ctx context.Context, pendingOnly bool) ([]models.User, error) {
	users := []models.User{}
	q := s.db.WithContext(ctx).Preload("Profile").Order("created_at DESC, id DESC")
	if pendingOnly {
		q = q.Where("is_approved = ?", false)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// canApprove: administrators approve anyone, managers their own staff.
func canApprove(approver, u *models.User, isAdmin bool) bool {
	return isAdmin || approver.Manages(u)
}

// Approve activates an account and assigns the default profile of its role
// when it has none.
func (s *AccountService) Approve(ctx context.Context, approverID uint, isAdmin bool, userID uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var approver models.User
		if err := tx.First(&approver, approverID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrForbidden
			}
			return err
		}
		if err := tx.First(&u, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !canApprove(&approver, &u, isAdmin) {
			return ErrForbidden
		}
		updates := map[string]any{
			"is_approved":    true,
			"approved_by_id": approverID,
			"approved_at":    s.now(),
		}
		if u.ProfileID == nil {
			var p models.Profile
			name := policy.DefaultProfile(u.IsFirma(), u.IsManager)
			if err := tx.Where("name = ?", name).First(&p).Error; err != nil {
				return fmt.Errorf("default profile %s: %w", name, err)
			}
			updates["profile_id"] = p.ID
		}
		if err := tx.Model(&u).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Preload("Profile").First(&u, userID).Error
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.InvalidateUser(u.ID)
	}
	target := u.ID
	recordQuietly(ctx, s.activity, models.ActivityLog{
		UserID:       approverID,
		Action:       models.ActivityUserApproved,
		TargetUserID: &target,
		Description:  fmt.Sprintf("%s approved", u.DisplayName()),
	})
	return &u, nil
}

// Reject deletes an account that was never approved.
func (s *AccountService) Reject(ctx context.Context, approverID uint, isAdmin bool, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var approver, u models.User
		if err := tx.First(&approver, approverID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrForbidden
			}
			return err
		}
		if err := tx.First(&u, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !canApprove(&approver, &u, isAdmin) || u.IsApproved {
			return ErrForbidden
		}
		return tx.Unscoped().Delete(&u).Error
	})
}

// AssignProfile sets or clears (profileID nil) the profile of a user.
func (s *AccountService) AssignProfile(ctx context.Context, userID uint, profileID *uint) error {
	db := s.db.WithContext(ctx)
	if profileID != nil {
		var p models.Profile
		if err := db.First(&p, *profileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid(validation.Violations{"profile_id": "not_found"})
			}
			return err
		}
	}
	res := db.Model(&models.User{}).Where("id = ?", userID).Update("profile_id", profileID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	if s.cache != nil {
		s.cache.InvalidateUser(userID)
	}
	return nil
}

// SetActive enables or disables any account.
func (s *AccountService) SetActive(ctx context.Context, userID uint, active bool) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	if s.cache != nil {
		s.cache.InvalidateUser(userID)
	}
	return nil
}
