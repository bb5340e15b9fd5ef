// Package offers implements the offer lifecycle: the cart draft, submission
// with manager escalation for high-value offers, pharmacy approval and
// rejection, sent-stage discounts, revisions and the invoice correction flow.
//
// Every status change is a conditional update on the current status inside a
// transaction, so of two concurrent transitions on one offer only the first
// commits and the second gets an ErrState.
package offers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/diewo77/go-offers/gate"
	"github.com/diewo77/go-offers/internal/models"
	"github.com/diewo77/go-offers/internal/policy"
)

// Capabilities answers whether a user holds a capability.
type Capabilities interface {
	HasCapability(ctx context.Context, userID uint, perm gate.Permission) bool
}

// Notifier delivers in-app notifications. Failures are logged, never returned.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// ActivityRecorder stores audit entries. Failures are logged, never returned.
type ActivityRecorder interface {
	Record(ctx context.Context, entry models.ActivityLog) error
}

// Config holds the workflow thresholds.
type Config struct {
	// HighValueThreshold applies to the gross, no-discount offer total.
	HighValueThreshold decimal.Decimal
	// HighDiscountPercent is the discount percentage from which
	// discount:apply_high is required.
	HighDiscountPercent decimal.Decimal
}

// DefaultConfig returns the standard thresholds: 50000 and 20%.
func DefaultConfig() Config {
	return Config{
		HighValueThreshold:  decimal.NewFromInt(50000),
		HighDiscountPercent: decimal.NewFromInt(20),
	}
}

// Deps are the collaborators of the Service. Notifier and Activity may be nil.
type Deps struct {
	DB       *gorm.DB
	Caps     Capabilities
	Notifier Notifier
	Activity ActivityRecorder
}

// Service owns every offer state transition.
type Service struct {
	db       *gorm.DB
	caps     Capabilities
	notifier Notifier
	activity ActivityRecorder
	cfg      Config
	now      func() time.Time
}

// NewService creates the offer service.
func NewService(d Deps, cfg Config) *Service {
	return &Service{
		db:       d.DB,
		caps:     d.Caps,
		notifier: d.Notifier,
		activity: d.Activity,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Config returns the thresholds in use.
func (s *Service) Config() Config {
	return s.cfg
}

func (s *Service) has(ctx context.Context, userID uint, perm gate.Permission) bool {
	return s.caps != nil && s.caps.HasCapability(ctx, userID, perm)
}

// grants is a snapshot of one user's capabilities. Operations take it before
// opening their transaction so capability lookups never run inside one.
type grants map[gate.Permission]bool

func (s *Service) grantsOf(ctx context.Context, userID uint, perms ...gate.Permission) grants {
	g := make(grants, len(perms))
	for _, p := range perms {
		g[p] = s.has(ctx, userID, p)
	}
	return g
}

// IsHighValue reports whether the offer's gross total reaches the threshold.
func (s *Service) IsHighValue(o *models.Offer) bool {
	return o.Totals().ItemsSubtotalGross.GreaterThanOrEqual(s.cfg.HighValueThreshold)
}

func (s *Service) loadOffer(ctx context.Context, tx *gorm.DB, op string, id uint) (*models.Offer, error) {
	var o models.Offer
	err := tx.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("offer_items.id")
	}).First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(op, "offer")
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Service) loadUser(ctx context.Context, tx *gorm.DB, op string, id uint) (*models.User, error) {
	var u models.User
	err := tx.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(op, "user")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// transition applies updates to offer id only while its status is from and
// every column in cond still holds the given value.
func transition(tx *gorm.DB, op string, id uint, from models.OfferStatus, cond map[string]any, updates map[string]any) error {
	q := tx.Model(&models.Offer{}).Where("id = ? AND status = ?", id, from)
	if len(cond) > 0 {
		q = q.Where(cond)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return stateErr(op, "offer changed concurrently or is no longer "+string(from))
	}
	return nil
}

// isManagerOf reports whether actor may act as owner's manager. Owners without
// a manager fall back to any approved manager of the same side holding
// offer:manager_approve.
func isManagerOf(actor, owner *models.User, g grants) bool {
	if !actor.IsManager || actor.ID == owner.ID {
		return false
	}
	if owner.ManagerID != nil {
		return *owner.ManagerID == actor.ID
	}
	return actor.Role == owner.Role && actor.IsApproved && g[policy.CapOfferManagerApprove]
}

// managersOf lists the users who must hear about a pending approval.
func (s *Service) managersOf(ctx context.Context, owner *models.User) []models.User {
	var managers []models.User
	q := s.db.WithContext(ctx).Where("is_manager = ? AND is_approved = ? AND is_active = ?", true, true, true)
	if owner.ManagerID != nil {
		q = q.Where("id = ?", *owner.ManagerID)
	} else {
		q = q.Where("role = ? AND id <> ?", owner.Role, owner.ID)
	}
	if err := q.Find(&managers).Error; err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Uint("owner_id", owner.ID).Msg("failed to load managers")
		return nil
	}
	if owner.ManagerID != nil {
		return managers
	}
	eligible := managers[:0]
	for _, m := range managers {
		if s.has(ctx, m.ID, policy.CapOfferManagerApprove) {
			eligible = append(eligible, m)
		}
	}
	return eligible
}

func (s *Service) notify(ctx context.Context, n models.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Uint("user_id", n.UserID).Str("title", n.Title).Msg("failed to send notification")
	}
}

func (s *Service) record(ctx context.Context, entry models.ActivityLog) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to record activity")
	}
}

func offerNotification(o *models.Offer, to uint, kind models.NotificationKind, title, msg string) models.Notification {
	id := o.ID
	return models.Notification{
		UserID:  to,
		Title:   title,
		Message: msg,
		Kind:    kind,
		OfferID: &id,
		Link:    offerLink(o.ID),
	}
}

func activity(actor uint, action models.ActivityAction, o *models.Offer, target *uint, desc string, meta map[string]any) models.ActivityLog {
	entry := models.ActivityLog{
		UserID:       actor,
		Action:       action,
		TargetUserID: target,
		Description:  desc,
		Metadata:     metadata(meta),
	}
	if o != nil {
		id := o.ID
		entry.OfferID = &id
	}
	return entry
}

func metadata(meta map[string]any) datatypes.JSON {
	if len(meta) == 0 {
		return nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func ptr[T any](v T) *T { return &v }
