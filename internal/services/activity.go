package services

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diewo77/go-offers/internal/logging"
	"github.com/diewo77/go-offers/internal/models"
)

// ActivityService is the audit log of offer and account changes.
type ActivityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{db: db}
}

// Record stores entry, taking the client address from the request context
// when the entry has none.
func (s *ActivityService) Record(ctx context.Context, entry models.ActivityLog) error {
	if entry.IPAddress == "" {
		entry.IPAddress = logging.ClientIP(ctx)
	}
	entry.ID = 0
	return s.db.WithContext(ctx).Create(&entry).Error
}

// ForOffer lists the entries of one offer, oldest first.
func (s *ActivityService) ForOffer(ctx context.Context, offerID uint) ([]models.ActivityLog, error) {
	logs := []models.ActivityLog{}
	err := s.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("created_at, id").
		Find(&logs).Error
	return logs, err
}

// ForUser lists the latest entries recorded by or about userID.
func (s *ActivityService) ForUser(ctx context.Context, userID uint, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs := []models.ActivityLog{}
	err := s.db.WithContext(ctx).
		Where("user_id = ? OR target_user_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// recordQuietly stores an audit entry and only logs a failure.
func recordQuietly(ctx context.Context, a *ActivityService, entry models.ActivityLog) {
	if a == nil {
		return
	}
	if err := a.Record(ctx, entry); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to record activity")
	}
}
