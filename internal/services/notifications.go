package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-offers/internal/models"
)

// InboxSize is how many notifications List returns.
const InboxSize = 20

// NotificationService stores in-app notifications.
type NotificationService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db, now: time.Now}
}

// Notify stores n for its recipient.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) error {
	if n.UserID == 0 {
		return errors.New("notification without recipient")
	}
	if n.Kind == "" {
		n.Kind = models.NotifyInfo
	}
	n.ID = 0
	n.IsRead = false
	n.ReadAt = nil
	return s.db.WithContext(ctx).Create(&n).Error
}

// Inbox is the latest notifications of a user and the unread total.
type Inbox struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
}

// List returns the newest InboxSize notifications and the unread count.
func (s *NotificationService) List(ctx context.Context, userID uint) (*Inbox, error) {
	db := s.db.WithContext(ctx)
	in := &Inbox{Notifications: []models.Notification{}}
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(InboxSize).
		Find(&in.Notifications).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&in.UnreadCount).Error; err != nil {
		return nil, err
	}
	return in, nil
}

// MarkRead marks one notification of userID as read. Already read
// notifications keep their original ReadAt.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	db := s.db.WithContext(ctx)
	var n models.Notification
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}
	return db.Model(&n).Updates(map[string]any{"is_read": true, "read_at": s.now()}).Error
}

// MarkAllRead marks every unread notification of userID and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": s.now()})
	return res.RowsAffected, res.Error
}
