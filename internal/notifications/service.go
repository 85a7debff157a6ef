package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitsecure/platform/pkg/metrics"
	"github.com/bitsecure/platform/pkg/models"
)

// ErrNotificationNotFound is returned when marking an unknown notification.
var ErrNotificationNotFound = errors.New("notification not found")

// DefaultListLimit bounds ListRecent when the caller passes no limit.
const DefaultListLimit = 50

// NotificationService is the append-only event log surfaced to admins and
// users. Records are never mutated after creation except for the read flag.
type NotificationService interface {
	Emit(ctx context.Context, title, message, notificationType string, userID *uuid.UUID, data *models.NotificationData) (*models.Notification, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// Service implements NotificationService.
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a new NotificationService.
func NewService(logger *zap.Logger, db *gorm.DB) (NotificationService, error) {
	return &Service{logger: logger, db: db}, nil
}

// Emit appends a notification with read=false.
func (s *Service) Emit(ctx context.Context, title, message, notificationType string, userID *uuid.UUID, data *models.NotificationData) (*models.Notification, error) {
	notification := &models.Notification{
		ID:        uuid.New(),
		Title:     title,
		Message:   message,
		Type:      notificationType,
		UserID:    userID,
		Data:      data,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	metrics.NotificationsEmitted.WithLabelValues(notificationType).Inc()
	s.logger.Debug("Notification emitted",
		zap.String("notification_id", notification.ID.String()),
		zap.String("type", notificationType))

	return notification, nil
}

// ListRecent returns notifications newest-first.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	list := make([]*models.Notification, 0, limit)
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

// MarkRead flips the read flag of one notification.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	notificationID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotificationNotFound
	}

	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Update("read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
