package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitsecure/platform/internal/identities"
	"github.com/bitsecure/platform/internal/notifications"
	"github.com/bitsecure/platform/pkg/models"
)

// ErrMessageNotFound is returned when marking a message the caller does not
// own, or an unknown id.
var ErrMessageNotFound = errors.New("message not found")

// DefaultListLimit bounds message listings.
const DefaultListLimit = 50

// MessageService delivers admin→user direct messages.
type MessageService interface {
	Send(ctx context.Context, toUserID, subject, content string) (*models.Message, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Message, error)
	ListAll(ctx context.Context) ([]*models.Message, error)
	MarkRead(ctx context.Context, id string, userID uuid.UUID) error
}

// Service implements MessageService.
type Service struct {
	logger   *zap.Logger
	db       *gorm.DB
	notifier notifications.NotificationService
}

// NewService creates a new MessageService.
func NewService(logger *zap.Logger, db *gorm.DB, notifier notifications.NotificationService) (MessageService, error) {
	return &Service{logger: logger, db: db, notifier: notifier}, nil
}

// Send stores a message for a user and notifies them. Fails when the target
// account is unknown.
func (s *Service) Send(ctx context.Context, toUserID, subject, content string) (*models.Message, error) {
	targetID, err := uuid.Parse(toUserID)
	if err != nil {
		return nil, identities.ErrUserNotFound
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", targetID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if count == 0 {
		return nil, identities.ErrUserNotFound
	}

	message := &models.Message{
		ID:        uuid.New(),
		FromAdmin: true,
		ToUserID:  targetID,
		Subject:   subject,
		Content:   content,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if s.notifier != nil {
		_, err := s.notifier.Emit(ctx,
			"New Message From Admin",
			fmt.Sprintf("You have a new message: %s", subject),
			models.NotificationTypeAdminMessage,
			&targetID,
			&models.NotificationData{MessageID: message.ID.String(), Subject: subject},
		)
		if err != nil {
			s.logger.Warn("Failed to emit message notification", zap.Error(err))
		}
	}

	return message, nil
}

// ListForUser returns the messages addressed to one user, newest-first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Message, error) {
	list := make([]*models.Message, 0)
	if err := s.db.WithContext(ctx).
		Where("to_user_id = ?", userID).
		Order("created_at DESC").
		Limit(DefaultListLimit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return list, nil
}

// ListAll returns every message, newest-first, for the admin surface.
func (s *Service) ListAll(ctx context.Context) ([]*models.Message, error) {
	list := make([]*models.Message, 0)
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(100).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return list, nil
}

// MarkRead flips the read flag of a message owned by userID.
func (s *Service) MarkRead(ctx context.Context, id string, userID uuid.UUID) error {
	messageID, err := uuid.Parse(id)
	if err != nil {
		return ErrMessageNotFound
	}

	result := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND to_user_id = ?", messageID, userID).
		Update("read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark message read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}
