package support

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitsecure/platform/internal/notifications"
	"github.com/bitsecure/platform/pkg/models"
)

var (
	// ErrTicketNotFound is returned on lookups of unknown ticket ids.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrInvalidTicketStatus is returned when a status update names a value
	// outside the allowed set.
	ErrInvalidTicketStatus = errors.New("invalid ticket status")
)

// SupportService manages user support tickets and their status workflow.
type SupportService interface {
	CreateTicket(ctx context.Context, user *models.User, subject, message, priority string) (*models.SupportTicket, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.SupportTicket, error)
	ListAll(ctx context.Context) ([]*models.SupportTicket, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.SupportTicket, error)
}

// Service implements SupportService.
type Service struct {
	logger   *zap.Logger
	db       *gorm.DB
	notifier notifications.NotificationService
}

// NewService creates a new SupportService.
func NewService(logger *zap.Logger, db *gorm.DB, notifier notifications.NotificationService) (SupportService, error) {
	return &Service{logger: logger, db: db, notifier: notifier}, nil
}

// CreateTicket stores a new open ticket. Unknown priorities are normalized to
// medium rather than rejected.
func (s *Service) CreateTicket(ctx context.Context, user *models.User, subject, message, priority string) (*models.SupportTicket, error) {
	priority = strings.ToLower(priority)
	switch priority {
	case "low", "medium", "high":
	default:
		priority = "medium"
	}

	ticket := &models.SupportTicket{
		ID:        uuid.New(),
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
		Subject:   subject,
		Message:   message,
		Priority:  priority,
		Status:    models.TicketStatusOpen,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	if s.notifier != nil {
		_, err := s.notifier.Emit(ctx,
			"New Support Ticket",
			fmt.Sprintf("User %s has created a ticket: %s", user.Name, subject),
			models.NotificationTypeSupportTicket,
			&user.ID,
			&models.NotificationData{
				TicketID: ticket.ID.String(),
				Priority: ticket.Priority,
				Subject:  subject,
			},
		)
		if err != nil {
			s.logger.Warn("Failed to emit ticket notification", zap.Error(err))
		}
	}

	return ticket, nil
}

// ListForUser returns one user's tickets, newest-first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.SupportTicket, error) {
	list := make([]*models.SupportTicket, 0)
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(50).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return list, nil
}

// ListAll returns every ticket, newest-first, for the admin surface.
func (s *Service) ListAll(ctx context.Context) ([]*models.SupportTicket, error) {
	list := make([]*models.SupportTicket, 0)
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(100).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return list, nil
}

// UpdateStatus moves a ticket through its workflow and notifies the owner.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*models.SupportTicket, error) {
	switch status {
	case models.TicketStatusOpen, models.TicketStatusInProgress, models.TicketStatusResolved, models.TicketStatusClosed:
	default:
		return nil, ErrInvalidTicketStatus
	}

	ticketID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrTicketNotFound
	}

	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.SupportTicket{}).
		Where("id = ?", ticketID).
		Updates(map[string]interface{}{"status": status, "updated_at": now})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrTicketNotFound
	}

	var ticket models.SupportTicket
	if err := s.db.WithContext(ctx).Where("id = ?", ticketID).First(&ticket).Error; err != nil {
		return nil, fmt.Errorf("failed to reload ticket: %w", err)
	}

	if s.notifier != nil {
		_, err := s.notifier.Emit(ctx,
			"Support Ticket Update",
			fmt.Sprintf("Your ticket '%s' has been updated to: %s", ticket.Subject, status),
			models.NotificationTypeSupportUpdate,
			&ticket.UserID,
			&models.NotificationData{TicketID: ticket.ID.String(), NewStatus: status},
		)
		if err != nil {
			s.logger.Warn("Failed to emit ticket update notification", zap.Error(err))
		}
	}

	return &ticket, nil
}
