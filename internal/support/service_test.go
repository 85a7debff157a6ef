package support_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitsecure/platform/internal/database"
	"github.com/bitsecure/platform/internal/notifications"
	"github.com/bitsecure/platform/internal/support"
	"github.com/bitsecure/platform/pkg/models"
)

func setup(t *testing.T) (*gorm.DB, support.SupportService, notifications.NotificationService) {
	db, err := database.NewDB("sqlite", ":memory:")
	assert.NoError(t, err)
	assert.NoError(t, database.Migrate(db))

	logger := zap.NewNop()
	notifier, err := notifications.NewService(logger, db)
	assert.NoError(t, err)
	svc, err := support.NewService(logger, db, notifier)
	assert.NoError(t, err)
	return db, svc, notifier
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	assert.NoError(t, db.Create(user).Error)
	return user
}

func TestCreateTicket(t *testing.T) {
	db, svc, notifier := setup(t)
	ctx := context.Background()
	user := createUser(t, db, "Alice")

	ticket, err := svc.CreateTicket(ctx, user, "Cannot withdraw", "The button does nothing", "HIGH")
	assert.NoError(t, err)
	assert.Equal(t, models.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "high", ticket.Priority)
	assert.Equal(t, user.Name, ticket.UserName)
	assert.Equal(t, user.Email, ticket.UserEmail)

	// Unknown priorities degrade to medium instead of failing.
	odd, err := svc.CreateTicket(ctx, user, "Question", "What is a voucher?", "urgent!!")
	assert.NoError(t, err)
	assert.Equal(t, "medium", odd.Priority)

	list, err := notifier.ListRecent(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, models.NotificationTypeSupportTicket, list[0].Type)
}

func TestListScoping(t *testing.T) {
	db, svc, _ := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "Alice")
	bob := createUser(t, db, "Bob")

	_, err := svc.CreateTicket(ctx, alice, "A", "a", "low")
	assert.NoError(t, err)
	_, err = svc.CreateTicket(ctx, bob, "B", "b", "low")
	assert.NoError(t, err)

	mine, err := svc.ListForUser(ctx, alice.ID)
	assert.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, "A", mine[0].Subject)

	all, err := svc.ListAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateStatus(t *testing.T) {
	db, svc, notifier := setup(t)
	ctx := context.Background()
	user := createUser(t, db, "Alice")

	ticket, err := svc.CreateTicket(ctx, user, "Cannot withdraw", "details", "medium")
	assert.NoError(t, err)
	assert.Nil(t, ticket.UpdatedAt)

	updated, err := svc.UpdateStatus(ctx, ticket.ID.String(), models.TicketStatusInProgress)
	assert.NoError(t, err)
	assert.Equal(t, models.TicketStatusInProgress, updated.Status)
	assert.NotNil(t, updated.UpdatedAt)

	_, err = svc.UpdateStatus(ctx, ticket.ID.String(), "escalated")
	assert.ErrorIs(t, err, support.ErrInvalidTicketStatus)

	_, err = svc.UpdateStatus(ctx, uuid.NewString(), models.TicketStatusClosed)
	assert.ErrorIs(t, err, support.ErrTicketNotFound)
	_, err = svc.UpdateStatus(ctx, "not-a-uuid", models.TicketStatusClosed)
	assert.ErrorIs(t, err, support.ErrTicketNotFound)

	// The owner is told about the status change.
	list, err := notifier.ListRecent(ctx, 10)
	assert.NoError(t, err)
	var update *models.Notification
	for _, n := range list {
		if n.Type == models.NotificationTypeSupportUpdate {
			update = n
		}
	}
	assert.NotNil(t, update)
	assert.Equal(t, user.ID, *update.UserID)
	assert.Equal(t, models.TicketStatusInProgress, update.Data.NewStatus)
}
