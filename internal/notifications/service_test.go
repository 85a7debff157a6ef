package notifications_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitsecure/platform/internal/database"
	"github.com/bitsecure/platform/internal/notifications"
	"github.com/bitsecure/platform/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.NewDB("sqlite", ":memory:")
	assert.NoError(t, err)
	assert.NoError(t, database.Migrate(db))
	return db
}

func TestEmitAndListRecent(t *testing.T) {
	db := setupTestDB(t)
	svc, err := notifications.NewService(zap.NewNop(), db)
	assert.NoError(t, err)
	ctx := context.Background()

	userID := uuid.New()
	created, err := svc.Emit(ctx, "New Deposit Request", "Alice requests to deposit €100.00 via BTC",
		models.NotificationTypeDeposit, &userID,
		&models.NotificationData{Amount: 100, Crypto: "BTC", UserName: "Alice"})
	assert.NoError(t, err)
	assert.False(t, created.Read)

	_, err = svc.Emit(ctx, "System", "no payload", models.NotificationTypeBalanceUpdate, nil, nil)
	assert.NoError(t, err)

	list, err := svc.ListRecent(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, list, 2)

	// The structured payload survives the round-trip through the store.
	var withData *models.Notification
	for _, n := range list {
		if n.ID == created.ID {
			withData = n
		}
	}
	assert.NotNil(t, withData)
	assert.Equal(t, "BTC", withData.Data.Crypto)
	assert.Equal(t, float64(100), withData.Data.Amount)
	assert.Equal(t, userID, *withData.UserID)
}

func TestListRecentClampsLimit(t *testing.T) {
	db := setupTestDB(t)
	svc, err := notifications.NewService(zap.NewNop(), db)
	assert.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Emit(ctx, "T", "m", models.NotificationTypeDeposit, nil, nil)
		assert.NoError(t, err)
	}

	list, err := svc.ListRecent(ctx, 2)
	assert.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = svc.ListRecent(ctx, 0)
	assert.NoError(t, err)
	assert.Len(t, list, 3)

	list, err = svc.ListRecent(ctx, 10000)
	assert.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestMarkRead(t *testing.T) {
	db := setupTestDB(t)
	svc, err := notifications.NewService(zap.NewNop(), db)
	assert.NoError(t, err)
	ctx := context.Background()

	created, err := svc.Emit(ctx, "T", "m", models.NotificationTypeDeposit, nil, nil)
	assert.NoError(t, err)

	assert.NoError(t, svc.MarkRead(ctx, created.ID.String()))

	list, err := svc.ListRecent(ctx, 10)
	assert.NoError(t, err)
	assert.True(t, list[0].Read)

	assert.ErrorIs(t, svc.MarkRead(ctx, uuid.NewString()), notifications.ErrNotificationNotFound)
	assert.ErrorIs(t, svc.MarkRead(ctx, "not-a-uuid"), notifications.ErrNotificationNotFound)
}
