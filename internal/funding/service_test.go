package funding_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitsecure/platform/internal/database"
	"github.com/bitsecure/platform/internal/funding"
	"github.com/bitsecure/platform/internal/identities"
	"github.com/bitsecure/platform/internal/ledger"
	"github.com/bitsecure/platform/internal/notifications"
	"github.com/bitsecure/platform/pkg/models"
)

var testWallets = map[string]string{
	"BTC": "bc1qflt3sxs06c6jnj25hj85py5tjjl4gnsraph9ky",
	"ETH": "0x52665675944E3aa06c8803fB737EB74033fA34DB",
}

type fixture struct {
	db       *gorm.DB
	funding  funding.FundingService
	ledger   ledger.LedgerService
	notifier notifications.NotificationService
}

func setup(t *testing.T) *fixture {
	db, err := database.NewDB("sqlite", ":memory:")
	assert.NoError(t, err)
	assert.NoError(t, database.Migrate(db))

	logger := zap.NewNop()
	notifier, err := notifications.NewService(logger, db)
	assert.NoError(t, err)
	ledgerSvc, err := ledger.NewService(logger, db)
	assert.NoError(t, err)
	fundingSvc, err := funding.NewService(logger, db, ledgerSvc, notifier, testWallets)
	assert.NoError(t, err)

	return &fixture{db: db, funding: fundingSvc, ledger: ledgerSvc, notifier: notifier}
}

func (f *fixture) createUser(t *testing.T, name string, admin bool) *models.User {
	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		IsAdmin:      admin,
		CreatedAt:    time.Now().UTC(),
	}
	assert.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) balanceOf(t *testing.T, id uuid.UUID) float64 {
	var user models.User
	assert.NoError(t, f.db.Where("id = ?", id).First(&user).Error)
	return user.Balance
}

func (f *fixture) notificationTypes(t *testing.T) []string {
	list, err := f.notifier.ListRecent(context.Background(), 50)
	assert.NoError(t, err)
	types := make([]string, 0, len(list))
	for _, n := range list {
		types = append(types, n.Type)
	}
	return types
}

func TestDepositApprovalFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := f.createUser(t, "Admin", true)
	user := f.createUser(t, "Alice", false)

	tx, wallet, err := f.funding.CryptoDeposit(ctx, user, "BTC", 100)
	assert.NoError(t, err)
	assert.Equal(t, testWallets["BTC"], wallet)
	assert.Equal(t, models.TransactionStatusPending, tx.Status)
	assert.Equal(t, "Crypto (BTC)", tx.Method)
	assert.Equal(t, "Sent to: "+wallet, tx.Details)
	// Balance only moves on approval.
	assert.Equal(t, float64(0), f.balanceOf(t, user.ID))

	approved, err := f.funding.ApproveDeposit(ctx, tx.ID.String(), admin)
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, approved.Status)
	assert.Equal(t, float64(100), f.balanceOf(t, user.ID))

	// A second approval must not double-credit.
	_, err = f.funding.ApproveDeposit(ctx, tx.ID.String(), admin)
	assert.ErrorIs(t, err, ledger.ErrAlreadyProcessed)
	assert.Equal(t, float64(100), f.balanceOf(t, user.ID))

	assert.Contains(t, f.notificationTypes(t), models.NotificationTypeDeposit)
	assert.Contains(t, f.notificationTypes(t), models.NotificationTypeDepositApproved)
}

func TestRejectLeavesBalanceUntouched(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := f.createUser(t, "Admin", true)
	user := f.createUser(t, "Alice", false)

	tx, _, err := f.funding.CryptoDeposit(ctx, user, "BTC", 100)
	assert.NoError(t, err)

	rejected, err := f.funding.RejectDeposit(ctx, tx.ID.String(), admin)
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, rejected.Status)
	assert.Equal(t, float64(0), f.balanceOf(t, user.ID))

	_, err = f.funding.RejectDeposit(ctx, tx.ID.String(), admin)
	assert.ErrorIs(t, err, ledger.ErrAlreadyProcessed)

	assert.Contains(t, f.notificationTypes(t), models.NotificationTypeDepositRejected)
}

func TestCryptoDepositValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "Alice", false)

	_, _, err := f.funding.CryptoDeposit(ctx, user, "DOGE", 100)
	assert.ErrorIs(t, err, funding.ErrUnsupportedAsset)

	_, _, err = f.funding.CryptoDeposit(ctx, user, "BTC", 5)
	assert.ErrorIs(t, err, funding.ErrBelowMinimum)

	// Failed requests must not leave transaction rows behind.
	list, err := f.ledger.ListForUser(ctx, user.ID)
	assert.NoError(t, err)
	assert.Empty(t, list)
}

func TestVoucherDepositHasNoMinimum(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "Alice", false)

	tx, err := f.funding.VoucherDeposit(ctx, user, "ABCD-1234", 2.5)
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, tx.Status)
	assert.Equal(t, "CryptoVoucher", tx.Method)
	assert.Equal(t, "Code: ABCD-1234", tx.Details)
}

func TestWithdrawalDebitsEagerly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "Alice", false)
	assert.NoError(t, f.ledger.CreditBalance(ctx, user.ID, 100))

	tx, err := f.funding.CreateWithdrawal(ctx, user, models.WithdrawalMethodPaypal, 30,
		models.WithdrawalDetails{Email: "alice@paypal.com"})
	assert.NoError(t, err)
	// The debit happens at request time; the row stays pending.
	assert.Equal(t, float64(70), f.balanceOf(t, user.ID))
	assert.Equal(t, models.TransactionStatusPending, tx.Status)
	assert.Equal(t, "Paypal", tx.Method)
	assert.Equal(t, "PayPal: alice@paypal.com", tx.Details)

	assert.Contains(t, f.notificationTypes(t), models.NotificationTypeWithdrawal)
}

func TestWithdrawalValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "Alice", false)
	assert.NoError(t, f.ledger.CreditBalance(ctx, user.ID, 50))

	// Below the minimum fails before the balance is consulted.
	_, err := f.funding.CreateWithdrawal(ctx, user, models.WithdrawalMethodPaypal, 5,
		models.WithdrawalDetails{Email: "alice@paypal.com"})
	assert.ErrorIs(t, err, funding.ErrBelowMinimum)

	_, err = f.funding.CreateWithdrawal(ctx, user, models.WithdrawalMethodBank, 1000,
		models.WithdrawalDetails{BankName: "Test Bank", IBAN: "ES12"})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Equal(t, float64(50), f.balanceOf(t, user.ID))

	list, err := f.ledger.ListForUser(ctx, user.ID)
	assert.NoError(t, err)
	assert.Empty(t, list)
}

func TestWithdrawalDetailFormats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "Alice", false)
	assert.NoError(t, f.ledger.CreditBalance(ctx, user.ID, 1000))

	bank, err := f.funding.CreateWithdrawal(ctx, user, models.WithdrawalMethodBank, 20,
		models.WithdrawalDetails{BankName: "Test Bank", IBAN: "ES9121000418450200051332"})
	assert.NoError(t, err)
	assert.Equal(t, "Bank: Test Bank - IBAN: ES9121000418450200051332", bank.Details)

	bizum, err := f.funding.CreateWithdrawal(ctx, user, models.WithdrawalMethodBizum, 20,
		models.WithdrawalDetails{Phone: "+34600111222"})
	assert.NoError(t, err)
	assert.Equal(t, "Bizum: +34600111222", bizum.Details)

	other, err := f.funding.CreateWithdrawal(ctx, user, "revolut", 20,
		models.WithdrawalDetails{Extra: map[string]string{"tag": "alice", "account": "r-123"}})
	assert.NoError(t, err)
	assert.Equal(t, "Revolut", other.Method)
	assert.Equal(t, "account=r-123; tag=alice", other.Details)
}

func TestApprovalRequiresAdmin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := f.createUser(t, "Alice", false)

	tx, _, err := f.funding.CryptoDeposit(ctx, user, "BTC", 100)
	assert.NoError(t, err)

	_, err = f.funding.ApproveDeposit(ctx, tx.ID.String(), user)
	assert.ErrorIs(t, err, identities.ErrForbidden)
	_, err = f.funding.RejectDeposit(ctx, tx.ID.String(), nil)
	assert.ErrorIs(t, err, identities.ErrForbidden)
	_, err = f.funding.SetAbsoluteBalance(ctx, user.ID.String(), 500, user)
	assert.ErrorIs(t, err, identities.ErrForbidden)

	// Still pending; nothing credited.
	reloaded, err := f.ledger.GetTransaction(ctx, tx.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, reloaded.Status)
	assert.Equal(t, float64(0), f.balanceOf(t, user.ID))
}

func TestSetAbsoluteBalance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	admin := f.createUser(t, "Admin", true)
	user := f.createUser(t, "Alice", false)
	assert.NoError(t, f.ledger.CreditBalance(ctx, user.ID, 70))

	updated, err := f.funding.SetAbsoluteBalance(ctx, user.ID.String(), 500, admin)
	assert.NoError(t, err)
	assert.Equal(t, float64(500), updated.Balance)
	assert.Equal(t, float64(500), f.balanceOf(t, user.ID))

	// The override bypasses the ledger entirely.
	list, err := f.ledger.ListForUser(ctx, user.ID)
	assert.NoError(t, err)
	assert.Empty(t, list)
	assert.Contains(t, f.notificationTypes(t), models.NotificationTypeBalanceUpdate)

	_, err = f.funding.SetAbsoluteBalance(ctx, uuid.NewString(), 500, admin)
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
	_, err = f.funding.SetAbsoluteBalance(ctx, "not-a-uuid", 500, admin)
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
}
