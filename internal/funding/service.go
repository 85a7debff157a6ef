package funding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitsecure/platform/internal/identities"
	"github.com/bitsecure/platform/internal/ledger"
	"github.com/bitsecure/platform/internal/notifications"
	"github.com/bitsecure/platform/pkg/metrics"
	"github.com/bitsecure/platform/pkg/models"
)

// MinAmount is the minimum for crypto deposits and withdrawals, in currency
// units. Voucher redemptions are exempt.
const MinAmount = 10

// FundingService is the deposit/withdrawal/approval workflow. Deposits credit
// the balance only when an admin approves them; withdrawals debit eagerly at
// request time and stay pending for record-keeping. That asymmetry is
// intentional: funds are reserved the instant a withdrawal is requested.
type FundingService interface {
	CryptoDeposit(ctx context.Context, user *models.User, crypto string, amount float64) (*models.Transaction, string, error)
	VoucherDeposit(ctx context.Context, user *models.User, voucherCode string, amount float64) (*models.Transaction, error)
	CreateWithdrawal(ctx context.Context, user *models.User, method string, amount float64, details models.WithdrawalDetails) (*models.Transaction, error)
	ApproveDeposit(ctx context.Context, transactionID string, actor *models.User) (*models.Transaction, error)
	RejectDeposit(ctx context.Context, transactionID string, actor *models.User) (*models.Transaction, error)
	SetAbsoluteBalance(ctx context.Context, userID string, value float64, actor *models.User) (*models.User, error)
}

// Service implements FundingService.
type Service struct {
	logger          *zap.Logger
	db              *gorm.DB
	ledger          ledger.LedgerService
	notifier        notifications.NotificationService
	walletAddresses map[string]string
}

// NewService creates a new FundingService. walletAddresses is the immutable
// asset→address table injected from configuration.
func NewService(logger *zap.Logger, db *gorm.DB, ledgerSvc ledger.LedgerService, notifier notifications.NotificationService, walletAddresses map[string]string) (FundingService, error) {
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notification service is required")
	}

	return &Service{
		logger:          logger,
		db:              db,
		ledger:          ledgerSvc,
		notifier:        notifier,
		walletAddresses: walletAddresses,
	}, nil
}

// CryptoDeposit records a manual crypto deposit request. The transaction is
// created pending and the balance is untouched until an admin approves it.
// Returns the transaction and the wallet address the user must send to.
func (s *Service) CryptoDeposit(ctx context.Context, user *models.User, crypto string, amount float64) (*models.Transaction, string, error) {
	adminWallet, ok := s.walletAddresses[crypto]
	if !ok {
		return nil, "", ErrUnsupportedAsset
	}
	if amount < MinAmount {
		return nil, "", ErrBelowMinimum
	}

	transaction, err := s.ledger.CreateTransaction(ctx, user.ID,
		models.TransactionTypeDeposit,
		fmt.Sprintf("Crypto (%s)", crypto),
		amount,
		fmt.Sprintf("Sent to: %s", adminWallet),
	)
	if err != nil {
		return nil, "", err
	}

	s.emit(ctx,
		"New Deposit Request",
		fmt.Sprintf("%s requests to deposit €%.2f via %s", user.Name, amount, crypto),
		models.NotificationTypeDeposit,
		&user.ID,
		&models.NotificationData{
			Amount:        amount,
			Crypto:        crypto,
			AdminWallet:   adminWallet,
			TransactionID: transaction.ID.String(),
			UserName:      user.Name,
			UserEmail:     user.Email,
		})

	return transaction, adminWallet, nil
}

// VoucherDeposit records a voucher-code redemption. No minimum applies; the
// amount is supplied by the caller and validated by the admin on approval.
func (s *Service) VoucherDeposit(ctx context.Context, user *models.User, voucherCode string, amount float64) (*models.Transaction, error) {
	transaction, err := s.ledger.CreateTransaction(ctx, user.ID,
		models.TransactionTypeDeposit,
		"CryptoVoucher",
		amount,
		fmt.Sprintf("Code: %s", voucherCode),
	)
	if err != nil {
		return nil, err
	}

	s.emit(ctx,
		"New Voucher To Validate",
		fmt.Sprintf("%s wants to redeem a voucher for €%.2f", user.Name, amount),
		models.NotificationTypeDeposit,
		&user.ID,
		&models.NotificationData{
			Amount:        amount,
			VoucherCode:   voucherCode,
			TransactionID: transaction.ID.String(),
			UserName:      user.Name,
			UserEmail:     user.Email,
		})

	return transaction, nil
}

// CreateWithdrawal reserves funds and records a pending withdrawal. The debit
// is a single conditional store-level update: when the balance does not cover
// the amount the operation fails with ErrInsufficientBalance and nothing is
// mutated. There is no withdrawal-approval surface; the row stays pending for
// manual settlement outside this subsystem.
func (s *Service) CreateWithdrawal(ctx context.Context, user *models.User, method string, amount float64, details models.WithdrawalDetails) (*models.Transaction, error) {
	if amount < MinAmount {
		return nil, ErrBelowMinimum
	}

	if err := s.ledger.DebitIfSufficient(ctx, user.ID, amount); err != nil {
		return nil, err
	}

	transaction, err := s.ledger.CreateTransaction(ctx, user.ID,
		models.TransactionTypeWithdrawal,
		titleCase(method),
		amount,
		formatWithdrawalDetails(method, details),
	)
	if err != nil {
		return nil, err
	}

	s.emit(ctx,
		"Withdrawal Request",
		fmt.Sprintf("%s has requested a withdrawal of €%.2f via %s", user.Name, amount, titleCase(method)),
		models.NotificationTypeWithdrawal,
		&user.ID,
		&models.NotificationData{
			Amount:        amount,
			Method:        method,
			TransactionID: transaction.ID.String(),
			UserName:      user.Name,
		})

	return transaction, nil
}

// ApproveDeposit finalizes a pending transaction: status becomes completed
// and the owning account is credited by the transaction amount. Admin only.
func (s *Service) ApproveDeposit(ctx context.Context, transactionID string, actor *models.User) (*models.Transaction, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, identities.ErrForbidden
	}

	transaction, err := s.ledger.CompletePending(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.CreditBalance(ctx, transaction.UserID, transaction.Amount); err != nil {
		// Accounts are never deleted, so this only fires on store failures.
		s.logger.Error("Failed to credit balance after approval",
			zap.String("transaction_id", transactionID), zap.Error(err))
		return nil, err
	}

	metrics.ApprovalsTotal.WithLabelValues("approved").Inc()

	owner := s.ownerName(ctx, transaction.UserID)
	s.emit(ctx,
		"Deposit Approved",
		fmt.Sprintf("The deposit of €%.2f for %s has been approved", transaction.Amount, owner),
		models.NotificationTypeDepositApproved,
		&transaction.UserID,
		&models.NotificationData{
			Amount:        transaction.Amount,
			TransactionID: transaction.ID.String(),
		})

	return transaction, nil
}

// RejectDeposit fails a pending transaction. The balance is untouched; it was
// never credited.
func (s *Service) RejectDeposit(ctx context.Context, transactionID string, actor *models.User) (*models.Transaction, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, identities.ErrForbidden
	}

	transaction, err := s.ledger.FailPending(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	metrics.ApprovalsTotal.WithLabelValues("rejected").Inc()

	owner := s.ownerName(ctx, transaction.UserID)
	s.emit(ctx,
		"Deposit Rejected",
		fmt.Sprintf("The deposit of €%.2f for %s has been rejected", transaction.Amount, owner),
		models.NotificationTypeDepositRejected,
		&transaction.UserID,
		&models.NotificationData{
			Amount:        transaction.Amount,
			TransactionID: transaction.ID.String(),
		})

	return transaction, nil
}

// SetAbsoluteBalance overwrites an account balance, bypassing the ledger.
// Admin only.
func (s *Service) SetAbsoluteBalance(ctx context.Context, userID string, value float64, actor *models.User) (*models.User, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, identities.ErrForbidden
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ledger.ErrUserNotFound
	}

	if err := s.ledger.SetBalance(ctx, id, value); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}

	s.emit(ctx,
		"Balance Updated",
		fmt.Sprintf("The admin has updated the balance of %s to €%.2f", user.Name, value),
		models.NotificationTypeBalanceUpdate,
		&user.ID,
		&models.NotificationData{
			NewBalance: value,
			UserName:   user.Name,
		})

	return &user, nil
}

func (s *Service) emit(ctx context.Context, title, message, notificationType string, userID *uuid.UUID, data *models.NotificationData) {
	if _, err := s.notifier.Emit(ctx, title, message, notificationType, userID, data); err != nil {
		s.logger.Warn("Failed to emit notification",
			zap.String("type", notificationType), zap.Error(err))
	}
}

func (s *Service) ownerName(ctx context.Context, userID uuid.UUID) string {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return userID.String()
	}
	return user.Name
}

// formatWithdrawalDetails renders the typed details union to the free-text
// details column, one known shape per method with a key/value fallback.
func formatWithdrawalDetails(method string, details models.WithdrawalDetails) string {
	switch method {
	case models.WithdrawalMethodPaypal:
		return fmt.Sprintf("PayPal: %s", details.Email)
	case models.WithdrawalMethodBank:
		return fmt.Sprintf("Bank: %s - IBAN: %s", details.BankName, details.IBAN)
	case models.WithdrawalMethodBizum:
		return fmt.Sprintf("Bizum: %s", details.Phone)
	default:
		if len(details.Extra) == 0 {
			return ""
		}
		keys := make([]string, 0, len(details.Extra))
		for k := range details.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, details.Extra[k]))
		}
		return strings.Join(parts, "; ")
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
