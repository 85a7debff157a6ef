package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bitsecure/platform/pkg/metrics"
	"github.com/bitsecure/platform/pkg/models"
)

// DefaultListLimit bounds transaction listings.
const DefaultListLimit = 100

// LedgerService records deposit/withdrawal requests and owns all balance
// mutations. Balance changes are single-statement atomic updates at the store
// level; nothing here does read-modify-write in application code.
type LedgerService interface {
	CreateTransaction(ctx context.Context, userID uuid.UUID, txType, method string, amount float64, details string) (*models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
	ListAll(ctx context.Context) ([]*models.Transaction, error)
	CompletePending(ctx context.Context, id string) (*models.Transaction, error)
	FailPending(ctx context.Context, id string) (*models.Transaction, error)
	CreditBalance(ctx context.Context, userID uuid.UUID, amount float64) error
	DebitIfSufficient(ctx context.Context, userID uuid.UUID, amount float64) error
	SetBalance(ctx context.Context, userID uuid.UUID, value float64) error
}

// Service implements LedgerService.
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a new LedgerService.
func NewService(logger *zap.Logger, db *gorm.DB) (LedgerService, error) {
	return &Service{logger: logger, db: db}, nil
}

// CreateTransaction records a new pending transaction. It never touches the
// owning account's balance.
func (s *Service) CreateTransaction(ctx context.Context, userID uuid.UUID, txType, method string, amount float64, details string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("invalid amount: %f", amount)
	}

	transaction := &models.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      txType,
		Method:    method,
		Amount:    amount,
		Details:   details,
		Status:    models.TransactionStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(transaction).Error; err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	metrics.TransactionsCreated.WithLabelValues(txType).Inc()
	s.logger.Info("Transaction recorded",
		zap.String("transaction_id", transaction.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("type", txType),
		zap.Float64("amount", amount))

	return transaction, nil
}

// GetTransaction fetches one transaction by id.
func (s *Service) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	transactionID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrTransactionNotFound
	}

	var transaction models.Transaction
	if err := s.db.WithContext(ctx).Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &transaction, nil
}

// ListForUser returns a user's transactions newest-first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	list := make([]*models.Transaction, 0)
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(DefaultListLimit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return list, nil
}

// ListAll returns all transactions newest-first, for the admin surface.
func (s *Service) ListAll(ctx context.Context) ([]*models.Transaction, error) {
	// Empty results serialize as [] rather than null.
	list := make([]*models.Transaction, 0)
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(DefaultListLimit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return list, nil
}

// CompletePending flips a pending transaction to completed. The status guard
// lives in the UPDATE itself, so a transaction leaves pending exactly once
// even under concurrent approvals.
func (s *Service) CompletePending(ctx context.Context, id string) (*models.Transaction, error) {
	return s.finishPending(ctx, id, models.TransactionStatusCompleted)
}

// FailPending flips a pending transaction to failed.
func (s *Service) FailPending(ctx context.Context, id string) (*models.Transaction, error) {
	return s.finishPending(ctx, id, models.TransactionStatusFailed)
}

func (s *Service) finishPending(ctx context.Context, id, status string) (*models.Transaction, error) {
	transactionID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrTransactionNotFound
	}

	result := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", transactionID, models.TransactionStatusPending).
		Update("status", status)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Distinguish an unknown id from a transaction that already left
		// pending.
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Transaction{}).
			Where("id = ?", transactionID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check transaction: %w", err)
		}
		if count == 0 {
			return nil, ErrTransactionNotFound
		}
		return nil, ErrAlreadyProcessed
	}

	return s.GetTransaction(ctx, id)
}

// CreditBalance atomically increments an account balance.
func (s *Service) CreditBalance(ctx context.Context, userID uuid.UUID, amount float64) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to credit balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DebitIfSufficient atomically debits an account balance, but only when the
// current balance covers the amount. The sufficiency check and the debit are
// one UPDATE, so concurrent withdrawals cannot overdraw the account.
func (s *Service) DebitIfSufficient(ctx context.Context, userID uuid.UUID, amount float64) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to debit balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if count == 0 {
			return ErrUserNotFound
		}
		return ErrInsufficientBalance
	}
	return nil
}

// SetBalance overwrites an account balance with an absolute value. Admin
// override path; bypasses the transaction ledger entirely.
func (s *Service) SetBalance(ctx context.Context, userID uuid.UUID, value float64) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("balance", value)
	if result.Error != nil {
		return fmt.Errorf("failed to set balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
