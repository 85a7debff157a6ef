package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types
const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
)

// Transaction statuses. A transaction leaves pending exactly once.
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Notification types
const (
	NotificationTypeDeposit          = "deposit"
	NotificationTypeWithdrawal       = "withdrawal"
	NotificationTypeUserRegistration = "user_registration"
	NotificationTypeDepositApproved  = "deposit_approved"
	NotificationTypeDepositRejected  = "deposit_rejected"
	NotificationTypeBalanceUpdate    = "balance_update"
	NotificationTypeAdminMessage     = "admin_message"
	NotificationTypeSupportTicket    = "support_ticket"
	NotificationTypeSupportUpdate    = "support_update"
)

// Withdrawal methods
const (
	WithdrawalMethodPaypal = "paypal"
	WithdrawalMethodBank   = "bank"
	WithdrawalMethodBizum  = "bizum"
)

// Support ticket statuses
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusResolved   = "resolved"
	TicketStatusClosed     = "closed"
)

// User represents a registered account. The very first account created in an
// empty store carries the admin flag.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Name         string    `json:"name" validate:"required,min=1,max=100"`
	Email        string    `json:"email" gorm:"uniqueIndex" validate:"required,email,max=254"`
	PasswordHash string    `json:"-" gorm:"column:password_hash" validate:"required"`
	Balance      float64   `json:"balance"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Transaction represents one deposit or withdrawal request and its outcome.
type Transaction struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index" validate:"required,uuid"`
	Type      string    `json:"type" validate:"required,oneof=deposit withdrawal"`
	Method    string    `json:"method" validate:"required,max=100"`
	Amount    float64   `json:"amount" validate:"required,gt=0"`
	Details   string    `json:"details" validate:"omitempty,max=500"`
	Status    string    `json:"status" validate:"required,oneof=pending completed failed"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationData is the structured payload attached to a notification.
// Fields are populated per notification type; everything is optional.
type NotificationData struct {
	Amount        float64 `json:"amount,omitempty"`
	Crypto        string  `json:"crypto,omitempty"`
	AdminWallet   string  `json:"admin_wallet,omitempty"`
	VoucherCode   string  `json:"voucher_code,omitempty"`
	Method        string  `json:"method,omitempty"`
	TransactionID string  `json:"transaction_id,omitempty"`
	UserName      string  `json:"user_name,omitempty"`
	UserEmail     string  `json:"user_email,omitempty"`
	NewBalance    float64 `json:"new_balance,omitempty"`
	MessageID     string  `json:"message_id,omitempty"`
	TicketID      string  `json:"ticket_id,omitempty"`
	Subject       string  `json:"subject,omitempty"`
	Priority      string  `json:"priority,omitempty"`
	NewStatus     string  `json:"new_status,omitempty"`
}

// Notification is an append-only event record surfaced to admins/users.
// Only the read flag is ever mutated after creation.
type Notification struct {
	ID        uuid.UUID         `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Title     string            `json:"title" validate:"required,max=200"`
	Message   string            `json:"message" validate:"required,max=1000"`
	Type      string            `json:"type" validate:"required,max=50"`
	UserID    *uuid.UUID        `json:"user_id,omitempty" gorm:"type:uuid;index" validate:"omitempty,uuid"`
	Data      *NotificationData `json:"data,omitempty" gorm:"serializer:json;type:text"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}

// Message is a direct message from the admin to a user.
type Message struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	FromAdmin bool      `json:"from_admin"`
	ToUserID  uuid.UUID `json:"to_user_id" gorm:"type:uuid;index" validate:"required,uuid"`
	Subject   string    `json:"subject" validate:"required,max=200"`
	Content   string    `json:"content" validate:"required,max=5000"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// SupportTicket is a user-created support request.
type SupportTicket struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;index" validate:"required,uuid"`
	UserName  string     `json:"user_name" validate:"required,max=100"`
	UserEmail string     `json:"user_email" validate:"required,email"`
	Subject   string     `json:"subject" validate:"required,max=200"`
	Message   string     `json:"message" validate:"required,max=5000"`
	Priority  string     `json:"priority" validate:"required,oneof=low medium high"`
	Status    string     `json:"status" validate:"required,oneof=open in_progress resolved closed"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// WithdrawalDetails is the typed union over the known withdrawal methods,
// with Extra as a generic key/value fallback for anything else.
type WithdrawalDetails struct {
	Email    string            `json:"email,omitempty"`     // paypal
	BankName string            `json:"bank_name,omitempty"` // bank
	IBAN     string            `json:"iban,omitempty"`      // bank
	Phone    string            `json:"phone,omitempty"`     // bizum
	Extra    map[string]string `json:"extra,omitempty"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user"`
}

// CryptoDepositRequest is the body of POST /api/deposits/crypto.
type CryptoDepositRequest struct {
	Crypto string  `json:"crypto" binding:"required,asset_code"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// VoucherDepositRequest is the body of POST /api/deposits/voucher.
type VoucherDepositRequest struct {
	VoucherCode string  `json:"voucher_code" binding:"required,max=100"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
}

// WithdrawalCreateRequest is the body of POST /api/withdrawals.
type WithdrawalCreateRequest struct {
	Method  string            `json:"method" binding:"required,withdrawal_method"`
	Amount  float64           `json:"amount" binding:"required,gt=0"`
	Details WithdrawalDetails `json:"details"`
}

// SetBalanceRequest is the body of PUT /api/admin/users/:id/balance.
type SetBalanceRequest struct {
	Balance float64 `json:"balance" binding:"min=0"`
}

// MessageCreateRequest is the body of POST /api/admin/messages.
type MessageCreateRequest struct {
	ToUserID string `json:"to_user_id" binding:"required,uuid"`
	Subject  string `json:"subject" binding:"required,max=200"`
	Content  string `json:"content" binding:"required,max=5000"`
}

// SupportTicketCreateRequest is the body of POST /api/support/tickets.
type SupportTicketCreateRequest struct {
	Subject  string `json:"subject" binding:"required,max=200"`
	Message  string `json:"message" binding:"required,max=5000"`
	Priority string `json:"priority" binding:"omitempty,max=20"`
}

// TicketStatusUpdateRequest is the body of PUT /api/admin/support/tickets/:id/status.
type TicketStatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdminStats is returned by GET /api/admin/stats.
type AdminStats struct {
	TotalUsers   int64   `json:"total_users"`
	TotalBalance float64 `json:"total_balance"`
}
