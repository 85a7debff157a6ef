package ledger

import "errors"

var (
	// ErrTransactionNotFound is returned on lookups of unknown transaction ids.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAlreadyProcessed is returned when completing or failing a
	// transaction that has already left pending.
	ErrAlreadyProcessed = errors.New("transaction already processed")

	// ErrInsufficientBalance is returned when a debit exceeds the current
	// balance; the balance is left untouched.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUserNotFound is returned when a balance mutation targets an
	// unknown account.
	ErrUserNotFound = errors.New("user not found")
)
