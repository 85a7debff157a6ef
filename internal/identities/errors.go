package identities

import "errors"

var (
	// ErrDuplicateEmail is returned when registering with an email that
	// already belongs to an account.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials is returned on login with an unknown email or a
	// wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned when a session token fails validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUserNotFound is returned on lookups of unknown account ids.
	ErrUserNotFound = errors.New("user not found")

	// ErrForbidden is returned when a non-admin account attempts an
	// admin-only operation.
	ErrForbidden = errors.New("admin access required")
)
