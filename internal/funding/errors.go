package funding

import "errors"

var (
	// ErrBelowMinimum is returned when a crypto deposit or a withdrawal is
	// below the 10 currency-unit minimum. Voucher deposits have no minimum.
	ErrBelowMinimum = errors.New("amount below minimum")

	// ErrUnsupportedAsset is returned for crypto deposits in an asset with
	// no configured wallet address.
	ErrUnsupportedAsset = errors.New("unsupported asset")
)
