package validation

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/bitsecure/platform/pkg/models"
)

var (
	assetCodeRegex  = regexp.MustCompile(`^[A-Z]{2,10}$`)
	methodTokenRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{1,29}$`)
)

// RegisterCustomValidators installs the custom binding tags used by the
// request models into gin's validator engine. Must be called before the
// router starts serving.
func RegisterCustomValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	if err := v.RegisterValidation("asset_code", func(fl validator.FieldLevel) bool {
		return assetCodeRegex.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}

	// Known methods (paypal, bank, bizum) get structured detail rendering;
	// anything else matching the token shape falls back to key/value details.
	if err := v.RegisterValidation("withdrawal_method", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case models.WithdrawalMethodPaypal, models.WithdrawalMethodBank, models.WithdrawalMethodBizum:
			return true
		default:
			return methodTokenRegex.MatchString(fl.Field().String())
		}
	}); err != nil {
		return err
	}

	return nil
}
