package payment

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/bursary/core"
)

const (
	CodeInvalidAmount    = "invalid_amount"
	CodePaymentExists    = "payment_exists"
	CodeFeeNotApplicable = "fee_not_applicable"
	CodeInvalidPayMethod = "invalid_payment_method"
)

var (
	paymentMethodTag  = "paymethod"
	paymentMethodText = "payment_method must be one of " + joinMethods()

	errInvalidAmount = core.NewCodedValidationError(
		CodeInvalidAmount, "invalid amount: amount must be greater than 0",
		core.FieldError{Field: "amount_paid", Error: "must be greater than 0"},
	)
	errAmountPrecision = core.NewCodedValidationError(
		CodeInvalidAmount, "invalid amount: amount must have at most 2 decimal places and 10 integer digits",
		core.FieldError{Field: "amount_paid", Error: "must have at most 2 decimal places and 10 integer digits"},
	)
)

// InitValidators registers the payment validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(paymentMethodTag, paymentMethodValidation)
	core.RegisterCustomTranslation(validate, translator, paymentMethodTag, paymentMethodText)
	core.RegisterTagCode(paymentMethodTag, CodeInvalidPayMethod)
}

func joinMethods() string {
	names := make([]string, 0, len(Methods))
	for _, m := range Methods {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

// paymentMethodValidation checks that the payment method is a known Method.
func paymentMethodValidation(fl validator.FieldLevel) bool {
	return Method(fl.Field().String()).Valid()
}
