package fee

import (
	"fmt"
	"reflect"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/bursary/core"
)

const (
	CodeInvalidSemester = "invalid_semester"
	CodeInvalidAmount   = "invalid_amount"
)

var (
	semesterTag  = "semester"
	semesterText = fmt.Sprintf("semester must be between %d and %d", MinSemester, MaxSemester)
	moneyText    = fmt.Sprintf("must have at most %d decimal places and 10 integer digits", core.MoneyPlaces)

	errInvalidSemester = core.NewCodedValidationError(
		CodeInvalidSemester, semesterText,
		core.FieldError{Field: "semester", Error: semesterText},
	)
)

// InitValidators registers the fee validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(semesterTag, semesterValidation)
	core.RegisterCustomTranslation(validate, translator, semesterTag, semesterText)
	core.RegisterTagCode(semesterTag, CodeInvalidSemester)
}

func invalidAmountError(field string) error {
	return core.NewCodedValidationError(
		CodeInvalidAmount, "invalid amount: "+field+" "+moneyText,
		core.FieldError{Field: field, Error: moneyText},
	)
}

func validSemester(sem int) bool {
	return sem >= MinSemester && sem <= MaxSemester
}

// semesterValidation checks that the semester is in the valid range.
func semesterValidation(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		return validSemester(int(fl.Field().Int()))
	}
	return false
}
