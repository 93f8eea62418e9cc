package core

import (
	"reflect"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

var (
	// overridden translations
	requiredTag  = "required"
	requiredText = "this field is required"

	gtTag   = "gt"
	gtText  = "must be greater than {1}"
	gteTag  = "gte"
	gteText = "must be greater than or equal to {1}"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// let builtin tags (gt, gte, min, max, required...) see through our value types
	validate.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	validate.RegisterCustomTypeFunc(nullValue, null.Int{}, null.String{})
	validate.RegisterCustomTypeFunc(dateValue, Date{})

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterParamTranslation(validate, translator, gtTag, gtText, true)
	RegisterParamTranslation(validate, translator, gteTag, gteText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// RegisterParamTranslation is like RegisterCustomTranslation but also passes the tag param as {1}.
func RegisterParamTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field(), fe.Param())
			return s
		},
	)
}

// Custom Type Funcs

// decimalValue exposes a decimal.Decimal as a float64 to numeric tags.
func decimalValue(v reflect.Value) interface{} {
	if d, ok := v.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

// nullValue exposes the underlying value of a Valid null type, nil otherwise.
func nullValue(v reflect.Value) interface{} {
	switch n := v.Interface().(type) {
	case null.Int:
		if n.Valid {
			return n.Int
		}
	case null.String:
		if n.Valid {
			return n.String
		}
	}
	return nil
}

// dateValue exposes a Date as its YYYY-MM-DD string, nil for the zero Date.
func dateValue(v reflect.Value) interface{} {
	if d, ok := v.Interface().(Date); ok && !d.IsZero() {
		return d.String()
	}
	return nil
}

var tagCodes = make(map[string]string)

// RegisterTagCode maps a validation tag to the API error code reported when it fails.
// It must be called during initialization.
func RegisterTagCode(tag, code string) {
	tagCodes[tag] = code
}

// ValidationCode returns the API error code of the first failed tag having one, CodeValidation otherwise.
func ValidationCode(errs validator.ValidationErrors) string {
	for _, fe := range errs {
		if code, ok := tagCodes[fe.Tag()]; ok {
			return code
		}
	}
	return CodeValidation
}
