package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	monthYearTag   = "monthyear"
	monthYearText  = "{0} must use the MM/YYYY format"
	monthYearRegex = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{4}$`)

	requiredTag   = "required"
	requiredIfTag = "required_if"
	requiredText  = "{0} is required"
)

// Validator checks domain values against their struct tags and reports
// failures by JSON field name.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New instantiates the validator with English messages.
func New() *Validator {
	validate := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate, translator: translator}

	_ = validate.RegisterValidation(monthYearTag, monthYearValidation)
	v.registerTranslation(monthYearTag, monthYearText, false)
	v.registerTranslation(requiredTag, requiredText, true)
	v.registerTranslation(requiredIfTag, requiredText, true)

	return v
}

func (v *Validator) registerTranslation(tag, text string, override bool) {
	_ = v.validate.RegisterTranslation(
		tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates a struct (or pointer to struct). It returns nil or an
// *Error listing every failing field.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field: fieldPath(fe.Namespace()),
			Error: fe.Translate(v.translator),
		})
	}
	return NewError(ErrInvalid, fields...)
}

// Require returns an *Error when value is blank.
func (v *Validator) Require(field, value string) error {
	if strings.TrimSpace(value) != "" {
		return nil
	}
	msg, _ := v.translator.T(requiredTag, field)
	return NewError(ErrInvalid, FieldError{Field: field, Error: msg})
}

// fieldPath drops the root struct name from a validator namespace:
// "StudentReport.entries[0].stars" becomes "entries[0].stars".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// monthYearValidation only allows MM/YYYY dates.
func monthYearValidation(fl validator.FieldLevel) bool {
	return ValidMonthYear(fl.Field().String())
}

// ValidMonthYear reports whether s uses the MM/YYYY format.
func ValidMonthYear(s string) bool {
	return monthYearRegex.MatchString(s)
}
