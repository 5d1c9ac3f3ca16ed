// Package validation wraps go-playground/validator with English messages keyed by JSON field names.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

// Validator validates request structs.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a validator with the default English translations registered.
func New() *Validator {
	validate := validator.New()
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: validate, translator: translator}
}

// Struct validates s. Failures come back as a VALIDATION_ERROR whose message lists every
// failing field.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, appErrors.ErrValidation.Message)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fe.Translate(v.translator))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, strings.Join(messages, "; "))
}
