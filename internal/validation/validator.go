// Package validation checks request payloads against declarative schemas and
// reports the first violated field in the wording existing clients expect.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"contacts-service/internal/apperror"
)

// PhonePattern is the only accepted phone shape: (XXX) XXX-XXXX
const PhonePattern = `^\(\d{3}\) \d{3}-\d{4}$`

var phoneRegexp = regexp.MustCompile(PhonePattern)

// Validator implements echo.Validator on top of go-playground/validator.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRegexp.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Validate checks i and returns a *apperror.ValidationError for the first failing field.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate %T: %w", i, err)
	}

	fe := fieldErrs[0]
	return &apperror.ValidationError{Field: fe.Field(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	value := reflect.Indirect(reflect.ValueOf(fe.Value()))

	if fe.Tag() != "required" && value.IsValid() && value.Kind() == reflect.String && value.String() == "" {
		return fmt.Sprintf("%q is not allowed to be empty", field)
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%q length must be less than or equal to %s characters long", field, fe.Param())
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "phone":
		return fmt.Sprintf("%q with value %q fails to match the required pattern: /%s/", field, value.String(), PhonePattern)
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", field, strings.Join(strings.Fields(fe.Param()), ", "))
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}
