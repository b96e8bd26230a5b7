package booking

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/teemow/calmate/internal/apperror"
	"github.com/teemow/calmate/internal/calendar"
)

// NewValidator returns a validator that reports JSON field names and knows
// the "account" tag ("default" or an email address).
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("account", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if calendar.IsDefaultAccount(s) {
			return true
		}
		return v.Var(s, "email") == nil
	})

	return v
}

// validateRequest validates req and converts failures to InvalidInput.
func validateRequest(v *validator.Validate, req interface{}) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.InvalidInput("invalid request: %v", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apperror.InvalidInput("%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be an email address", field)
	case "account":
		return fmt.Sprintf("%s must be \"default\" or an email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
