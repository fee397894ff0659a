package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// NewValidator returns a validator that reports JSON field names and knows the
// phone10 and assignable rules.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	// The unset sentinel is never a real officer.
	_ = v.RegisterValidation("assignable", func(fl validator.FieldLevel) bool {
		return !strings.EqualFold(strings.TrimSpace(fl.Field().String()), models.NotAvailable)
	})
	return v
}

// fieldErrors flattens validator output into per-field messages.
func fieldErrors(err error) []appErrors.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]appErrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, appErrors.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "phone10":
		return "must be a 10-digit number"
	case "assignable":
		return fmt.Sprintf("must name an officer, not %s", models.NotAvailable)
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	default:
		return "is invalid"
	}
}

// validate runs struct validation and appends any extra field errors.
func validate(v *validator.Validate, payload interface{}, message string, extra ...appErrors.FieldError) error {
	var fields []appErrors.FieldError
	if err := v.Struct(payload); err != nil {
		fields = fieldErrors(err)
		if fields == nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
		}
	}
	fields = append(fields, extra...)
	if len(fields) == 0 {
		return nil
	}
	return appErrors.Validation(message, fields...)
}
