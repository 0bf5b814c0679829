package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidationError is a form-level problem meant to be shown next to the form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Validate checks struct tags and reports the first failing field.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validation failed: %w", err)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: fe.Field(), Message: "is required"}
	case "email":
		return &ValidationError{Field: fe.Field(), Message: "must be a valid email address"}
	default:
		return &ValidationError{Field: fe.Field(), Message: "is invalid"}
	}
}

// ValidateDateOrder requires checkIn to be a strictly earlier calendar day.
func ValidateDateOrder(checkIn, checkOut string) error {
	in, err := time.Parse(DateLayout, checkIn)
	if err != nil {
		return &ValidationError{Field: "checkIn", Message: "must be a YYYY-MM-DD date"}
	}
	out, err := time.Parse(DateLayout, checkOut)
	if err != nil {
		return &ValidationError{Field: "checkOut", Message: "must be a YYYY-MM-DD date"}
	}
	if !in.Before(out) {
		return &ValidationError{Field: "checkOut", Message: "must be after check-in"}
	}
	return nil
}
