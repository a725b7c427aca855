// Package validation wraps go-playground/validator with a shared, lazily built
// instance and turns field errors into domain.ErrValidation messages that can
// be shown to API clients as-is.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/pkordes/quietlocations/backend/internal/domain"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// instance returns the process-wide validator. validator.Validate caches
// struct metadata and is safe for concurrent use.
func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report json names ("lat") rather than Go names ("Latitude").
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s using its `validate` tags.
// The returned error wraps domain.ErrValidation; only the first failing field
// is reported, in declaration order.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, message(fieldErrs[0].Field(), fieldErrs[0]))
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

// Var validates a single value against tag, naming it field in the message.
func Var(field string, v any, tag string) error {
	err := instance().Var(v, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, message(field, fieldErrs[0]))
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
