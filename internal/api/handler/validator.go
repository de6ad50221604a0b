package handler

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/nexus-app/marketplace/internal/core/domain"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)
	phonePattern    = regexp.MustCompile(`^[0-9]{10}$`)
	abnPattern      = regexp.MustCompile(`^[0-9]{11}$`)
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator with the marketplace format rules
// registered, ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return strongPassword(fl.Field().String())
	})
	// abn11 and trade accept an empty value; presence is decided by required_if.
	_ = v.RegisterValidation("abn11", func(fl validator.FieldLevel) bool {
		s := strings.ReplaceAll(fl.Field().String(), " ", "")
		return s == "" || abnPattern.MatchString(s)
	})
	_ = v.RegisterValidation("trade", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, ok := domain.ParseTrade(s)
		return ok
	})
	return &echoValidator{v: v}
}

// strongPassword requires at least eight characters with an upper-case letter,
// a lower-case letter and a digit.
func strongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// Validate satisfies the echo.Validator interface. Failures are reported as
// 422 with one message per offending field.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return echo.NewHTTPError(http.StatusUnprocessableEntity, strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// fieldError converts a single ValidationError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be less than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "username":
		return field + " must be 3-32 letters, digits, dots, dashes or underscores"
	case "phone10":
		return field + " must be 10 digits"
	case "abn11":
		return field + " must be 11 digits"
	case "strongpassword":
		return field + " must be at least 8 characters with upper-case, lower-case and a digit"
	case "trade":
		return field + " is not a supported trade"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
