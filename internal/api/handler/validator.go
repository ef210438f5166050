package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
// Field errors are keyed by the json tag so they line up with the request body.
func NewValidator() *echoValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return domain.ValidateUsername(fl.Field().String()) == ""
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return domain.ValidateSlug(fl.Field().String()) == ""
	})
	return &echoValidator{v: v}
}

// Validate satisfies the echo.Validator interface.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			out := &domain.ValidationError{}
			for _, fe := range ve {
				out.Add(fe.Field(), fieldError(fe))
			}
			return out
		}
		return err
	}
	return nil
}

// fieldError converts a single FieldError into the message the services use
// for the same constraint.
func fieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
		}
		return fmt.Sprintf("ensure this value is less than or equal to %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("ensure this field has at least %s characters", fe.Param())
		}
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice", fmt.Sprint(fe.Value()))
	case "username":
		return domain.ValidateUsername(fmt.Sprint(fe.Value()))
	case "slug":
		return domain.ValidateSlug(fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("failed validation (%s)", fe.Tag())
	}
}
