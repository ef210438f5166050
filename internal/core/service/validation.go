package service

import (
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/yamdb/yamdb-api/internal/core/domain"
)

var validate = validator.New()

func validateEmail(email string) string {
	switch {
	case email == "":
		return "this field is required"
	case len(email) > domain.EmailMaxLength:
		return "ensure this field has no more than 254 characters"
	case validate.Var(email, "email") != nil:
		return "enter a valid email address"
	}
	return ""
}

func validateRequiredText(value string, max int) string {
	if value == "" {
		return "this field is required"
	}
	return validateMaxLength(value, max)
}

func validateMaxLength(value string, max int) string {
	if max > 0 && utf8.RuneCountInString(value) > max {
		return fmt.Sprintf("ensure this field has no more than %d characters", max)
	}
	return ""
}
