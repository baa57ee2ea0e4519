// Package validation provides input validation utilities
package validation

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate = validator.New(validator.WithRequiredStructEnabled())
	strict   = bluemonday.StrictPolicy()
)

// Struct validates v against its `validate` tags and returns a readable error.
func Struct(v any) error {
	return describe(validate.Struct(v))
}

// Var validates a single value against tag.
func Var(field string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s %s", field, ruleMessage(verrs[0]))
		}
		return err
	}
	return nil
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", strings.ToLower(fe.Field()), ruleMessage(fe)))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " long"
	case "min":
		return "must be at least " + fe.Param() + " long"
	case "email":
		return "must be a valid email address"
	default:
		return "failed " + fe.Tag()
	}
}

const maxSanitizePasses = 8

// SanitizeText strips all markup from s, including markup hidden behind
// entity escapes, and collapses whitespace.
func SanitizeText(s string) string {
	stable := false
	for range maxSanitizePasses {
		next := html.UnescapeString(strict.Sanitize(s))
		stable = next == s
		s = next
		if stable {
			break
		}
	}
	if !stable {
		s = strings.NewReplacer("<", "", ">", "").Replace(s)
	}
	return strings.Join(strings.Fields(s), " ")
}
