package validation

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	passwordMin = "12"
	passwordMax = "128"
)

func init() {
	_ = validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwordProblem(fl.Field().String()) == ""
	})
}

// passwordProblem names the first missing character class, or "" when the
// password mixes upper case, lower case, digits and symbols.
func passwordProblem(p string) string {
	var upper, lower, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	switch {
	case !upper:
		return "an uppercase letter"
	case !lower:
		return "a lowercase letter"
	case !digit:
		return "a digit"
	case !symbol:
		return "a symbol such as !@#$%"
	}
	return ""
}

// ValidatePassword enforces length and character-class rules on a new password.
func ValidatePassword(password string) error {
	if err := Var("password", password, "required,min="+passwordMin+",max="+passwordMax); err != nil {
		return err
	}
	if problem := passwordProblem(password); problem != "" {
		return errors.New("password must contain " + problem)
	}
	return nil
}

// ValidateDisplayName checks the public name shown next to a user's groups.
func ValidateDisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	if SanitizeText(name) != trimmed {
		return errors.New("name must not contain markup")
	}
	return Var("name", trimmed, "required,min=2,max=64")
}

func ValidateEmail(email string) error {
	return Var("email", email, "required,email,max=254")
}
