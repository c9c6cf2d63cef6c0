// Package validation checks registration input before it reaches the store.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Muragesh-24/ENGIGROW/internal/domain"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxEmailLength    = 254
	passwordSymbols   = "@$!%*?&"
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	passwordCharset = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]+$`)
	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordLower   = regexp.MustCompile(`[a-z]`)
	passwordDigit   = regexp.MustCompile(`\d`)
	passwordSymbol  = regexp.MustCompile(`[@$!%*?&]`)
)

// ValidatePassword enforces the registration password policy.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return invalid("password must be at least %d characters long", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return invalid("password must not exceed %d characters", maxPasswordLength)
	}
	if !passwordCharset.MatchString(password) {
		return invalid("password may only contain letters, digits and %s", passwordSymbols)
	}
	if !passwordUpper.MatchString(password) {
		return invalid("password must contain at least one uppercase letter")
	}
	if !passwordLower.MatchString(password) {
		return invalid("password must contain at least one lowercase letter")
	}
	if !passwordDigit.MatchString(password) {
		return invalid("password must contain at least one digit")
	}
	if !passwordSymbol.MatchString(password) {
		return invalid("password must contain at least one of %s", passwordSymbols)
	}
	return nil
}

// ValidateEmail checks basic email format.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLength {
		return invalid("email must not exceed %d characters", maxEmailLength)
	}
	if !emailPattern.MatchString(email) {
		return invalid("invalid email format")
	}
	return nil
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Required fails when value is blank after trimming.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}
