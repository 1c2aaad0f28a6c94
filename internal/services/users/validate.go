package users

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bengobox/church-admin/internal/errs"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lowercases an address and checks its shape.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(email) {
		return "", errs.Invalid("email", "invalid email")
	}
	return email, nil
}

// FormatCPF renders an 11 digit CPF as 000.000.000-00.
func FormatCPF(raw string) (string, error) {
	d := digits(raw)
	if len(d) != 11 {
		return "", errs.Invalid("cpf", "must contain 11 digits")
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11], nil
}

// NormalizePhone keeps the digits of a phone number, requiring at least ten.
func NormalizePhone(raw string) (string, error) {
	d := digits(raw)
	if len(d) < 10 {
		return "", errs.Invalid("phone", "must contain at least 10 digits")
	}
	return d, nil
}

// CheckPassword enforces the minimum length in characters.
func CheckPassword(password string, minLength int) error {
	if utf8.RuneCountInString(password) < minLength {
		return errs.Invalid("password", fmt.Sprintf("must have at least %d characters", minLength))
	}
	return nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
