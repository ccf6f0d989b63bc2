package service

import (
	"net/mail"
	"regexp"
	"saas-auth-server/internal/apperror"
	"strings"
	"unicode"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

const (
	minPasswordLength = 8
	maxUsernameLength = 32
)

func validateEmail(email string) error {
	address, err := mail.ParseAddress(email)
	if err != nil || address.Address != email {
		return apperror.Unprocessable("Invalid email address")
	}
	return nil
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return apperror.Unprocessable("Username must be 3-32 characters of letters, digits, '_' or '-'")
	}
	return nil
}

// validatePassword : at least 8 characters with at least one letter and one digit
func validatePassword(password string) error {
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if len([]rune(password)) < minPasswordLength || !hasLetter || !hasDigit {
		return apperror.Unprocessable("Password must be at least 8 characters and contain a letter and a digit")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
