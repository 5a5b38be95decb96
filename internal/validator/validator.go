package validator

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidFullName = errors.New("invalid full name")
)

const (
	maxFullName = 100
	maxNote     = 500
)

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	strictPolicy  = bluemonday.StrictPolicy()
)

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}

func ValidateFullName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxFullName {
		return ErrInvalidFullName
	}
	if Sanitize(name) != name {
		return ErrInvalidFullName
	}
	return nil
}

// Sanitize strips all markup from free text and bounds its length.
func Sanitize(text string) string {
	clean := strings.TrimSpace(strictPolicy.Sanitize(text))
	if utf8.RuneCountInString(clean) > maxNote {
		clean = string([]rune(clean)[:maxNote])
	}
	return clean
}
