// Package validate holds the input rules shared by the domain services.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Error reports a rejected input field. Services return it unwrapped so
// handlers can map it to 400 with errors.As.
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Field + ": " + e.Message
}

// Errorf builds a validation Error for field.
func Errorf(field, format string, args ...interface{}) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a validation Error.
func IsValidation(err error) bool {
	var v *Error
	return errors.As(err, &v)
}

var (
	controlChars    = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	namePattern     = regexp.MustCompile(`^[\p{L}\s'-]+$`)
)

// Clean trims surrounding whitespace and strips control characters other
// than tab, newline and carriage return.
func Clean(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// Text cleans s and checks its length in characters against [min, max].
func Text(field, s string, min, max int) (string, error) {
	s = Clean(s)
	n := utf8.RuneCountInString(s)
	if n == 0 && min > 0 {
		return "", Errorf(field, "is required")
	}
	if n < min {
		return "", Errorf(field, "must be at least %d characters", min)
	}
	if n > max {
		return "", Errorf(field, "must be at most %d characters", max)
	}
	return s, nil
}

// OptionalText is Text for fields that may be empty.
func OptionalText(field, s string, max int) (string, error) {
	return Text(field, s, 0, max)
}

func Username(s string) (string, error) {
	s, err := Text("username", s, 3, 50)
	if err != nil {
		return "", err
	}
	if !usernamePattern.MatchString(s) {
		return "", Errorf("username", "may only contain letters, numbers, underscores and hyphens")
	}
	return s, nil
}

// Password is checked verbatim: no trimming and no stripping.
func Password(field, s string) error {
	n := utf8.RuneCountInString(s)
	if n < 6 {
		return Errorf(field, "must be at least 6 characters")
	}
	if n > 128 {
		return Errorf(field, "must be at most 128 characters")
	}
	return nil
}

func FullName(s string) (string, error) {
	s, err := Text("full_name", s, 2, 100)
	if err != nil {
		return "", err
	}
	if !namePattern.MatchString(s) {
		return "", Errorf("full_name", "may only contain letters, spaces, apostrophes and hyphens")
	}
	return s, nil
}

func Age(age int) error {
	if age < 1 || age > 150 {
		return Errorf("age", "must be between 1 and 150")
	}
	return nil
}

var genders = map[string]bool{
	"male": true, "female": true, "other": true, "prefer_not_to_say": true,
}

func Gender(s string) (string, error) {
	g := strings.ToLower(strings.TrimSpace(s))
	if g == "" {
		return "", Errorf("gender", "is required")
	}
	if !genders[g] {
		return "", Errorf("gender", "must be one of male, female, other, prefer_not_to_say")
	}
	return g, nil
}
