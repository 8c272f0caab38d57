// Package phone normalizes and validates Spanish phone numbers typed by users.
package phone

import (
	"errors"
	"strings"
)

// Reason distinguishes why a phone number was rejected.
type Reason int

const (
	// ReasonFormat means the number is not exactly nine decimal digits.
	ReasonFormat Reason = iota + 1
	// ReasonPrefix means the first digit is not a Spanish mobile/landline prefix.
	ReasonPrefix
)

// ErrInvalidPhone matches every *InvalidPhoneError via errors.Is.
var ErrInvalidPhone = errors.New("invalid phone")

const (
	msgFormat = "Teléfono inválido: debe tener 9 dígitos (España). Ej: 654789098"
	msgPrefix = "Teléfono inválido: debe empezar por 6, 7, 8 o 9 (España)."
)

// InvalidPhoneError carries the normalized input and a user-facing message.
type InvalidPhoneError struct {
	Reason     Reason
	Normalized string
}

func (e *InvalidPhoneError) Error() string {
	if e.Reason == ReasonPrefix {
		return msgPrefix
	}
	return msgFormat
}

// Is makes errors.Is(err, ErrInvalidPhone) succeed.
func (e *InvalidPhoneError) Is(target error) bool {
	return target == ErrInvalidPhone
}

// Code exposes a stable error code for logs.
func (e *InvalidPhoneError) Code() string {
	if e.Reason == ReasonPrefix {
		return "PHONE_PREFIX"
	}
	return "PHONE_FORMAT"
}

var separators = strings.NewReplacer(" ", "", "-", "", ".", "")

// Normalize strips separators and the Spanish country code. It never fails;
// the result may still be malformed.
func Normalize(raw string) string {
	s := separators.Replace(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(s, "+34"):
		s = s[3:]
	case strings.HasPrefix(s, "34") && len(s) == 11:
		// a bare 9-digit number starting with 34 must survive untouched
		s = s[2:]
	}
	return s
}

// Validate normalizes raw and accepts only 9-digit numbers starting with 6, 7, 8 or 9.
func Validate(raw string) (string, error) {
	cleaned := Normalize(raw)
	if len(cleaned) != 9 || !allDigits(cleaned) {
		return "", &InvalidPhoneError{Reason: ReasonFormat, Normalized: cleaned}
	}
	switch cleaned[0] {
	case '6', '7', '8', '9':
		return cleaned, nil
	}
	return "", &InvalidPhoneError{Reason: ReasonPrefix, Normalized: cleaned}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
