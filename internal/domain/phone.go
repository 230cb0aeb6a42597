package domain

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned when a value carries no digits.
var ErrInvalidPhone = errors.New("invalid phone number")

// PhoneNumber is a canonical "+<digits>" phone number.
type PhoneNumber string

// NormalizePhone strips everything but digits and prefixes "+".
// Leading zeros are kept; no country code is inferred.
func NormalizePhone(raw string) (PhoneNumber, error) {
	var b strings.Builder
	b.Grow(len(raw) + 1)
	b.WriteByte('+')
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 1 {
		return "", ErrInvalidPhone
	}
	return PhoneNumber(b.String()), nil
}

// Digits returns the number without the leading "+".
func (p PhoneNumber) Digits() string {
	return strings.TrimPrefix(string(p), "+")
}

func (p PhoneNumber) String() string {
	return string(p)
}
