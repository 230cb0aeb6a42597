package domain

import (
	"regexp"
	"strings"
)

// Default identity key parts.
const (
	DefaultEmailNamespace = "sms"
	DefaultEmailDomain    = "rescuelink.com"
)

// IdentityScheme derives the backend lookup key from a phone number.
// The derived email is "<namespace>-<digits>@<domain>".
type IdentityScheme struct {
	Namespace string
	Domain    string
}

// DefaultIdentityScheme returns the scheme used when nothing is configured.
func DefaultIdentityScheme() IdentityScheme {
	return IdentityScheme{Namespace: DefaultEmailNamespace, Domain: DefaultEmailDomain}
}

// DerivedEmail computes the identity key. The digit run is copied verbatim,
// so distinct numbers always yield distinct keys.
func (s IdentityScheme) DerivedEmail(phone PhoneNumber) string {
	return s.namespace() + "-" + phone.Digits() + "@" + s.domain()
}

// LegacyEmail is the key of customers created before the digit-only form:
// "<namespace><phone>@<domain>", the phone keeping its leading "+".
func (s IdentityScheme) LegacyEmail(phone PhoneNumber) string {
	return s.namespace() + phone.String() + "@" + s.domain()
}

var loosePhonePattern = regexp.MustCompile(`\+\d+`)

// PhoneFromDerivedEmail reverses DerivedEmail. It also accepts the legacy
// "sms+<digits>@" form and, as a last resort, any "+<digits>" run.
func (s IdentityScheme) PhoneFromDerivedEmail(email string) (PhoneNumber, bool) {
	email = strings.TrimSpace(email)
	local, _, found := strings.Cut(email, "@")
	if found && strings.HasPrefix(strings.ToLower(local), strings.ToLower(s.namespace())) {
		rest := local[len(s.namespace()):]
		rest = strings.TrimLeft(rest, "-+_.")
		if rest != "" && isDigits(rest) {
			return PhoneNumber("+" + rest), true
		}
	}
	if match := loosePhonePattern.FindString(email); match != "" {
		return PhoneNumber(match), true
	}
	return "", false
}

func (s IdentityScheme) namespace() string {
	if s.Namespace == "" {
		return DefaultEmailNamespace
	}
	return s.Namespace
}

func (s IdentityScheme) domain() string {
	if s.Domain == "" {
		return DefaultEmailDomain
	}
	return s.Domain
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CustomerIdentity is the ticketing backend customer for a phone number.
// ExternalID is empty when the backend could not be reached.
type CustomerIdentity struct {
	ExternalID string
	Email      string
	Phone      PhoneNumber
	Degraded   bool
}

// HasExternalID reports whether the backend id is known.
func (c CustomerIdentity) HasExternalID() bool {
	return c.ExternalID != ""
}

// ContactChannel is an address attached to a backend customer.
type ContactChannel struct {
	Type    string
	Address string
}

// Customer is the backend customer record.
type Customer struct {
	ID       string
	Email    string
	Name     string
	Phone    string
	Channels []ContactChannel
}
