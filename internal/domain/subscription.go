package domain

import "time"

// SubscriptionStatus is the opt-in state of a phone number.
type SubscriptionStatus string

const (
	SubscriptionOptedIn  SubscriptionStatus = "OPTED_IN"
	SubscriptionOptedOut SubscriptionStatus = "OPTED_OUT"
)

// Valid reports whether s is one of the known statuses.
func (s SubscriptionStatus) Valid() bool {
	return s == SubscriptionOptedIn || s == SubscriptionOptedOut
}

// Subscription records the latest opt-in or opt-out of a phone number.
type Subscription struct {
	Phone     PhoneNumber
	Status    SubscriptionStatus
	UpdatedAt time.Time
}
