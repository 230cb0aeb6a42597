package domain

import "time"

// ChannelSMS tags tickets and messages that belong to the SMS channel.
const ChannelSMS = "sms"

// LifecycleState enumerates ticket lifecycle states seen by the engine.
type LifecycleState string

const (
	LifecycleOpen    LifecycleState = "OPEN"
	LifecycleClosed  LifecycleState = "CLOSED"
	LifecycleTrashed LifecycleState = "TRASHED"
)

// Ticket is the backend ticket as classified for threading.
type Ticket struct {
	ID            string
	State         LifecycleState
	Channel       string
	CustomerID    string
	Subject       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastMessageAt *time.Time
	ClosedAt      *time.Time
	TrashedAt     *time.Time
	MessageCount  int
}

// IsSMS reports whether the ticket is eligible for SMS threading.
func (t Ticket) IsSMS() bool {
	return t.Channel == ChannelSMS
}

// LastActivity is the timestamp used to rank open tickets.
func (t Ticket) LastActivity() time.Time {
	if t.LastMessageAt != nil {
		return *t.LastMessageAt
	}
	return t.UpdatedAt
}

// ClassifyLifecycle maps backend status and timestamps to a lifecycle
// state. A trash marker wins over any status.
func ClassifyLifecycle(status string, trashedAt *time.Time) LifecycleState {
	if trashedAt != nil {
		return LifecycleTrashed
	}
	if status == "closed" {
		return LifecycleClosed
	}
	return LifecycleOpen
}

// TicketSubject is the subject given to new SMS tickets.
func TicketSubject(phone PhoneNumber) string {
	return "SMS from " + phone.String()
}
