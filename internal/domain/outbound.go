package domain

// OutboundEvent is an agent-side message notification from the ticketing
// backend, reduced to the fields used for relaying.
type OutboundEvent struct {
	TicketID       string
	TicketChannel  string
	Customer       Customer
	OriginalFrom   string
	FirstMessage   string
	Body           string
	FromAgent      bool
	MessageChannel string
}

// IsRelayable reports whether the event is an agent reply on an SMS ticket.
func (e OutboundEvent) IsRelayable() bool {
	if !e.FromAgent || e.TicketChannel != ChannelSMS {
		return false
	}
	return e.MessageChannel == "" || e.MessageChannel == ChannelSMS
}
