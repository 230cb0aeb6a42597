package gorgias

import (
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/sms-ticket-bridge/pkg/util/jsonutil"
)

// timestamp decodes backend datetimes, with or without a zone suffix.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t *timestamp) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type channelPayload struct {
	Type    string `json:"type"`
	Address string `json:"address"`
}

type customerPayload struct {
	ID       jsonutil.FlexibleID `json:"id,omitempty"`
	Email    string              `json:"email,omitempty"`
	Name     string              `json:"name,omitempty"`
	Phone    string              `json:"phone,omitempty"`
	Channels []channelPayload    `json:"channels,omitempty"`
}

type customerList struct {
	Data []customerPayload `json:"data"`
}

type createCustomerRequest struct {
	Email    string           `json:"email"`
	Name     string           `json:"name,omitempty"`
	Phone    string           `json:"phone,omitempty"`
	Channels []channelPayload `json:"channels,omitempty"`
}

type customerRef struct {
	ID    int64  `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

type addressPayload struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

type sourcePayload struct {
	Type string           `json:"type"`
	From addressPayload   `json:"from"`
	To   []addressPayload `json:"to"`
}

type messageRequest struct {
	Source    sourcePayload `json:"source"`
	BodyText  string        `json:"body_text"`
	Channel   string        `json:"channel"`
	FromAgent bool          `json:"from_agent"`
	Via       string        `json:"via"`
	Sender    *customerRef  `json:"sender,omitempty"`
}

type createTicketRequest struct {
	Customer  customerRef      `json:"customer"`
	Messages  []messageRequest `json:"messages"`
	Channel   string           `json:"channel"`
	FromAgent bool             `json:"from_agent"`
	Status    string           `json:"status"`
	Via       string           `json:"via"`
	Subject   string           `json:"subject"`
}

type messagePayload struct {
	ID              jsonutil.FlexibleID `json:"id"`
	TicketID        jsonutil.FlexibleID `json:"ticket_id"`
	BodyText        string              `json:"body_text"`
	Channel         string              `json:"channel"`
	FromAgent       bool                `json:"from_agent"`
	Source          *sourcePayload      `json:"source"`
	CreatedDatetime timestamp           `json:"created_datetime"`
}

type ticketPayload struct {
	ID                  jsonutil.FlexibleID `json:"id"`
	Status              string              `json:"status"`
	Channel             string              `json:"channel"`
	Subject             string              `json:"subject"`
	Customer            *customerPayload    `json:"customer"`
	CreatedDatetime     timestamp           `json:"created_datetime"`
	UpdatedDatetime     timestamp           `json:"updated_datetime"`
	LastMessageDatetime *timestamp          `json:"last_message_datetime"`
	ClosedDatetime      *timestamp          `json:"closed_datetime"`
	TrashedDatetime     *timestamp          `json:"trashed_datetime"`
	MessagesCount       int                 `json:"messages_count"`
	Messages            []messagePayload    `json:"messages"`
}

type ticketList struct {
	Data []ticketPayload `json:"data"`
}

func parseNumericID(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
