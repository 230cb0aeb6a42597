package gateway

import (
	"github.com/twilio/twilio-go/twiml"
)

// TwiMLContentType is the content type of gateway acknowledgements.
const TwiMLContentType = "text/xml"

const emptyResponse = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// RenderReply builds the synchronous acknowledgement returned to the
// gateway for an inbound message. An empty reply yields an empty response.
func RenderReply(message string) []byte {
	var verbs []twiml.Element
	if message != "" {
		verbs = append(verbs, &twiml.MessagingMessage{Body: message})
	}
	body, err := twiml.Messages(verbs)
	if err != nil {
		return []byte(emptyResponse)
	}
	return []byte(body)
}
