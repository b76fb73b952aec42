package twilio

import (
	"fmt"
	"strings"

	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Client wraps Twilio messaging operations required by the nudge engine.
type Client struct {
	client     *twilio.RestClient
	fromNumber string
}

// New creates a Twilio client bound to the configured sender number.
func New(accountSID, authToken, fromNumber string) *Client {
	return &Client{
		client:     twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken}),
		fromNumber: fromNumber,
	}
}

// SendSMS sends a text message via Twilio's API. It satisfies the delivery
// worker's Sender interface and performs no retries; the caller decides
// what a failed send means.
func (c *Client) SendSMS(to, body string) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("twilio client not initialised")
	}

	sender := normalizeNumber(c.fromNumber)
	if sender == "" {
		return fmt.Errorf("twilio sender number is not configured")
	}

	recipient := normalizeNumber(to)
	if recipient == "" {
		return fmt.Errorf("recipient number missing or invalid")
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(sender)
	params.SetBody(body)

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send message error: %w", err)
	}
	if resp.Sid == nil {
		return fmt.Errorf("twilio send returned no message SID")
	}
	return nil
}

// normalizeNumber coerces a raw number into E.164 form.
func normalizeNumber(number string) string {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "+") {
		return trimmed
	}
	return "+" + trimmed
}

// SanitizeInbound strips Twilio channel prefixes from an inbound From value
// so it matches the stored user phone number.
func SanitizeInbound(from string) string {
	trimmed := strings.TrimSpace(from)
	trimmed = strings.TrimPrefix(trimmed, "whatsapp:")
	trimmed = strings.TrimPrefix(trimmed, "sms:")
	return trimmed
}
