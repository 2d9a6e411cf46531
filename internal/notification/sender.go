package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var ErrRecipientMissing = errors.New("recipient number missing or invalid")

// LogSender writes reminders to the log instead of delivering them.
type LogSender struct {
	log *logrus.Logger
}

func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, n Notification) error {
	s.log.WithFields(logrus.Fields{
		"appointment_id": n.AppointmentID,
		"recipient":      n.Recipient,
		"deep_link":      n.DeepLink,
	}).Info(n.Title)
	return nil
}

type messageAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// WhatsAppSender delivers reminders to the owner's phone through Twilio.
type WhatsAppSender struct {
	api  messageAPI
	from string
	log  *logrus.Logger
}

func NewWhatsAppSender(accountSID, authToken, from string, log *logrus.Logger) *WhatsAppSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &WhatsAppSender{
		api:  client.Api,
		from: from,
		log:  log,
	}
}

func (s *WhatsAppSender) Send(ctx context.Context, n Notification) error {
	sender := whatsAppAddress(s.from)
	if sender == "" {
		return errors.New("twilio sender WhatsApp number is not configured")
	}
	recipient := whatsAppAddress(n.Recipient)
	if recipient == "" {
		return ErrRecipientMissing
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(sender)
	params.SetBody(n.Message())

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send message: %w", err)
	}

	if resp != nil && resp.Sid != nil {
		s.log.Infof("Reminder sent: appointment=%d, sid=%s", n.AppointmentID, *resp.Sid)
	}
	return nil
}

func whatsAppAddress(number string) string {
	trimmed := strings.TrimSpace(number)
	switch {
	case trimmed == "":
		return ""
	case strings.HasPrefix(trimmed, "whatsapp:"):
		return trimmed
	case strings.HasPrefix(trimmed, "+"):
		return "whatsapp:" + trimmed
	default:
		return "whatsapp:+" + trimmed
	}
}
