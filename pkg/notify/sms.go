package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSConfig holds the Twilio credentials and sending number.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSNotifier sends the notification subject as a text message.
type SMSNotifier struct {
	from string
	api  messageCreator
}

func NewSMSNotifier(cfg SMSConfig) *SMSNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &SMSNotifier{from: cfg.From, api: client.Api}
}

func (s *SMSNotifier) Notify(ctx context.Context, n Notification) error {
	if n.Phone == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.Phone)
	params.SetFrom(s.from)
	params.SetBody(n.Subject)

	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("send sms to %s: %w", n.Phone, err)
	}
	return nil
}
