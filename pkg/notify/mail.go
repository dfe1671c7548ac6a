package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// MailConfig is the SMTP relay used for outbound email.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailNotifier sends notifications as plain-text email.
type MailNotifier struct {
	from   string
	sender mailSender
}

// NewMailNotifier builds a notifier on an SMTP dialer. Port 465 uses implicit TLS.
func NewMailNotifier(cfg MailConfig) *MailNotifier {
	return &MailNotifier{
		from:   cfg.From,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (m *MailNotifier) Notify(ctx context.Context, n Notification) error {
	if n.Email == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", n.Email)
	msg.SetHeader("Subject", n.Subject)
	msg.SetBody("text/plain", n.Body)

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", n.Email, err)
	}
	return nil
}
