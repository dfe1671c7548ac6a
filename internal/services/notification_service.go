package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/models"
	"storefront/pkg/notify"
)

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return "$" + d.StringFixed(2) },
	"orNA": func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	},
}

var (
	orderBusinessTmpl = template.Must(template.New("order_business").Funcs(templateFuncs).Parse(
		`A new purchase was completed:

Name: {{.Buyer.Name}}
Email: {{.Buyer.Email}}
Phone: {{orNA .Buyer.Phone}}
Order: {{.ID}}
Payment: {{.IntentID}}

Items:
{{range .Items}}{{.Name}} x{{.Qty}} = {{money .Subtotal}}
{{end}}
Total: {{money .Total}}
`))

	orderBuyerTmpl = template.Must(template.New("order_buyer").Funcs(templateFuncs).Parse(
		`Hello {{.Buyer.Name}},

Thank you for your purchase!

You bought:
{{range .Items}}{{.Name}} x{{.Qty}} = {{money .Subtotal}}
{{end}}
Total: {{money .Total}}
Order reference: {{.ID}}

We appreciate your business! We'll be in touch soon.
`))

	leadBusinessTmpl = template.Must(template.New("lead_business").Funcs(templateFuncs).Parse(
		`A new booking was created:

Name: {{.Name}}
Email: {{.Email}}
Phone: {{orNA .Phone}}
Service Type: {{orNA .ServiceType}}
Created At: {{.CreatedAt.Format "2006-01-02 15:04 MST"}}
`))

	leadBuyerTmpl = template.Must(template.New("lead_buyer").Funcs(templateFuncs).Parse(
		`Hello {{.Name}}, thanks for booking. We'll be in touch soon.`))
)

// Contact is where business-side notifications are sent.
type Contact struct {
	Email string
	Phone string
}

// NotificationService renders and sends the business and buyer messages for
// orders and leads. Both sends are always attempted.
type NotificationService struct {
	notifier notify.Notifier
	business Contact
	timeout  time.Duration
}

func NewNotificationService(notifier notify.Notifier, business Contact, timeout time.Duration) *NotificationService {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &NotificationService{notifier: notifier, business: business, timeout: timeout}
}

// OrderPlaced notifies the business and the buyer about a recorded order.
func (s *NotificationService) OrderPlaced(ctx context.Context, order *models.Order) error {
	return s.send(ctx,
		message{notify.KindBusiness, s.business.Email, s.business.Phone, "New Purchase from " + order.Buyer.Name, orderBusinessTmpl, order},
		message{notify.KindBuyer, order.Buyer.Email, order.Buyer.Phone, "Thank You for Your Purchase!", orderBuyerTmpl, order},
	)
}

// LeadCaptured notifies the business and the prospect about a booking request.
func (s *NotificationService) LeadCaptured(ctx context.Context, lead *models.Lead) error {
	return s.send(ctx,
		message{notify.KindBusiness, s.business.Email, s.business.Phone, "New Booking from " + lead.Name, leadBusinessTmpl, lead},
		message{notify.KindBuyer, lead.Email, lead.Phone, "Thank You for Booking with Us!", leadBuyerTmpl, lead},
	)
}

type message struct {
	kind    notify.Kind
	email   string
	phone   string
	subject string
	tmpl    *template.Template
	data    any
}

func (s *NotificationService) send(ctx context.Context, msgs ...message) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var errs []error
	for _, m := range msgs {
		var body bytes.Buffer
		if err := m.tmpl.Execute(&body, m.data); err != nil {
			errs = append(errs, fmt.Errorf("render %s: %w", m.tmpl.Name(), err))
			continue
		}
		err := s.notifier.Notify(ctx, notify.Notification{
			Kind:    m.kind,
			Email:   m.email,
			Phone:   m.phone,
			Subject: m.subject,
			Body:    body.String(),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s notification: %w", m.kind, err))
		}
	}
	return errors.Join(errs...)
}
