package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Kind identifies who a notification is for.
type Kind string

const (
	KindBusiness Kind = "business"
	KindBuyer    Kind = "buyer"
)

// Notification is a single outbound message. Email and Phone are optional;
// each transport skips recipients it cannot reach.
type Notification struct {
	Kind    Kind   `json:"kind"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier delivers a notification. A returned error never means the
// surrounding business operation failed.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// MultiNotifier fans a notification out to every transport and joins failures.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		return fmt.Errorf("log notifier: no logger configured")
	}
	logger.Info("notification",
		zap.String("kind", string(n.Kind)),
		zap.String("email", n.Email),
		zap.String("phone", n.Phone),
		zap.String("subject", n.Subject),
	)
	return nil
}
