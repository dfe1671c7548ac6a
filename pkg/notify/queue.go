package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Publisher is the broker side of QueueNotifier.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// QueueNotifier hands notifications to a broker for asynchronous delivery.
type QueueNotifier struct {
	publisher Publisher
	queue     string
}

func NewQueueNotifier(publisher Publisher, queue string) *QueueNotifier {
	return &QueueNotifier{publisher: publisher, queue: queue}
}

func (q *QueueNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := q.publisher.Publish(ctx, q.queue, body); err != nil {
		return fmt.Errorf("enqueue %s notification: %w", n.Kind, err)
	}
	return nil
}

const defaultDeliveryTimeout = 10 * time.Second

// Worker delivers queued notifications through a direct notifier. Each
// delivery is bounded by timeout.
type Worker struct {
	delivery Notifier
	timeout  time.Duration
	logger   *zap.Logger
}

func NewWorker(delivery Notifier, timeout time.Duration, logger *zap.Logger) *Worker {
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{delivery: delivery, timeout: timeout, logger: logger}
}

// Handle decodes and delivers one message. A non-nil error means the message
// should not be acknowledged.
func (w *Worker) Handle(msg amqp.Delivery) error {
	var n Notification
	if err := json.Unmarshal(msg.Body, &n); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.delivery.Notify(ctx, n); err != nil {
		w.logger.Warn("notification delivery failed",
			zap.String("kind", string(n.Kind)), zap.Error(err))
		return err
	}
	w.logger.Info("notification delivered", zap.String("kind", string(n.Kind)))
	return nil
}
