package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/queue"
)

// Publisher buffers notifications in memory and publishes them to
// RabbitMQ from a single goroutine.  Enqueue never blocks the request
// path; when the buffer is full the notification is dropped and logged.
type Publisher struct {
	url  string
	log  logrus.FieldLogger
	ch   chan queue.Notification
	done chan struct{}
}

// NewPublisher returns a Publisher with the given buffer size.  Start must
// be called for anything to leave the process.
func NewPublisher(url string, buffer int, log logrus.FieldLogger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		url:  url,
		log:  log,
		ch:   make(chan queue.Notification, buffer),
		done: make(chan struct{}),
	}
}

// Enqueue implements Notifier.
func (p *Publisher) Enqueue(n queue.Notification) {
	select {
	case p.ch <- n:
	default:
		p.log.WithFields(logrus.Fields{"kind": n.Kind, "booking_id": n.BookingID}).
			Error("notification buffer full, dropping")
	}
}

// Done is closed once Start has returned.
func (p *Publisher) Done() <-chan struct{} { return p.done }

// Start drains the buffer until ctx is cancelled.  A failed publish is
// logged and the connection re-established on the next message.
func (p *Publisher) Start(ctx context.Context) {
	defer close(p.done)
	var (
		conn *amqp.Connection
		ch   *amqp.Channel
	)
	closeAll := func() {
		if ch != nil {
			_ = ch.Close()
			ch = nil
		}
		if conn != nil {
			_ = conn.Close()
			conn = nil
		}
	}
	defer closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-p.ch:
			if ch == nil || ch.IsClosed() {
				closeAll()
				var err error
				if conn, ch, err = p.dial(); err != nil {
					p.log.WithError(err).WithField("kind", n.Kind).Error("notification dropped: broker unavailable")
					closeAll()
					continue
				}
			}
			if err := publish(ctx, ch, n); err != nil {
				p.log.WithError(err).WithField("kind", n.Kind).Error("notification publish failed")
				closeAll()
			}
		}
	}
}

func (p *Publisher) dial() (*amqp.Connection, *amqp.Channel, error) {
	if p.url == "" {
		return nil, nil, errors.New("broker url is empty")
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so queued emails survive broker restarts.
	if _, err := ch.QueueDeclare(queue.NotificationQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("queue declare: %w", err)
	}
	return conn, ch, nil
}

func publish(ctx context.Context, ch *amqp.Channel, n queue.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(pctx, "", queue.NotificationQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         n.Kind,
		Body:         body,
	})
}
