package notification

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const queueName = "booking.events"

// Publisher emits booking events. Implementations must be safe for
// concurrent use and must never block on downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

// AMQPPublisher publishes persistent JSON messages to the booking.events
// queue. The channel is lazily (re)opened so a broker restart does not take
// the API down with it.
type AMQPPublisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher creates a publisher for the given broker URL. The
// connection is established on first publish.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	p.conn = conn
	p.ch = ch
	return ch, nil
}

// Publish sends the event to the booking.events queue. Errors are returned
// so the caller can log them; the caller must not treat them as fatal.
func (p *AMQPPublisher) Publish(ctx context.Context, event BookingEvent) error {
	ch, err := p.channel()
	if err != nil {
		log.Warn().Err(err).Str("event", event.Event).Msg("notification broker unavailable")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         event.Event,
			Body:         body,
		},
	)
	if err != nil {
		log.Warn().Err(err).
			Str("event", event.Event).
			Str("booking_number", event.BookingNumber).
			Msg("notification publish failed")

		// Drop the cached channel so the next publish redials.
		p.mu.Lock()
		p.ch = nil
		p.mu.Unlock()
		return err
	}

	return nil
}

// Close tears down the broker connection.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
