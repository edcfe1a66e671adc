package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// StartConsumer drains the booking.events queue and hands each event to
// handle. It runs a reconnect loop with exponential backoff and only returns
// when ctx is cancelled. A handler error rejects the message without requeue
// so one poison message cannot wedge the queue.
func StartConsumer(ctx context.Context, url string, handle func(BookingEvent) error) error {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("backoff", backoff).Msg("notifier: broker dial failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(ctx, conn, handle); err != nil {
			log.Warn().Err(err).Msg("notifier: consume loop ended, reconnecting")
		}
		_ = conn.Close()
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, handle func(BookingEvent) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("notifier: set QoS failed")
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			var event BookingEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				log.Error().Err(err).Msg("notifier: malformed event payload")
				_ = d.Reject(false)
				continue
			}

			if err := handle(event); err != nil {
				log.Error().Err(err).Str("event", event.Event).Msg("notifier: handler failed")
				_ = d.Reject(false)
				continue
			}

			_ = d.Ack(false)
		}
	}
}

// LogHandler is the default delivery handler: it writes the event as a
// structured log line. Real channels (email, SMS, LINE) plug in here.
func LogHandler(event BookingEvent) error {
	log.Info().
		Str("event", event.Event).
		Str("booking_number", event.BookingNumber).
		Str("business", event.BusinessName).
		Str("service", event.ServiceName).
		Str("date", event.Date).
		Str("time", event.Time).
		Int("queue_number", event.QueueNumber).
		Bool("guest", event.IsGuestBooking).
		Msg("booking event received")
	return nil
}
