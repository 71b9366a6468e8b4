package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/customadesign/acfl-booking-api/internal/models"
)

const (
	QueueBookingAccepted  = "booking.accepted"
	QueueBookingConfirmed = "booking.confirmed"
)

// Publisher pushes booking milestone events onto durable RabbitMQ queues.
// Publish failures are logged and returned; callers treat them as
// non-fatal so a broker outage never blocks a booking transition.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

func (p *Publisher) PublishBookingAccepted(ctx context.Context, request *models.BookingRequest) error {
	var price int64
	if request.FinalPriceCents != nil {
		price = *request.FinalPriceCents
	}
	return p.publish(ctx, QueueBookingAccepted, BookingAcceptedEvent{
		BookingRequestID: request.ID,
		ClientID:         request.ClientID,
		CoachID:          request.CoachID,
		SessionType:      request.SessionType,
		DurationMinutes:  request.DurationMinutes,
		FinalPriceCents:  price,
		AcceptedAt:       time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *Publisher) PublishBookingConfirmed(
	ctx context.Context,
	request *models.BookingRequest,
	authorization *models.PaymentAuthorization,
) error {
	return p.publish(ctx, QueueBookingConfirmed, BookingConfirmedEvent{
		BookingRequestID: request.ID,
		AuthorizationID:  authorization.ID,
		ClientID:         request.ClientID,
		CoachID:          request.CoachID,
		SessionType:      request.SessionType,
		DurationMinutes:  request.DurationMinutes,
		AmountCents:      authorization.AmountCents,
		PlatformFeeCents: authorization.PlatformFeeCents,
		ConfirmedAt:      time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Declare is idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
