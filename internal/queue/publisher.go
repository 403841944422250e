package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends booking events to RabbitMQ.  It dials per publish, so a
// broker outage never leaves a broken connection behind; errors are logged
// and returned to allow callers to ignore failures without interrupting the
// main request flow.
type Publisher struct {
	url    string
	logger echo.Logger
}

// NewPublisher returns a Publisher for the given AMQP URL.
func NewPublisher(url string, logger echo.Logger) *Publisher {
	return &Publisher{url: url, logger: logger}
}

// Publish marshals ev and publishes it to the booking.events queue.
// Messages are marked as persistent.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Errorf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Warnf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warnf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		BookingQueueName, // name
		true,             // durable
		false,            // autoDelete
		false,            // exclusive
		false,            // noWait
		nil,              // args
	); err != nil {
		p.logger.Warnf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Type),
		MessageId:    ev.BookingID + ":" + string(ev.Type) + ":" + ev.OccurredAt,
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",               // default exchange
		BookingQueueName, // routing key = queue name
		false,            // mandatory
		false,            // immediate
		pub,
	); err != nil {
		p.logger.Warnf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
