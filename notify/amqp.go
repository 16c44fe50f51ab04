package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/garnzell/riding-school/school"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// MilestoneEvent is the wire form of a crossing.
type MilestoneEvent struct {
	Event      string `json:"event"`
	StudentID  int64  `json:"student_id"`
	Milestone  int    `json:"milestone"`
	Total      int    `json:"total"`
	Date       string `json:"date"`
	SlotID     int64  `json:"slot_id,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

const eventMilestoneCrossed = "milestone.crossed"

// NewMilestoneEvent converts a crossing to its wire form.
func NewMilestoneEvent(c school.MilestoneCrossing, at time.Time) MilestoneEvent {
	return MilestoneEvent{
		Event:      eventMilestoneCrossed,
		StudentID:  int64(c.StudentID),
		Milestone:  c.Milestone,
		Total:      c.Total,
		Date:       c.Date.String(),
		SlotID:     int64(c.SlotID),
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}

// AMQPConfig addresses the broker and exchange.
type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// AMQPPublisher publishes crossings as persistent JSON messages on a
// durable direct exchange.
type AMQPPublisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	log        zerolog.Logger
	mu         sync.Mutex // amqp channels are not safe for concurrent publish
}

// DialAMQP connects and declares the exchange.
func DialAMQP(cfg AMQPConfig, log zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	log.Info().Str("exchange", cfg.Exchange).Str("routing_key", cfg.RoutingKey).Msg("Connected to RabbitMQ")
	return &AMQPPublisher{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		log:        log.With().Str("component", "amqp").Logger(),
	}, nil
}

func (p *AMQPPublisher) MilestoneCrossed(ctx context.Context, c school.MilestoneCrossing) error {
	body, err := json.Marshal(NewMilestoneEvent(c, time.Now()))
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(
		publishCtx,
		p.exchange,   // exchange
		p.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish milestone event: %w", err)
	}

	p.log.Debug().Int64("student_id", int64(c.StudentID)).Int("milestone", c.Milestone).Msg("Milestone event published")
	return nil
}

func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
