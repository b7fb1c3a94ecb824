// Package notify broadcasts catalog changes between running clients over a
// RabbitMQ fanout exchange.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Event is the message body published after a successful mutation.
type Event struct {
	Kind   string    `json:"kind"` // "added", "borrowed", "returned", "deleted"
	BookID int64     `json:"book_id,omitempty"`
	By     string    `json:"by,omitempty"`
	At     time.Time `json:"at"`
}

// Conn is an AMQP connection with one channel and the exchange declared.
type Conn struct {
	conn     *amqp091.Connection
	ch       *amqp091.Channel
	exchange string
	log      *log.Logger
}

// Dial connects and declares the durable fanout exchange.
func Dial(url, exchange string, l *log.Logger) (*Conn, error) {
	if l == nil {
		l = log.Default()
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		amqp091.ExchangeFanout,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Conn{conn: conn, ch: ch, exchange: exchange, log: l}, nil
}

func (c *Conn) Close() error {
	c.ch.Close()
	return c.conn.Close()
}

// Publish sends ev to every bound queue.
func (c *Conn) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.ch.PublishWithContext(ctx, c.exchange, "", false, false, amqp091.Publishing{
		ContentType: "application/json",
		Timestamp:   ev.At,
		Body:        body,
	})
}

// Subscribe binds a private queue to the exchange and calls handle for each
// event until ctx is done or the channel closes.
func (c *Conn) Subscribe(ctx context.Context, handle func(Event)) error {
	q, err := c.ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.ch.QueueBind(q.Name, "", c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	msgs, err := c.ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	return Dispatch(ctx, msgs, handle, c.log)
}

// Dispatch decodes deliveries and hands them to handle. Undecodable
// messages are logged and skipped.
func Dispatch(ctx context.Context, msgs <-chan amqp091.Delivery, handle func(Event), l *log.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				l.Printf("[notify] decode event: %v", err)
				continue
			}
			handle(ev)
		}
	}
}
