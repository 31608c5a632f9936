package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tableside/internal/config"
)

// EventsExchange carries every broadcast event. Routing key = room key, so
// any consumer interested in a subset could bind selectively; the websocket
// hubs bind "#" and route locally.
const EventsExchange = "tableside.events"

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	mu sync.Mutex // serializes publishes on the shared channel
}

func Dial(cfg config.RabbitMQ) (*Client, error) {
	vhost := cfg.VHost
	if vhost == "" {
		vhost = "/"
	}
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

func (c *Client) DeclareTopology() error {
	return c.ch.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil)
}

// Publish sends one message and waits for the broker ack (or ctx cancel).
// The deferred confirmation is bound to this delivery tag, so a timed-out
// wait cannot leave a stale ack behind for the next publish to misread.
func (c *Client) Publish(ctx context.Context, exchange, key string, body []byte) error {
	c.mu.Lock()
	conf, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	c.mu.Unlock()
	if err != nil {
		return err
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return errors.New("publish NACK from broker")
	}
	return nil
}

// ConsumeEvents binds an exclusive auto-delete queue to the events exchange
// on a dedicated channel. Each service instance gets its own copy of every
// event; queues disappear with the connection, which is exactly the
// no-replay contract the hub wants.
func (c *Client) ConsumeEvents(consumer string) (<-chan amqp.Delivery, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, err
	}
	if err := ch.QueueBind(q.Name, "#", EventsExchange, false, nil); err != nil {
		return nil, err
	}
	return ch.Consume(q.Name, consumer, true, true, false, false, nil)
}
