package rabbitmq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	NotificationsExchange = "notifications_fanout"
	NotificationsQueue    = "notifications_queue"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string // default "/"
	UseTLS   bool
}

func (cfg Config) URL() string {
	vhost := cfg.VHost
	if vhost == "/" {
		vhost = ""
	}
	scheme := "amqp"
	if cfg.UseTLS {
		scheme = "amqps"
	}
	return fmt.Sprintf("%s://%s:%s@%s:%d/%s", scheme, cfg.User, cfg.Password, cfg.Host, cfg.Port, vhost)
}

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	acks <-chan amqp.Confirmation
	mu   sync.Mutex // one publish in flight so each confirm matches its message
}

func (c *Client) Channel() *amqp.Channel { return c.ch }

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

// Dial opens one connection and one channel in confirm mode.
func Dial(cfg Config) (*Client, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	if cfg.UseTLS {
		conn, err = amqp.DialTLS(cfg.URL(), &tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		conn, err = amqp.Dial(cfg.URL())
	}
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
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	return &Client{conn: conn, ch: ch, acks: acks}, nil
}

// DialRetry calls Dial until it succeeds, attempts run out or ctx ends.
func DialRetry(ctx context.Context, cfg Config, attempts int, delay time.Duration) (*Client, error) {
	var err error
	for i := 1; i <= attempts; i++ {
		var c *Client
		if c, err = Dial(cfg); err == nil {
			return c, nil
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("rabbitmq dial canceled: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("rabbitmq unreachable after %d attempts: %w", attempts, err)
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// DeclareTopology declares the durable notifications fanout exchange and the
// queue bound to it. It is idempotent.
func (c *Client) DeclareTopology() error {
	if err := c.ch.ExchangeDeclare(NotificationsExchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.ch.QueueDeclare(NotificationsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.ch.QueueBind(NotificationsQueue, "", NotificationsExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish sends one message and waits for the broker's ack or nack.
// Calls are serialized.
func (c *Client) Publish(ctx context.Context, exchange, key string,
	body []byte, headers amqp.Table, contentType string, persistent bool) error {

	c.mu.Lock()
	defer c.mu.Unlock()

	mode := amqp.Transient
	if persistent {
		mode = amqp.Persistent
	}
	if err := c.ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode: mode,
		ContentType:  contentType,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         body,
	}); err != nil {
		return err
	}

	select {
	case conf := <-c.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume starts a manual-ack consumer on a separate channel, so consuming
// does not interfere with confirm-mode publishing.
func (c *Client) Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, func(), error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	msgs, err := ch.Consume(queue, consumer, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	return msgs, func() { _ = ch.Close() }, nil
}
