package queue

import (
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection is a broker connection with the single channel results are
// published on.
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func Dial(url string) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a RabbitMQ channel: %w", err)
	}

	return &Connection{conn: conn, channel: channel}, nil
}

// declareDurable declares name as a durable, non-exclusive queue.
func (c *Connection) declareDurable(name string, args amqp.Table) error {
	if _, err := c.channel.QueueDeclare(name, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare a %s queue: %w", name, err)
	}
	return nil
}

func (c *Connection) Close() error {
	return errors.Join(c.channel.Close(), c.conn.Close())
}
