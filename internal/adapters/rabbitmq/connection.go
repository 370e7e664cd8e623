// Package rabbitmq consumes the inbound events the credit core reacts to
// from upstream bounded contexts (customer KYC, custody wallets, price
// feed, deposit ledger, approval workflow), per spec.md §6 "Inbound."
// Grounded on the teacher's common/mrabbitmq.RabbitMQConnection
// connection-hub shape, adapted from the teacher's streadway/amqp to
// the actively maintained github.com/rabbitmq/amqp091-go client also
// used elsewhere in the pack.
package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tanakasan3/lana-bank-sub001/internal/platform/mlog"
)

// Connection holds a singleton rabbitmq connection and channel,
// mirroring common/mrabbitmq.RabbitMQConnection's lazy-connect-on-first-
// use shape.
type Connection struct {
	ConnectionStringSource string
	Logger                 mlog.Logger

	conn    *amqp.Connection
	channel *amqp.Channel
}

// Connect dials rabbitmq and opens a channel.
func (c *Connection) Connect(ctx context.Context) error {
	c.Logger.Info("rabbitmq: connecting")

	conn, err := amqp.Dial(c.ConnectionStringSource)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	c.channel = ch

	c.Logger.Info("rabbitmq: connected")

	return nil
}

// GetChannel returns the open channel, connecting lazily if needed.
func (c *Connection) GetChannel(ctx context.Context) (*amqp.Channel, error) {
	if c.channel == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.channel, nil
}

// Close tears down the channel and connection.
func (c *Connection) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}
