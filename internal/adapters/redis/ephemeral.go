// Package redis provides the ephemeral, non-durable side of the outbox's
// merged stream (spec.md §4.3 "listen_all"): price ticks published on a
// pub/sub channel, never persisted. Grounded on the teacher's
// common/mredis.RedisConnection connection-hub pattern.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tanakasan3/lana-bank-sub001/internal/events"
	"github.com/tanakasan3/lana-bank-sub001/internal/outbox"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/mlog"
)

const priceChannel = "credit-core:price-updated"

// Connection holds a singleton redis client, mirroring
// common/mredis.RedisConnection's lazy-connect-on-first-use shape.
type Connection struct {
	ConnectionString string
	Logger           mlog.Logger

	client *redis.Client
}

// Connect dials redis and verifies connectivity with PING.
func (c *Connection) Connect(ctx context.Context) error {
	opts, err := redis.ParseURL(c.ConnectionString)
	if err != nil {
		return err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return err
	}

	c.client = client
	c.Logger.Info("redis: connected")

	return nil
}

// GetClient returns the connected client, connecting lazily if needed.
func (c *Connection) GetClient(ctx context.Context) (*redis.Client, error) {
	if c.client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client, nil
}

// PriceTicker publishes and subscribes to ephemeral PriceUpdated events.
type PriceTicker struct {
	conn *Connection
}

// NewPriceTicker builds a PriceTicker over conn.
func NewPriceTicker(conn *Connection) *PriceTicker {
	return &PriceTicker{conn: conn}
}

// Publish broadcasts a price tick to every live subscriber. There is no
// durable record of this call; a process that is down misses it
// entirely, which is acceptable because the collateralization engine
// also re-evaluates on every durable collateral/obligation event.
func (p *PriceTicker) Publish(ctx context.Context, price events.PriceUpdated) error {
	client, err := p.conn.GetClient(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(events.New(events.TypePriceUpdated, timeNow(), price))
	if err != nil {
		return err
	}

	return client.Publish(ctx, priceChannel, payload).Err()
}

// Subscribe returns a channel of ephemeral events, tagged with
// outbox.Sequence(0) since ephemeral events carry no durable position.
func (p *PriceTicker) Subscribe(ctx context.Context) (<-chan outbox.Sequenced, error) {
	client, err := p.conn.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	sub := client.Subscribe(ctx, priceChannel)

	out := make(chan outbox.Sequenced)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var ev events.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					p.conn.Logger.Errorf("redis: decode price tick: %v", err)
					continue
				}

				select {
				case out <- outbox.Sequenced{Sequence: 0, Event: ev}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// timeNow is indirected so tests can stub it if needed; production uses
// wall-clock time.
var timeNow = func() time.Time { return time.Now() }
