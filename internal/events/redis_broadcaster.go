package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishTimeout = 500 * time.Millisecond

// ErrBroadcastDisabled is returned by Subscribe when no Redis client is set.
var ErrBroadcastDisabled = errors.New("realtime broadcast disabled")

// RedisBroadcaster fans ticket events out over a Redis pub/sub channel so
// every API instance can stream them to connected clients.
type RedisBroadcaster struct {
	client  redis.UniversalClient
	channel string
	logger  *zap.Logger
}

// NewRedisBroadcaster builds a broadcaster. A nil client disables it.
func NewRedisBroadcaster(client *redis.Client, channel string, logger *zap.Logger) *RedisBroadcaster {
	b := &RedisBroadcaster{channel: channel, logger: logger}
	if client != nil {
		b.client = client
	}
	return b
}

// Enabled reports whether events reach Redis.
func (b *RedisBroadcaster) Enabled() bool {
	return b != nil && b.client != nil
}

// Attach subscribes the broadcaster to every ticket event on d.
func (b *RedisBroadcaster) Attach(d Dispatcher) {
	if b == nil || b.client == nil || d == nil {
		return
	}
	for _, eventType := range AllEventTypes {
		d.Subscribe(eventType, b.publish)
	}
}

func (b *RedisBroadcaster) publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, body).Err(); err != nil {
		b.logger.Warn("redis publish failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
		return err
	}
	return nil
}

// Subscribe streams events received on the channel until ctx is done or
// the returned close func is called. Payloads arrive as raw JSON.
func (b *RedisBroadcaster) Subscribe(ctx context.Context) (<-chan Event, func() error, error) {
	if b == nil || b.client == nil {
		return nil, nil, ErrBroadcastDisabled
	}
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				event, err := decodeEvent([]byte(msg.Payload))
				if err != nil {
					b.logger.Warn("dropping undecodable event", zap.Error(err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, sub.Close, nil
}

func decodeEvent(body []byte) (Event, error) {
	var wire struct {
		Event
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return Event{}, err
	}
	event := wire.Event
	event.Payload = wire.Payload
	return event, nil
}
