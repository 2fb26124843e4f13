package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "teacherconnect:session:"

// RedisRelay relays room events over Redis pub/sub so that both parties can
// be served by different instances.
type RedisRelay struct {
	client *redis.Client
	buffer int
}

func NewRedisRelay(client *redis.Client, buffer int) *RedisRelay {
	if buffer <= 0 {
		buffer = 1
	}
	return &RedisRelay{client: client, buffer: buffer}
}

func channelName(room string) string {
	return channelPrefix + room
}

func (r *RedisRelay) Publish(ctx context.Context, ev Event) error {
	if !ValidEventType(ev.Type) {
		return ErrUnknownEvent
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.client.Publish(ctx, channelName(ev.Room), data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (r *RedisRelay) Subscribe(ctx context.Context, room string) (<-chan Event, func(), error) {
	sub := r.client.Subscribe(ctx, channelName(room))
	// Wait for the subscription confirmation so events published right after
	// Subscribe returns are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Event, r.buffer)
	go func() {
		defer close(out)
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("signaling: bad event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
