package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// AppointmentChangesChannel is the Redis pub/sub channel carrying ChangeEvent JSON.
const AppointmentChangesChannel = "puppychop:appointments:changes"

type redisChangeNotifier struct {
	client    *redis.Client
	log       *logrus.Logger
	done      chan struct{}
	closeOnce sync.Once
}

// NewRedisChangeNotifier shares change events between API instances through
// Redis pub/sub.
func NewRedisChangeNotifier(client *redis.Client, log *logrus.Logger) ChangeNotifier {
	return &redisChangeNotifier{
		client: client,
		log:    log,
		done:   make(chan struct{}),
	}
}

func (n *redisChangeNotifier) Publish(ctx context.Context, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := n.client.Publish(ctx, AppointmentChangesChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

func (n *redisChangeNotifier) Subscribe(ctx context.Context) (<-chan ChangeEvent, error) {
	pubsub := n.client.Subscribe(ctx, AppointmentChangesChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", AppointmentChangesChannel, err)
	}

	out := make(chan ChangeEvent, changeBufferSize)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-n.done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					n.log.Warnf("Failed to decode change event: %+v", err)
					continue
				}
				select {
				case out <- event:
				default:
				}
			}
		}
	}()

	return out, nil
}

// Close ends every open subscription. The Redis client is owned by the caller.
func (n *redisChangeNotifier) Close() error {
	n.closeOnce.Do(func() { close(n.done) })
	return nil
}
