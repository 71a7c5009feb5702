package reconciler

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// PaymentsChannel carries confirmation events published by the
	// invoice-execution and swap services.
	PaymentsChannel = "fossa:payments"

	notifyPrefix = "fossa:notify:"
)

// RedisFeed subscribes to the payments channel and decodes each message
// into an Event. Undecodable messages are logged and skipped.
type RedisFeed struct {
	client *redis.Client
	log    *logrus.Entry
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{
		client: client,
		log:    logrus.WithField("component", "reconciler_feed"),
	}
}

func (f *RedisFeed) Events(ctx context.Context) (<-chan Event, error) {
	sub := f.client.Subscribe(ctx, PaymentsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, err
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		for msg := range sub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				f.log.WithError(err).Warn("undecodable payment event skipped")
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisNotifier publishes per-payment status updates, one channel per
// payment id so clients can subscribe to exactly the record they watch.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Notify(ctx context.Context, paymentID, status string) error {
	return n.client.Publish(ctx, notifyPrefix+paymentID, status).Err()
}
