// file: notifier/notifier.go

package notifier

import (
	"context"
	"time"

	"go-account-service/logger"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Notifier is a best-effort event sink. Send must never block the caller's
// success path; delivery is not guaranteed.
type Notifier interface {
	Send(topic, payload string)
}

// RedisNotifier publishes account lifecycle events on a Redis Pub/Sub
// channel. Downstream services (transaction history, alerts) subscribe to
// the same channel and parse the payload strings.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// Send publishes asynchronously. A failed publish is logged and dropped;
// the mutation that triggered it has already committed.
func (n *RedisNotifier) Send(topic, payload string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := n.client.Publish(ctx, topic, payload).Err(); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"topic":   topic,
				"payload": payload,
			}).WithError(err).Warn("Failed to publish account event")
		}
	}()
}
