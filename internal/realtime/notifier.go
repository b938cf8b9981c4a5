package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes events into per-user Redis channels and bridges them
// back out via a pattern subscriber. Publishing is fire-and-forget: a lost
// event is recovered by the client's next full fetch.
type Notifier struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewNotifier creates a Notifier. A nil client yields a no-op notifier,
// which keeps services testable without Redis.
func NewNotifier(rdb *redis.Client, log *slog.Logger) *Notifier {
	return &Notifier{rdb: rdb, log: log}
}

// UserChannel derives the Redis channel for one user's topic stream.
func UserChannel(userID uint64, topic Topic) string {
	return fmt.Sprintf("rt:user:%d:%s", userID, topic)
}

// ParseChannel extracts user id and topic from a channel name produced by
// UserChannel.
func ParseChannel(channel string) (userID uint64, topic Topic, ok bool) {
	if !strings.HasPrefix(channel, "rt:user:") {
		return 0, "", false
	}
	var t string
	if _, err := fmt.Sscanf(channel, "rt:user:%d:%s", &userID, &t); err != nil {
		return 0, "", false
	}
	if !ValidTopic(t) {
		return 0, "", false
	}
	return userID, Topic(t), true
}

// Publish sends one event to a user's topic channel.
func (n *Notifier) Publish(ctx context.Context, userID uint64, event Event) {
	if n.rdb == nil {
		return
	}
	channel := UserChannel(userID, event.Topic)
	if err := n.rdb.Publish(ctx, channel, event.Encode()).Err(); err != nil && n.log != nil {
		n.log.Warn("event publish failed", "channel", channel, "err", err)
	}
}

// StartPatternSubscriber subscribes to every per-user channel and calls
// onMessage for each incoming message until ctx is canceled.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "rt:user:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil && n.log != nil {
							n.log.Error("panic in pattern subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
