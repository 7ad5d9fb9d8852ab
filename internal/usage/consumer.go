package usage

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/scribeflow/scribeflow/internal/nats"
)

// Consumer listens on the usage subject and folds each event into the
// owner's monthly rollup. Delivery is at-least-once: a failed apply is
// Nak'd and redelivered, so the rollup eventually reflects every event.
type Consumer struct {
	rollups     RollupStore
	consumerMgr *inats.ConsumerManager
}

// NewConsumer creates a new rollup Consumer.
func NewConsumer(rollups RollupStore, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		rollups:     rollups,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamUsage, "rollup-aggregator", inats.SubjectUsageRecorded)
	if err != nil {
		return err
	}

	slog.Info("usage consumer started", "consumer", "rollup-aggregator")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("usage consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleEvent(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handleEvent(ctx context.Context, msg jetstream.Msg) {
	var event inats.UsageRecorded
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		// A payload that cannot be parsed will never succeed; drop it.
		slog.Error("usage consumer: unmarshaling event", "error", err)
		_ = msg.Term()
		return
	}

	if err := c.rollups.ApplyEvent(ctx, event.UserID, event.OccurredAt, event.TotalTokens, event.WordCount); err != nil {
		slog.Error("usage consumer: applying event to rollup", "error", err, "event_id", event.EventID)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()

	slog.Debug("usage consumer: applied event",
		"event_id", event.EventID,
		"user_id", event.UserID,
		"tokens", event.TotalTokens,
	)
}
