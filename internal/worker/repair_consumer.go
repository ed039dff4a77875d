// Package worker reconciles denormalized counters from the engagement
// event stream. Repairs recompute from live rows, so redelivered messages
// are harmless.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/engagement-platform/internal/comments"
	"github.com/example/engagement-platform/internal/platform/events"
	"github.com/example/engagement-platform/internal/store"
)

const (
	fetchBatch   = 64
	fetchMaxWait = 2 * time.Second
	errBackoff   = time.Second
)

// RepairConsumer pulls engagement events and repairs reply and like counts.
type RepairConsumer struct {
	manager *comments.Manager
	log     *zap.Logger
}

func NewRepairConsumer(m *comments.Manager, log *zap.Logger) *RepairConsumer {
	return &RepairConsumer{manager: m, log: log}
}

// Run consumes engagement.> until ctx is canceled. Subscription failures
// are returned; per-message failures are logged and the message NAKed for
// redelivery.
func (c *RepairConsumer) Run(ctx context.Context, js nats.JetStreamContext) error {
	sub, err := js.PullSubscribe("engagement.>", "engagement_repair")
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	c.log.Info("repair consumer started")
	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := sub.Fetch(fetchBatch, nats.MaxWait(fetchMaxWait))
		if err != nil {
			if err == nats.ErrTimeout || err == context.DeadlineExceeded {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("fetch failed", zap.Error(err))
			time.Sleep(errBackoff)
			continue
		}
		for _, m := range msgs {
			if err := c.handle(ctx, m); err != nil {
				c.log.Warn("event repair failed", zap.String("subject", m.Subject), zap.Error(err))
				_ = m.Nak()
				continue
			}
			_ = m.Ack()
		}
	}
}

func (c *RepairConsumer) handle(ctx context.Context, m *nats.Msg) error {
	var ev events.Event
	if err := json.Unmarshal(m.Data, &ev); err != nil {
		// Malformed payloads never become processable; drop them.
		c.log.Warn("unparseable event dropped", zap.String("subject", m.Subject), zap.Error(err))
		return nil
	}

	switch m.Subject {
	case events.SubjectCommentCreated, events.SubjectCommentDeleted:
		parentID, ok := prop(ev, "parent_id")
		if !ok {
			return nil // top-level comment, no counter to repair
		}
		n, err := c.manager.RecountReplies(ctx, parentID)
		if storeGone(err) {
			return nil
		}
		if err != nil {
			return err
		}
		c.log.Debug("reply count repaired", zap.String("comment_id", parentID), zap.Int("count", n))

	case events.SubjectReactionUpserted, events.SubjectReactionRemoved:
		contentID, ok := prop(ev, "content_id")
		if !ok {
			return nil
		}
		// Reactions target arbitrary content ids; only comment targets carry
		// a like counter.
		n, err := c.manager.RepairLikeCount(ctx, contentID)
		if storeGone(err) {
			return nil
		}
		if err != nil {
			return err
		}
		c.log.Debug("like count repaired", zap.String("comment_id", contentID), zap.Int("count", n))
	}
	return nil
}

func prop(ev events.Event, key string) (string, bool) {
	v, ok := ev.Properties[key].(string)
	return v, ok && v != ""
}

func storeGone(err error) bool {
	return store.IsNotFound(err)
}
