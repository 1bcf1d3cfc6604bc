package daybook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const maxAttempts = 10

// ListStore is the subset of *redis.Client the outbox needs.
type ListStore interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	RPop(ctx context.Context, key string) *redis.StringCmd
}

// Outbox queues entries in a Redis list; Drain delivers them at least once.
type Outbox struct {
	store ListStore
	key   string
}

func NewOutbox(store ListStore, key string) *Outbox {
	return &Outbox{store: store, key: key}
}

func (o *Outbox) Notify(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode daybook entry: %w", err)
	}
	if err := o.store.LPush(ctx, o.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to queue daybook entry: %w", err)
	}
	return nil
}

// Drain pops up to limit entries and posts them through target. A failed post
// puts the entry back at the head of the queue and stops the run.
func (o *Outbox) Drain(ctx context.Context, target Notifier, limit int) (int, error) {
	delivered := 0
	for delivered < limit {
		raw, err := o.store.RPop(ctx, o.key).Result()
		if errors.Is(err, redis.Nil) {
			return delivered, nil
		}
		if err != nil {
			return delivered, fmt.Errorf("failed to pop daybook entry: %w", err)
		}

		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			slog.Error("dropping undecodable daybook entry", "payload", raw, "error", err)
			continue
		}

		if err := target.Notify(ctx, entry); err != nil {
			entry.Attempts++
			if entry.Attempts >= maxAttempts {
				slog.Error("daybook entry dropped after retries", "kind", entry.Kind, "reference", entry.Reference, "error", err)
				continue
			}
			payload, _ := json.Marshal(entry)
			if pushErr := o.store.RPush(ctx, o.key, payload).Err(); pushErr != nil {
				return delivered, fmt.Errorf("failed to requeue daybook entry: %w", pushErr)
			}
			return delivered, fmt.Errorf("daybook post failed: %w", err)
		}
		delivered++
	}
	return delivered, nil
}
