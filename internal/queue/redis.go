package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"public-safety-incident-system/shared/clockx"
)

// RedisQueue implements the same receipt-handle contract on top of Redis for
// deployments without a managed queue. Published messages sit on a ready
// list; each receive moves a payload into a pending hash keyed by a fresh
// receipt handle and records a redelivery deadline in a zset. Deliveries not
// acknowledged before the deadline are pushed back onto the ready list, which
// is what makes the backend at-least-once.
type RedisQueue struct {
	client      *redis.Client
	clock       clockx.Clock
	readyKey    string
	pendingKey  string
	inflightKey string
	visibility  time.Duration
}

func NewRedisQueue(client *redis.Client, clock clockx.Clock, keyPrefix string, visibility time.Duration) *RedisQueue {
	if keyPrefix == "" {
		keyPrefix = "incident-queue"
	}
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	return &RedisQueue{
		client:      client,
		clock:       clock,
		readyKey:    keyPrefix + ":ready",
		pendingKey:  keyPrefix + ":pending",
		inflightKey: keyPrefix + ":inflight",
		visibility:  visibility,
	}
}

func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}
	if err := q.client.LPush(ctx, q.readyKey, body).Err(); err != nil {
		return fmt.Errorf("%w: push message: %v", ErrUnavailable, err)
	}
	return nil
}

func (q *RedisQueue) Receive(ctx context.Context, maxMessages int) ([]Envelope, error) {
	if maxMessages < 1 {
		maxMessages = 1
	}
	if err := q.reclaimExpired(ctx); err != nil {
		return nil, err
	}

	now := q.clock.Now()
	envelopes := make([]Envelope, 0, maxMessages)
	for len(envelopes) < maxMessages {
		body, err := q.client.RPop(ctx, q.readyKey).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: pop message: %v", ErrUnavailable, err)
		}

		handle := newReceiptHandle()
		msg, ok := decodeBody([]byte(body))
		if !ok {
			// Undecodable payloads are dropped rather than redelivered.
			continue
		}
		// Deadline and body land in one MULTI/EXEC. A delivery must never
		// sit in the pending hash without a redelivery deadline; such an
		// entry would be invisible to reclaim and lost for good.
		deadline := now.Add(q.visibility)
		pipe := q.client.TxPipeline()
		pipe.ZAdd(ctx, q.inflightKey, redis.Z{
			Score:  float64(deadline.UnixMilli()),
			Member: handle,
		})
		pipe.HSet(ctx, q.pendingKey, handle, body)
		if _, err := pipe.Exec(ctx); err != nil {
			_ = q.client.LPush(ctx, q.readyKey, body).Err()
			return nil, fmt.Errorf("%w: track delivery: %v", ErrUnavailable, err)
		}
		envelopes = append(envelopes, Envelope{ReceiptHandle: handle, Message: msg})
	}
	return envelopes, nil
}

func (q *RedisQueue) Delete(ctx context.Context, receiptHandle string) error {
	if err := q.client.HDel(ctx, q.pendingKey, receiptHandle).Err(); err != nil {
		return fmt.Errorf("%w: acknowledge message: %v", ErrUnavailable, err)
	}
	if err := q.client.ZRem(ctx, q.inflightKey, receiptHandle).Err(); err != nil {
		return fmt.Errorf("%w: acknowledge message: %v", ErrUnavailable, err)
	}
	return nil
}

func (q *RedisQueue) reclaimExpired(ctx context.Context) error {
	now := q.clock.Now()
	expired, err := q.client.ZRangeByScore(ctx, q.inflightKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.UnixMilli()),
	}).Result()
	if err != nil {
		return fmt.Errorf("%w: scan expired deliveries: %v", ErrUnavailable, err)
	}
	for _, handle := range expired {
		body, err := q.client.HGet(ctx, q.pendingKey, handle).Result()
		if errors.Is(err, redis.Nil) {
			_ = q.client.ZRem(ctx, q.inflightKey, handle).Err()
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: reclaim delivery: %v", ErrUnavailable, err)
		}
		if err := q.client.LPush(ctx, q.readyKey, body).Err(); err != nil {
			return fmt.Errorf("%w: requeue delivery: %v", ErrUnavailable, err)
		}
		_ = q.client.HDel(ctx, q.pendingKey, handle).Err()
		_ = q.client.ZRem(ctx, q.inflightKey, handle).Err()
	}
	return nil
}
