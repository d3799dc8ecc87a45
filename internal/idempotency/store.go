// Package idempotency remembers order submissions so a client retrying with
// the same key gets the original response back instead of a second order.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HeaderKey is the request header carrying the client's idempotency key.
const HeaderKey = "X-Idempotency-Key"

// PendingTTL bounds how long a claim survives a process that died mid-submit.
const PendingTTL = 2 * time.Minute

// Record is what a key currently holds. Body is nil while the first
// submission is still in flight.
type Record struct {
	Fingerprint string `json:"fingerprint"`
	Body        []byte `json:"body,omitempty"`
}

func (r Record) Pending() bool { return r.Body == nil }

// Store is the claim/complete/release lifecycle of one key.
type Store interface {
	// Claim reserves key for a new submission. When the key is already taken
	// claimed is false and rec describes the holder.
	Claim(ctx context.Context, key, fingerprint string) (rec Record, claimed bool, err error)
	Complete(ctx context.Context, key, fingerprint string, body []byte) error
	Release(ctx context.Context, key string) error
}

// Fingerprint identifies a request body so a reused key can be told apart
// from a genuine retry.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(addr, serviceName string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: serviceName + ":order-submit:",
		ttl:    ttl,
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Claim(ctx context.Context, key, fingerprint string) (Record, bool, error) {
	pending, err := json.Marshal(Record{Fingerprint: fingerprint})
	if err != nil {
		return Record{}, false, err
	}

	ok, err := s.client.SetNX(ctx, s.prefix+key, pending, PendingTTL).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("redis setnx: %w", err)
	}
	if ok {
		return Record{}, true, nil
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Released between SETNX and GET; the holder failed, report it as
		// still in flight so the client retries.
		return Record{Fingerprint: fingerprint}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("redis get: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return rec, false, nil
}

// Complete replaces the pending claim with the final response body.
func (s *RedisStore) Complete(ctx context.Context, key, fingerprint string, body []byte) error {
	raw, err := json.Marshal(Record{Fingerprint: fingerprint, Body: body})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
