// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// journalKeyPattern is the key for one transaction's entry list:
// {prefix}journal:{transactionID}
const journalKeyPattern = "%sjournal:%s"

// RedisClient is the subset of go-redis used by the journal. Declaring the
// subset keeps the journal testable without a live server; *redis.Client
// satisfies it.
type RedisClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisConfig configures a Redis-backed journal.
type RedisConfig struct {
	// Addr is the Redis server address, host:port.
	Addr string

	// Password is the optional server password.
	Password string

	// DB is the database index.
	DB int

	// KeyPrefix namespaces journal keys, e.g. "atelier:".
	KeyPrefix string

	// TTL bounds how long a transaction's trail is retained. Zero keeps
	// entries until Redis evicts them.
	TTL time.Duration
}

// Validate checks the configuration.
func (c *RedisConfig) Validate() error {
	if c == nil {
		return errors.New("redis journal config cannot be nil")
	}
	if c.Addr == "" {
		return errors.New("redis journal config requires an address")
	}
	return nil
}

// RedisJournal stores each transaction's trail as a Redis list, one JSON
// entry per element. Lists preserve append order, which is the property the
// forensic read path depends on.
type RedisJournal struct {
	client    RedisClient
	keyPrefix string
	ttl       time.Duration
	closer    func() error

	mu     sync.RWMutex
	closed bool
}

// NewRedisJournal connects to Redis with the given configuration and
// verifies connectivity with a ping.
func NewRedisJournal(config *RedisConfig) (*RedisJournal, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	j := newRedisJournalWithClient(client, config)
	j.closer = client.Close
	return j, nil
}

// NewRedisJournalWithClient wraps an existing client. The caller retains
// ownership of the client; Close does not close it.
func NewRedisJournalWithClient(client RedisClient, config *RedisConfig) *RedisJournal {
	return newRedisJournalWithClient(client, config)
}

func newRedisJournalWithClient(client RedisClient, config *RedisConfig) *RedisJournal {
	prefix := ""
	var ttl time.Duration
	if config != nil {
		prefix = config.KeyPrefix
		ttl = config.TTL
	}
	return &RedisJournal{client: client, keyPrefix: prefix, ttl: ttl}
}

func (r *RedisJournal) key(transactionID string) string {
	return fmt.Sprintf(journalKeyPattern, r.keyPrefix, transactionID)
}

// Append implements Journal.
func (r *RedisJournal) Append(ctx context.Context, entry *Entry) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrJournalClosed
	}
	if entry == nil || entry.TransactionID == "" {
		return ErrInvalidEntry
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	key := r.key(entry.TransactionID)
	if err := r.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set journal ttl: %w", err)
		}
	}
	return nil
}

// List implements Journal.
func (r *RedisJournal) List(ctx context.Context, transactionID string) ([]*Entry, error) {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrJournalClosed
	}

	raw, err := r.client.LRange(ctx, r.key(transactionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal entries: %w", err)
	}

	entries := make([]*Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal journal entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// Close implements Journal. It closes the underlying client only when this
// journal created it.
func (r *RedisJournal) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrJournalClosed
	}
	r.closed = true
	r.mu.Unlock()
	if r.closer != nil {
		return r.closer()
	}
	return nil
}
