// Package redisstream publishes committed ledger events to a Redis stream.
package redisstream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/event"
)

// DefaultStream is the stream key used when none is configured.
const DefaultStream = "ledger.events"

// StreamAdder is the slice of the Redis client the publisher needs.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Publisher appends events to one Redis stream.
type Publisher struct {
	client StreamAdder
	stream string
	maxLen int64
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithMaxLen caps the stream at roughly n entries. Zero leaves it unbounded.
func WithMaxLen(n int64) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.maxLen = n
		}
	}
}

// NewPublisher returns a publisher writing to stream.
func NewPublisher(client StreamAdder, stream string, opts ...Option) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	stream = strings.TrimSpace(stream)
	if stream == "" {
		stream = DefaultStream
	}
	p := &Publisher{client: client, stream: stream}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Dial parses a redis:// URL and returns a client for it.
func Dial(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

// Stream returns the target stream key.
func (p *Publisher) Stream() string {
	return p.stream
}

// Publish appends evt to the stream and returns the entry id Redis assigned.
func (p *Publisher) Publish(ctx context.Context, evt event.Event) (string, error) {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: Values(evt),
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	entryID, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s seq=%d: %w", p.stream, evt.Seq, err)
	}
	return entryID, nil
}

// Values flattens evt into stream entry fields.
func Values(evt event.Event) map[string]any {
	return map[string]any{
		"seq":        strconv.FormatUint(evt.Seq, 10),
		"tx_id":      evt.TxID,
		"tx_seq":     strconv.FormatUint(evt.TxSeq, 10),
		"index":      strconv.FormatUint(uint64(evt.Index), 10),
		"kind":       string(evt.Kind),
		"entity_id":  evt.EntityID,
		"sender":     evt.Sender,
		"ts":         evt.Timestamp.UTC().Format(time.RFC3339Nano),
		"payload":    string(evt.Payload),
		"chain_hash": evt.ChainHash,
	}
}
