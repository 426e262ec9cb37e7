// Package redisstream backs the xcheckout Bus and Queue with one Redis
// stream. PutEvents is XADD; Receive is XREADGROUP with BLOCK as the long
// poll; the receipt handle is the stream entry id, and Delete is XACK+XDEL.
// Entries a consumer never acknowledges stay pending in the group, which is
// the at-least-once redelivery the consumer expects.
package redisstream

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trickstertwo/xcheckout"
)

// Stream entry field names.
const (
	fieldSource     = "source"
	fieldDetailType = "detailType"
	fieldDetail     = "detail"
	fieldBus        = "bus"
)

// Bus appends bus entries to the configured stream.
type Bus struct {
	cfg    Config
	client *redis.Client
	closed atomic.Bool
}

var _ xcheckout.Bus = (*Bus)(nil)

// NewBus connects and verifies the Redis endpoint.
func NewBus(cfg Config) (*Bus, error) {
	client, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	return &Bus{cfg: cfg, client: client}, nil
}

// PutEvents appends each entry with XADD, pipelined for batch efficiency.
// The generated stream ids double as bus entry ids. Redis has no per-entry
// rejection: a reachable server accepts every entry, so FailedEntryCount is
// always zero and any failure is a transport fault.
func (b *Bus) PutEvents(ctx context.Context, entries ...xcheckout.BusEntry) (xcheckout.PutResult, error) {
	if b.closed.Load() {
		return xcheckout.PutResult{}, fmt.Errorf("redisstream: bus closed")
	}
	if len(entries) == 0 {
		return xcheckout.PutResult{}, nil
	}

	pipe := b.client.Pipeline()
	cmds := make([]*redis.StringCmd, 0, len(entries))
	for _, e := range entries {
		args := &redis.XAddArgs{
			Stream: b.cfg.Stream,
			ID:     "*",
			Values: map[string]any{
				fieldSource:     e.Source,
				fieldDetailType: e.DetailType,
				fieldDetail:     e.Detail,
				fieldBus:        e.EventBusName,
			},
		}
		if b.cfg.MaxLenApprox > 0 {
			args.MaxLen = b.cfg.MaxLenApprox
			args.Approx = true
		}
		cmds = append(cmds, pipe.XAdd(ctx, args))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return xcheckout.PutResult{}, err
	}

	res := xcheckout.PutResult{Entries: make([]xcheckout.PutResultEntry, 0, len(cmds))}
	for _, cmd := range cmds {
		res.Entries = append(res.Entries, xcheckout.PutResultEntry{EventID: cmd.Val()})
	}
	return res, nil
}

func (b *Bus) Close(_ context.Context) error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.client.Close()
}

// Queue receives from the stream within a consumer group.
type Queue struct {
	cfg     Config
	client  *redis.Client
	created atomic.Bool
	closed  atomic.Bool
}

var _ xcheckout.Queue = (*Queue)(nil)

// NewQueue connects and verifies the Redis endpoint.
func NewQueue(cfg Config) (*Queue, error) {
	client, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	return &Queue{cfg: cfg, client: client}, nil
}

// Receive reads up to MaxMessages entries, blocking up to WaitTime when the
// stream is empty. The returned body carries the bus-forwarded record shape
// so decoding matches the SQS path byte for byte.
func (q *Queue) Receive(ctx context.Context, opts xcheckout.ReceiveOptions) ([]xcheckout.QueueMessage, error) {
	if q.closed.Load() {
		return nil, fmt.Errorf("redisstream: queue closed")
	}
	if err := q.ensureGroup(ctx); err != nil {
		return nil, err
	}

	count := opts.MaxMessages
	if count < 1 {
		count = 1
	}
	block := opts.WaitTime
	if block <= 0 {
		// XREADGROUP BLOCK 0 waits forever; use a minimal block instead to
		// keep the "return immediately when empty" contract.
		block = time.Millisecond
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.cfg.Group,
		Consumer: q.cfg.Consumer,
		Streams:  []string{q.cfg.Stream, ">"},
		Count:    int64(count),
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Block timeout: the long poll found nothing.
			return nil, nil
		}
		return nil, err
	}

	var msgs []xcheckout.QueueMessage
	for _, stream := range streams {
		for _, m := range stream.Messages {
			msgs = append(msgs, xcheckout.QueueMessage{
				ID:            m.ID,
				ReceiptHandle: m.ID,
				Body:          recordBody(m.ID, m.Values),
			})
		}
	}
	return msgs, nil
}

// Delete acknowledges an entry and removes it from the stream.
func (q *Queue) Delete(ctx context.Context, receiptHandle string) error {
	if err := q.client.XAck(ctx, q.cfg.Stream, q.cfg.Group, receiptHandle).Err(); err != nil {
		return err
	}
	return q.client.XDel(ctx, q.cfg.Stream, receiptHandle).Err()
}

func (q *Queue) Close(_ context.Context) error {
	if q.closed.Swap(true) {
		return nil
	}
	return q.client.Close()
}

// ensureGroup creates the stream and consumer group once (idempotent).
func (q *Queue) ensureGroup(ctx context.Context) error {
	if !q.cfg.AutoCreate || q.created.Load() {
		return nil
	}
	err := q.client.XGroupCreateMkStream(ctx, q.cfg.Stream, q.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("redisstream: create group %s: %w", q.cfg.Group, err)
	}
	q.created.Store(true)
	return nil
}

// recordBody renders a stream entry as the bus-forwarded record shape.
func recordBody(id string, vals map[string]any) string {
	record := map[string]any{
		"id":          id,
		"detail-type": asString(vals[fieldDetailType]),
		"source":      asString(vals[fieldSource]),
	}
	detail := asString(vals[fieldDetail])
	if json.Valid([]byte(detail)) {
		record["detail"] = json.RawMessage(detail)
	} else {
		record["detail"] = detail
	}
	body, _ := json.Marshal(record)
	return string(body)
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

// connect builds a verified Redis client from Config.
func connect(cfg Config) (*redis.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:    tls.VersionTLS12,
			ServerName:    cfg.TLSServerName,
			Renegotiation: tls.RenegotiateNever,
		}
	}

	client := redis.NewClient(opts)
	if err := ping(client); err != nil {
		return nil, err
	}
	return client, nil
}

func ping(c *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := c.Ping(ctx).Result()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("redis ping timeout: %w", err)
		}
		return err
	}
	if strings.ToUpper(res) != "PONG" {
		return fmt.Errorf("unexpected redis ping result: %s", res)
	}
	return nil
}
