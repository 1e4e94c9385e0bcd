// Package redisfeed is a Redis-backed change feed. Documents live as JSON
// values in one hash per collection; writers publish the touched key on a
// per-collection channel and every subscriber re-reads the full collection,
// so each delivery is a complete ordered snapshot.
package redisfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"presence/internal/feed"
	platformredis "presence/internal/platform/redis"
)

const keyPrefix = "presence:"

// Source implements feed.Source over a Redis hash per collection plus a
// pub/sub change channel.
type Source struct {
	client *platformredis.Client
	log    *slog.Logger
}

// New creates a Source over an established client.
func New(client *platformredis.Client, log *slog.Logger) *Source {
	return &Source{client: client, log: log}
}

func collectionKey(collection string) string {
	return keyPrefix + collection
}

func changeChannel(collection string) string {
	return keyPrefix + "changed:" + collection
}

// Subscribe opens the change channel before the first read so a write landing
// between the read and the subscription cannot be missed, then delivers the
// initial snapshot.
func (s *Source) Subscribe(ctx context.Context, q feed.Query, onSnapshot feed.SnapshotFunc, onError feed.ErrorFunc) (feed.CancelFunc, error) {
	pubsub := s.client.Subscribe(ctx, changeChannel(q.Collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, feed.Unavailable("change channel subscribe failed", err)
	}

	records, err := s.read(ctx, q)
	if err != nil {
		pubsub.Close()
		return nil, feed.Unavailable("initial collection read failed", err)
	}

	pump := feed.NewPump(onSnapshot, onError)
	pump.Deliver(records)

	watchCtx, stop := context.WithCancel(ctx)
	go s.watch(watchCtx, pubsub, q, pump)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			pubsub.Close()
			pump.Stop()
		})
	}
	return cancel, nil
}

func (s *Source) watch(ctx context.Context, pubsub *redis.PubSub, q feed.Query, pump *feed.Pump) {
	for {
		_, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return
			}
			pump.Fail(feed.Unavailable("change channel lost", err))
			return
		}

		records, err := s.read(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			pump.Fail(feed.Unavailable("collection read failed", err))
			return
		}
		pump.Deliver(records)
	}
}

func (s *Source) read(ctx context.Context, q feed.Query) ([]feed.Record, error) {
	raw, err := s.client.HGetAll(ctx, collectionKey(q.Collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", q.Collection, err)
	}

	records := make([]feed.Record, 0, len(raw))
	for key, doc := range raw {
		var fields map[string]any
		if err := json.Unmarshal([]byte(doc), &fields); err != nil {
			// A corrupt document must not take down the live view.
			s.log.Warn("skipping undecodable document",
				"collection", q.Collection, "key", key, "error", err.Error())
			continue
		}
		records = append(records, feed.Record{Key: key, Fields: fields})
	}
	return feed.Order(records, q), nil
}

// Put writes a document and signals every subscriber of the collection.
func (s *Source) Put(ctx context.Context, collection, key string, fields map[string]any) error {
	doc, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, key, err)
	}
	if err := s.client.HSet(ctx, collectionKey(collection), key, doc).Err(); err != nil {
		return fmt.Errorf("hset %s/%s: %w", collection, key, err)
	}
	return s.signal(ctx, collection, key)
}

// Delete removes a document and signals every subscriber of the collection.
func (s *Source) Delete(ctx context.Context, collection, key string) error {
	if err := s.client.HDel(ctx, collectionKey(collection), key).Err(); err != nil {
		return fmt.Errorf("hdel %s/%s: %w", collection, key, err)
	}
	return s.signal(ctx, collection, key)
}

func (s *Source) signal(ctx context.Context, collection, key string) error {
	if err := s.client.Publish(ctx, changeChannel(collection), key).Err(); err != nil {
		return fmt.Errorf("publish change %s/%s: %w", collection, key, err)
	}
	return nil
}
