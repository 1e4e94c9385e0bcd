// Package memory is an in-process change feed for tests and single-node
// development. Mutations through Put and Delete trigger a fresh ordered
// snapshot delivery to every live subscription on the touched collection.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"presence/internal/feed"
)

// Source implements feed.Source over in-process maps.
type Source struct {
	mu          sync.Mutex
	collections map[string]map[string]feed.Record
	subs        map[string]*subscription
}

type subscription struct {
	id   string
	q    feed.Query
	pump *feed.Pump
}

// New creates an empty in-memory feed.
func New() *Source {
	return &Source{
		collections: make(map[string]map[string]feed.Record),
		subs:        make(map[string]*subscription),
	}
}

// Subscribe registers a live view and immediately delivers the current
// snapshot, which may be empty.
func (s *Source) Subscribe(ctx context.Context, q feed.Query, onSnapshot feed.SnapshotFunc, onError feed.ErrorFunc) (feed.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, feed.Unavailable("subscribe cancelled", err)
	}

	sub := &subscription{
		id:   uuid.NewString(),
		q:    q,
		pump: feed.NewPump(onSnapshot, onError),
	}

	s.mu.Lock()
	s.subs[sub.id] = sub
	records := s.snapshotLocked(q)
	s.mu.Unlock()

	sub.pump.Deliver(records)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, sub.id)
			s.mu.Unlock()
			sub.pump.Stop()
		})
	}
	return cancel, nil
}

// Put inserts or replaces a document and redelivers snapshots to every
// subscription watching the collection.
func (s *Source) Put(collection, key string, fields map[string]any) {
	s.mu.Lock()
	coll := s.collections[collection]
	if coll == nil {
		coll = make(map[string]feed.Record)
		s.collections[collection] = coll
	}
	coll[key] = feed.Record{Key: key, Fields: fields}.Clone()
	s.redeliverLocked(collection)
	s.mu.Unlock()
}

// Delete removes a document and redelivers snapshots to every subscription
// watching the collection. Deleting an absent key still redelivers; the feed
// reports state, not edits.
func (s *Source) Delete(collection, key string) {
	s.mu.Lock()
	delete(s.collections[collection], key)
	s.redeliverLocked(collection)
	s.mu.Unlock()
}

// FailCollection simulates transport loss for every subscription on the
// collection. Each receives the terminal error and is removed; its cancel
// handle remains a no-op.
func (s *Source) FailCollection(collection string, err error) {
	s.mu.Lock()
	for id, sub := range s.subs {
		if sub.q.Collection != collection {
			continue
		}
		sub.pump.Fail(feed.Unavailable("feed connection lost", err))
		delete(s.subs, id)
	}
	s.mu.Unlock()
}

func (s *Source) redeliverLocked(collection string) {
	for _, sub := range s.subs {
		if sub.q.Collection != collection {
			continue
		}
		sub.pump.Deliver(s.snapshotLocked(sub.q))
	}
}

func (s *Source) snapshotLocked(q feed.Query) []feed.Record {
	coll := s.collections[q.Collection]
	records := make([]feed.Record, 0, len(coll))
	for _, rec := range coll {
		records = append(records, rec.Clone())
	}
	return feed.Order(records, q)
}
