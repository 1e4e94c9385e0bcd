// Package projection maintains a bounded, ordered, filtered in-memory view of
// one live collection. Every delivered snapshot replaces the view in full;
// the projection never merges deliveries, so lost or reordered intermediate
// snapshots cannot cause drift.
package projection

import (
	"context"
	"fmt"
	"sync"

	"presence/internal/feed"
	"presence/pkg/sentinel"
)

// State is one consistent read of the projection.
type State[T any] struct {
	// Items reflects the latest delivered snapshot in full, filtered and in
	// delivered order. An empty non-loading state means "no items", which is
	// observably different from "not yet known".
	Items []T
	// Loading is true from subscribe until the first delivery.
	Loading bool
	// Err holds the terminal feed error, if any. Items then retain the last
	// good snapshot: stale-but-present beats blanking the view.
	Err error
}

// Projection owns one live view. The decode function maps a delivered record
// to the projected type and doubles as the filter: returning false drops the
// record.
type Projection[T any] struct {
	decode func(feed.Record) (T, bool)

	mu         sync.RWMutex
	items      []T
	loading    bool
	lastErr    error
	subscribed bool
	closed     bool
	cancel     feed.CancelFunc

	onChange func()
}

// New creates an unsubscribed projection.
func New[T any](decode func(feed.Record) (T, bool)) *Projection[T] {
	return &Projection[T]{decode: decode}
}

// Start opens the subscription and resets the view to the loading state.
// After a terminal feed error Start may be called again to retry; starting an
// already-live or closed projection is an error.
func (p *Projection[T]) Start(ctx context.Context, source feed.Source, q feed.Query, onChange func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("start projection %q: %w", q.Collection, sentinel.ErrClosed)
	}
	if p.subscribed {
		p.mu.Unlock()
		return fmt.Errorf("start projection %q: already subscribed: %w", q.Collection, sentinel.ErrInvalidState)
	}
	p.items = nil
	p.loading = true
	p.lastErr = nil
	p.subscribed = true
	p.onChange = onChange
	p.mu.Unlock()

	cancel, err := source.Subscribe(ctx, q, p.apply, p.fail)
	if err != nil {
		p.mu.Lock()
		p.subscribed = false
		p.loading = false
		p.mu.Unlock()
		return fmt.Errorf("subscribe %q: %w", q.Collection, err)
	}

	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	return nil
}

// State returns the current view. Reading a projection that was never started
// or has been closed is a programming error, reported explicitly rather than
// as an empty view.
func (p *Projection[T]) State() (State[T], error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return State[T]{}, fmt.Errorf("projection read: %w", sentinel.ErrClosed)
	}
	if !p.subscribed && p.lastErr == nil {
		return State[T]{}, fmt.Errorf("projection read: not subscribed: %w", sentinel.ErrInvalidState)
	}
	items := make([]T, len(p.items))
	copy(items, p.items)
	return State[T]{Items: items, Loading: p.loading, Err: p.lastErr}, nil
}

// Live reports whether the subscription is open and error-free.
func (p *Projection[T]) Live() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.subscribed && !p.closed && p.lastErr == nil
}

// Close cancels the subscription and discards the view. Idempotent; no
// further mutation is observable afterward.
func (p *Projection[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	cancel := p.cancel
	p.cancel = nil
	p.items = nil
	p.onChange = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (p *Projection[T]) apply(records []feed.Record) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	items := make([]T, 0, len(records))
	for _, rec := range records {
		if item, ok := p.decode(rec); ok {
			items = append(items, item)
		}
	}
	p.items = items
	p.loading = false
	p.lastErr = nil
	onChange := p.onChange
	p.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

func (p *Projection[T]) fail(err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.lastErr = err
	p.loading = false
	// The subscription is terminally dead; a later Start may retry.
	p.subscribed = false
	p.cancel = nil
	onChange := p.onChange
	p.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}
