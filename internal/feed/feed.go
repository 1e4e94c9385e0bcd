// Package feed defines the change-feed contract the mirror consumes: a live,
// push-based subscription over a collection that delivers a fresh, complete,
// ordered snapshot whenever the underlying data changes. Snapshots are whole
// replacements, never diffs; limited, reordered live views make delta
// application error-prone and nothing here needs it.
package feed

import (
	"context"
	"fmt"
)

// Query names a server-side collection and the order and bound of the live
// view delivered for it.
type Query struct {
	Collection string
	OrderBy    string
	Descending bool
	// Limit bounds the number of records per snapshot. Zero means unlimited.
	Limit int
}

// SnapshotFunc receives each delivered snapshot. Deliveries for a single
// subscription are strictly serialized: the source never invokes this while a
// prior invocation is still being processed.
type SnapshotFunc func(records []Record)

// ErrorFunc receives the terminal subscription error. It is invoked at most
// once per subscription; the subscription does not self-heal and a fresh
// Subscribe call is required to retry.
type ErrorFunc func(err error)

// CancelFunc stops delivery and releases feed-side resources. Calling it more
// than once, or after a terminal error, is a no-op.
type CancelFunc func()

// Source is a live change feed over named collections.
type Source interface {
	Subscribe(ctx context.Context, q Query, onSnapshot SnapshotFunc, onError ErrorFunc) (CancelFunc, error)
}

// ErrorKind classifies terminal subscription failures.
type ErrorKind string

// KindUnavailable reports connectivity loss to the feed transport. It does
// not distinguish transient from permanent loss; retry policy belongs to the
// caller.
const KindUnavailable ErrorKind = "feed_unavailable"

// Error is the terminal notification delivered through ErrorFunc.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Unavailable wraps a transport failure as a terminal feed error.
func Unavailable(message string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: message, Err: err}
}
