package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"presence/internal/feed"
)

const deliveryTimeout = 2 * time.Second

type MemorySourceSuite struct {
	suite.Suite
	source *Source
	ctx    context.Context
}

func TestMemorySourceSuite(t *testing.T) {
	suite.Run(t, new(MemorySourceSuite))
}

func (s *MemorySourceSuite) SetupTest() {
	s.source = New()
	s.ctx = context.Background()
}

type capture struct {
	snapshots chan []feed.Record
	errs      chan error
}

func newCapture() *capture {
	return &capture{
		snapshots: make(chan []feed.Record, 16),
		errs:      make(chan error, 16),
	}
}

func (c *capture) onSnapshot(records []feed.Record) { c.snapshots <- records }
func (c *capture) onError(err error)                { c.errs <- err }

func (c *capture) next(t *testing.T) []feed.Record {
	t.Helper()
	select {
	case snap := <-c.snapshots:
		return snap
	case <-time.After(deliveryTimeout):
		t.Fatal("timed out waiting for snapshot delivery")
		return nil
	}
}

func (c *capture) nextErr(t *testing.T) error {
	t.Helper()
	select {
	case err := <-c.errs:
		return err
	case <-time.After(deliveryTimeout):
		t.Fatal("timed out waiting for error delivery")
		return nil
	}
}

func (s *MemorySourceSuite) subscribe(q feed.Query) (*capture, feed.CancelFunc) {
	c := newCapture()
	cancel, err := s.source.Subscribe(s.ctx, q, c.onSnapshot, c.onError)
	s.Require().NoError(err)
	return c, cancel
}

func (s *MemorySourceSuite) TestInitialSnapshot() {
	s.Run("empty collection delivers an empty snapshot", func() {
		c, cancel := s.subscribe(feed.Query{Collection: "attendance_logs", OrderBy: "timestamp", Descending: true})
		defer cancel()

		snap := c.next(s.T())
		s.Empty(snap)
	})

	s.Run("existing documents are delivered ordered", func() {
		s.source.Put("students", "s2", map[string]any{"createdat": ts(10)})
		s.source.Put("students", "s1", map[string]any{"createdat": ts(11)})

		c, cancel := s.subscribe(feed.Query{Collection: "students", OrderBy: "createdat", Descending: true})
		defer cancel()

		snap := c.next(s.T())
		s.Require().Len(snap, 2)
		s.Equal("s1", snap[0].Key)
		s.Equal("s2", snap[1].Key)
	})
}

func (s *MemorySourceSuite) TestRedeliveryOnChange() {
	c, cancel := s.subscribe(feed.Query{Collection: "attendance_logs", OrderBy: "timestamp", Descending: true, Limit: 2})
	defer cancel()
	s.Empty(c.next(s.T()))

	s.source.Put("attendance_logs", "a1", map[string]any{"timestamp": ts(9)})
	s.Require().Len(c.next(s.T()), 1)

	s.source.Put("attendance_logs", "a2", map[string]any{"timestamp": ts(10)})
	snap := c.next(s.T())
	s.Require().Len(snap, 2)
	s.Equal("a2", snap[0].Key)

	// Limit keeps the view bounded: a third insert pushes the oldest out.
	s.source.Put("attendance_logs", "a3", map[string]any{"timestamp": ts(11)})
	snap = c.next(s.T())
	s.Require().Len(snap, 2)
	s.Equal([]string{"a3", "a2"}, []string{snap[0].Key, snap[1].Key})

	s.source.Delete("attendance_logs", "a3")
	snap = c.next(s.T())
	s.Require().Len(snap, 2)
	s.Equal("a2", snap[0].Key)
}

func (s *MemorySourceSuite) TestSubscriptionsAreIndependent() {
	attendance, cancelA := s.subscribe(feed.Query{Collection: "attendance_logs", OrderBy: "timestamp", Descending: true})
	defer cancelA()
	students, cancelS := s.subscribe(feed.Query{Collection: "students", OrderBy: "createdat", Descending: true})
	defer cancelS()
	s.Empty(attendance.next(s.T()))
	s.Empty(students.next(s.T()))

	s.source.Put("students", "s1", map[string]any{"createdat": ts(9)})
	s.Len(students.next(s.T()), 1)

	select {
	case <-attendance.snapshots:
		s.Fail("attendance subscription received a students delivery")
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *MemorySourceSuite) TestCancel() {
	c, cancel := s.subscribe(feed.Query{Collection: "attendance_logs", OrderBy: "timestamp"})
	s.Empty(c.next(s.T()))

	cancel()
	cancel() // idempotent

	s.source.Put("attendance_logs", "a1", map[string]any{"timestamp": ts(9)})
	select {
	case <-c.snapshots:
		s.Fail("delivery after cancel")
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *MemorySourceSuite) TestTerminalError() {
	c, cancel := s.subscribe(feed.Query{Collection: "attendance_logs", OrderBy: "timestamp"})
	s.Empty(c.next(s.T()))

	cause := errors.New("connection reset")
	s.source.FailCollection("attendance_logs", cause)

	err := c.nextErr(s.T())
	var feedErr *feed.Error
	s.Require().ErrorAs(err, &feedErr)
	s.Equal(feed.KindUnavailable, feedErr.Kind)
	s.ErrorIs(err, cause)

	// The subscription is dead: further changes deliver nothing, and the
	// cancel handle is a harmless no-op.
	s.source.Put("attendance_logs", "a1", map[string]any{"timestamp": ts(9)})
	select {
	case <-c.snapshots:
		s.Fail("delivery after terminal error")
	case <-time.After(50 * time.Millisecond):
	}
	cancel()

	// A fresh subscribe starts a normal snapshot cycle again.
	c2, cancel2 := s.subscribe(feed.Query{Collection: "attendance_logs", OrderBy: "timestamp"})
	defer cancel2()
	s.Len(c2.next(s.T()), 1)
}

func (s *MemorySourceSuite) TestSubscribeWithCancelledContext() {
	ctx, cancelCtx := context.WithCancel(context.Background())
	cancelCtx()

	c := newCapture()
	_, err := s.source.Subscribe(ctx, feed.Query{Collection: "attendance_logs"}, c.onSnapshot, c.onError)
	s.Error(err)
}

func ts(h int) time.Time {
	return time.Date(2026, 3, 14, h, 0, 0, 0, time.UTC)
}
