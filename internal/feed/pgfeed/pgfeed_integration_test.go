//go:build integration

package pgfeed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"presence/internal/feed"
	"presence/internal/feed/pgfeed"
	"presence/internal/platform/config"
	"presence/internal/platform/logger"
	"presence/internal/platform/postgres"
	"presence/pkg/testutil/containers"
)

type PgFeedSuite struct {
	suite.Suite

	pool   *postgres.Pool
	source *pgfeed.Source
}

func TestPgFeedSuite(t *testing.T) {
	suite.Run(t, new(PgFeedSuite))
}

func (s *PgFeedSuite) SetupSuite() {
	pc := containers.NewPostgresContainer(s.T())

	ctx := context.Background()
	pool, err := postgres.New(ctx, config.PostgresConfig{URL: pc.URL})
	s.Require().NoError(err)
	s.pool = pool

	s.Require().NoError(pgfeed.EnsureSchema(ctx, pool))
	s.source = pgfeed.New(pool, logger.Discard())
}

func (s *PgFeedSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PgFeedSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), "TRUNCATE feed_documents")
	s.Require().NoError(err)
}

func (s *PgFeedSuite) waitSnapshot(ch <-chan []feed.Record) []feed.Record {
	select {
	case records := <-ch:
		return records
	case <-time.After(5 * time.Second):
		s.FailNow("timed out waiting for snapshot")
		return nil
	}
}

func (s *PgFeedSuite) waitSnapshotLen(ch <-chan []feed.Record, n int) []feed.Record {
	deadline := time.After(5 * time.Second)
	for {
		select {
		case records := <-ch:
			if len(records) == n {
				return records
			}
		case <-deadline:
			s.FailNow("timed out waiting for snapshot length", "want %d", n)
			return nil
		}
	}
}

func (s *PgFeedSuite) TestSnapshotLifecycle() {
	ctx := context.Background()

	snapshots := make(chan []feed.Record, 16)
	errs := make(chan error, 1)
	cancel, err := s.source.Subscribe(ctx, feed.Query{
		Collection: "students",
		OrderBy:    "createdat",
		Descending: true,
	}, func(records []feed.Record) {
		snapshots <- records
	}, func(err error) {
		errs <- err
	})
	s.Require().NoError(err)
	defer cancel()

	s.Empty(s.waitSnapshot(snapshots), "initial snapshot of an empty collection")

	s.Require().NoError(s.source.Put(ctx, "students", "doc1", map[string]any{
		"studentid": "STU001",
		"name":      "Ada Lovelace",
		"createdat": "2026-03-01T08:00:00Z",
		"active":    true,
	}))

	records := s.waitSnapshotLen(snapshots, 1)
	s.Equal("doc1", records[0].Key)
	s.Equal("Ada Lovelace", records[0].String("name"))
	s.True(records[0].Bool("active", false))

	// Upsert replaces, never duplicates.
	s.Require().NoError(s.source.Put(ctx, "students", "doc1", map[string]any{
		"studentid": "STU001",
		"name":      "Ada L.",
		"createdat": "2026-03-01T08:00:00Z",
		"active":    true,
	}))
	deadline := time.After(5 * time.Second)
	for records[0].String("name") != "Ada L." {
		select {
		case records = <-snapshots:
			s.Require().Len(records, 1)
		case <-deadline:
			s.FailNow("timed out waiting for upsert snapshot")
		}
	}

	s.Require().NoError(s.source.Delete(ctx, "students", "doc1"))
	s.Empty(s.waitSnapshotLen(snapshots, 0))

	select {
	case err := <-errs:
		s.FailNowf("unexpected terminal error", "%v", err)
	default:
	}
}

func (s *PgFeedSuite) TestOrderingAcrossWriters() {
	ctx := context.Background()

	snapshots := make(chan []feed.Record, 16)
	cancel, err := s.source.Subscribe(ctx, feed.Query{
		Collection: "attendance_logs",
		OrderBy:    "timestamp",
		Descending: true,
		Limit:      2,
	}, func(records []feed.Record) {
		snapshots <- records
	}, func(error) {})
	s.Require().NoError(err)
	defer cancel()

	s.waitSnapshot(snapshots)

	for key, ts := range map[string]string{
		"log1": "2026-03-14T09:00:00Z",
		"log2": "2026-03-14T10:00:00Z",
		"log3": "2026-03-14T08:00:00Z",
	} {
		s.Require().NoError(s.source.Put(ctx, "attendance_logs", key, map[string]any{
			"studentid": "STU001", "timestamp": ts, "confidence": 0.9,
		}))
	}

	records := s.waitSnapshotLen(snapshots, 2)
	deadline := time.After(5 * time.Second)
	for records[0].Key != "log2" || records[1].Key != "log1" {
		select {
		case records = <-snapshots:
		case <-deadline:
			s.FailNow("timed out waiting for ordered snapshot")
		}
	}
}

func (s *PgFeedSuite) TestCancelStopsDelivery() {
	ctx := context.Background()

	snapshots := make(chan []feed.Record, 16)
	cancel, err := s.source.Subscribe(ctx, feed.Query{Collection: "students"},
		func(records []feed.Record) { snapshots <- records }, func(error) {})
	s.Require().NoError(err)

	s.waitSnapshot(snapshots)
	cancel()
	cancel() // idempotent

	s.Require().NoError(s.source.Put(ctx, "students", "doc1", map[string]any{
		"studentid": "STU001",
	}))

	select {
	case <-snapshots:
		s.FailNow("delivery after cancel")
	case <-time.After(500 * time.Millisecond):
	}
}
