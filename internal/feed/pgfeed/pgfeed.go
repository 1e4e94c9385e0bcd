// Package pgfeed is a Postgres-backed change feed. Documents live as jsonb
// rows in a single documents table; writers emit NOTIFY on a per-collection
// channel and every subscriber re-reads the collection, so each delivery is a
// complete ordered snapshot.
package pgfeed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"

	"presence/internal/feed"
	"presence/internal/platform/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS feed_documents (
	collection text NOT NULL,
	key        text NOT NULL,
	fields     jsonb NOT NULL,
	PRIMARY KEY (collection, key)
)`

// EnsureSchema creates the documents table when absent.
func EnsureSchema(ctx context.Context, pool *postgres.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create feed schema: %w", err)
	}
	return nil
}

// Source implements feed.Source over a jsonb documents table plus
// LISTEN/NOTIFY change channels. Each subscription holds one dedicated
// connection for the LISTEN loop; snapshot reads go through the pool.
type Source struct {
	pool *postgres.Pool
	log  *slog.Logger
}

// New creates a Source over an established pool.
func New(pool *postgres.Pool, log *slog.Logger) *Source {
	return &Source{pool: pool, log: log}
}

// changeChannel derives the NOTIFY channel for a collection. Collection names
// are identifier-safe constants, but sanitize anyway since LISTEN cannot take
// a bind parameter.
func changeChannel(collection string) string {
	return pgx.Identifier{"presence_changed_" + collection}.Sanitize()
}

// Subscribe opens the LISTEN channel before the first read so a write landing
// between the read and the subscription cannot be missed, then delivers the
// initial snapshot.
func (s *Source) Subscribe(ctx context.Context, q feed.Query, onSnapshot feed.SnapshotFunc, onError feed.ErrorFunc) (feed.CancelFunc, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, feed.Unavailable("acquire listen connection failed", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+changeChannel(q.Collection)); err != nil {
		conn.Release()
		return nil, feed.Unavailable("listen failed", err)
	}

	records, err := s.read(ctx, q)
	if err != nil {
		conn.Release()
		return nil, feed.Unavailable("initial collection read failed", err)
	}

	pump := feed.NewPump(onSnapshot, onError)
	pump.Deliver(records)

	watchCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.watch(watchCtx, conn.Conn(), q, pump)
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			// The LISTEN loop must observe cancellation before the connection
			// goes back to the pool.
			<-done
			conn.Release()
			pump.Stop()
		})
	}
	return cancel, nil
}

func (s *Source) watch(ctx context.Context, conn *pgx.Conn, q feed.Query, pump *feed.Pump) {
	for {
		if _, err := conn.WaitForNotification(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			pump.Fail(feed.Unavailable("notification channel lost", err))
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
	rows, err := s.pool.Query(ctx,
		`SELECT key, fields FROM feed_documents WHERE collection = $1`, q.Collection)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var records []feed.Record
	for rows.Next() {
		var key string
		var fields map[string]any
		if err := rows.Scan(&key, &fields); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Collection, err)
		}
		records = append(records, feed.Record{Key: key, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Collection, err)
	}
	return feed.Order(records, q), nil
}

// Put upserts a document and notifies every subscriber of the collection.
func (s *Source) Put(ctx context.Context, collection, key string, fields map[string]any) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO feed_documents (collection, key, fields) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, key) DO UPDATE SET fields = EXCLUDED.fields`,
		collection, key, fields)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, key, err)
	}
	return s.signal(ctx, collection, key)
}

// Delete removes a document and notifies every subscriber of the collection.
func (s *Source) Delete(ctx context.Context, collection, key string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM feed_documents WHERE collection = $1 AND key = $2`,
		collection, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	return s.signal(ctx, collection, key)
}

func (s *Source) signal(ctx context.Context, collection, key string) error {
	if _, err := s.pool.Exec(ctx,
		`SELECT pg_notify($1, $2)`, "presence_changed_"+collection, key); err != nil {
		return fmt.Errorf("notify %s/%s: %w", collection, key, err)
	}
	return nil
}
