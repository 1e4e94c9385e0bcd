// Package mirror keeps live local projections of the attendance and student
// collections and derives the dashboard's aggregate statistics from them.
// The two projections update independently; joins between them happen at read
// time, so a reader can transiently see a raw student id where the matching
// student record has not been delivered yet. The next delivery on either side
// self-corrects the view.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"presence/internal/feed"
	"presence/internal/mirror/models"
	"presence/internal/mirror/projection"
	"presence/internal/platform/metrics"
)

// Mirror owns the two projections and the change fan-out for dashboard
// streams.
type Mirror struct {
	log             *slog.Logger
	metrics         *metrics.Metrics
	source          feed.Source
	attendanceLimit int
	now             func() time.Time

	attendance *projection.Projection[models.AttendanceEntry]
	students   *projection.Projection[models.StudentRecord]

	mu       sync.Mutex
	revision uint64
	watchers map[int]chan uint64
	nextID   int
	closed   bool
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithClock overrides the wall clock used for the day window, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Mirror) { m.now = now }
}

// New creates a Mirror over the given change feed. attendanceLimit bounds the
// attendance projection (the tail-limited live view); the students projection
// is unbounded but filtered to active records.
func New(source feed.Source, attendanceLimit int, log *slog.Logger, mtr *metrics.Metrics, opts ...Option) *Mirror {
	m := &Mirror{
		log:             log,
		metrics:         mtr,
		source:          source,
		attendanceLimit: attendanceLimit,
		now:             time.Now,
		watchers:        make(map[int]chan uint64),
	}
	m.attendance = projection.New(func(rec feed.Record) (models.AttendanceEntry, bool) {
		return models.AttendanceFromRecord(rec), true
	})
	m.students = projection.New(func(rec feed.Record) (models.StudentRecord, bool) {
		st := models.StudentFromRecord(rec)
		return st, st.Active
	})
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Start opens both subscriptions. A failure to open the second closes the
// first so no half-started mirror leaks a subscription.
func (m *Mirror) Start(ctx context.Context) error {
	err := m.attendance.Start(ctx, m.source, feed.Query{
		Collection: models.CollectionAttendance,
		OrderBy:    models.FieldTimestamp,
		Descending: true,
		Limit:      m.attendanceLimit,
	}, func() { m.changed(models.CollectionAttendance) })
	if err != nil {
		return fmt.Errorf("start attendance projection: %w", err)
	}

	err = m.students.Start(ctx, m.source, feed.Query{
		Collection: models.CollectionStudents,
		OrderBy:    models.FieldCreatedAt,
		Descending: true,
	}, func() { m.changed(models.CollectionStudents) })
	if err != nil {
		m.attendance.Close()
		return fmt.Errorf("start students projection: %w", err)
	}
	return nil
}

// Close tears down both projections and ends every watcher. Idempotent.
func (m *Mirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for id, ch := range m.watchers {
		close(ch)
		delete(m.watchers, id)
	}
	m.mu.Unlock()

	m.attendance.Close()
	m.students.Close()
}

// AttendanceRow is an attendance entry joined with its resolved student name.
type AttendanceRow struct {
	models.AttendanceEntry
	StudentName string `json:"student_name"`
}

// AttendanceView is one consistent read of the attendance projection.
type AttendanceView struct {
	Rows    []AttendanceRow
	Loading bool
	Err     error
}

// Attendance returns the attendance projection with names resolved against
// the current students projection. Name resolution is best-effort: a student
// not (yet) present resolves to the raw student id.
func (m *Mirror) Attendance() (AttendanceView, error) {
	att, err := m.attendance.State()
	if err != nil {
		return AttendanceView{}, err
	}
	students := m.studentItems()

	rows := make([]AttendanceRow, len(att.Items))
	for i, entry := range att.Items {
		rows[i] = AttendanceRow{
			AttendanceEntry: entry,
			StudentName:     resolveName(students, entry.StudentID),
		}
	}
	return AttendanceView{Rows: rows, Loading: att.Loading, Err: att.Err}, nil
}

// StudentsView is one consistent read of the students projection.
type StudentsView struct {
	Students []models.StudentRecord
	Loading  bool
	Err      error
}

// Students returns the active-student projection.
func (m *Mirror) Students() (StudentsView, error) {
	st, err := m.students.State()
	if err != nil {
		return StudentsView{}, err
	}
	return StudentsView{Students: st.Items, Loading: st.Loading, Err: st.Err}, nil
}

// ResolveName maps a student id to its display name, falling back to the id
// itself. It never fails and never blocks; freshness is exactly that of the
// students projection.
func (m *Mirror) ResolveName(studentID string) string {
	return resolveName(m.studentItems(), studentID)
}

// Stats derives the day's aggregates from the attendance projection as of
// now. The day window is [local midnight, now); the average is an explicit
// zero when the window is empty.
func (m *Mirror) Stats() (models.AggregateSnapshot, error) {
	att, err := m.attendance.State()
	if err != nil {
		return models.AggregateSnapshot{}, err
	}

	now := m.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var snap models.AggregateSnapshot
	seen := make(map[string]struct{})
	var confidenceSum float64
	for _, entry := range att.Items {
		if entry.ObservedAt.Before(midnight) || !entry.ObservedAt.Before(now) {
			continue
		}
		snap.TodayCount++
		confidenceSum += entry.Confidence
		seen[entry.StudentID] = struct{}{}
	}
	snap.UniqueStudentsToday = len(seen)
	if snap.TodayCount > 0 {
		snap.AverageConfidenceToday = confidenceSum / float64(snap.TodayCount)
	}
	return snap, nil
}

// Healthy reports whether both subscriptions are open and error-free.
func (m *Mirror) Healthy() bool {
	return m.attendance.Live() && m.students.Live()
}

// Revision returns the current change counter. It bumps on every projection
// state change, including terminal errors.
func (m *Mirror) Revision() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

// Watch returns a channel that receives the new revision whenever either
// projection changes, and a stop function. Notifications coalesce: a slow
// reader sees only the latest revision. The channel is closed when the
// watcher is stopped or the mirror closes.
func (m *Mirror) Watch() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := m.nextID
	m.nextID++
	m.watchers[id] = ch
	m.mu.Unlock()

	stop := func() {
		m.mu.Lock()
		if w, ok := m.watchers[id]; ok {
			delete(m.watchers, id)
			close(w)
		}
		m.mu.Unlock()
	}
	return ch, stop
}

func (m *Mirror) studentItems() []models.StudentRecord {
	st, err := m.students.State()
	if err != nil {
		return nil
	}
	return st.Items
}

func resolveName(students []models.StudentRecord, studentID string) string {
	// First match in projection order wins if the backend ever holds
	// duplicate active records for one student id.
	for _, st := range students {
		if st.StudentID == studentID {
			return st.Name
		}
	}
	return studentID
}

func (m *Mirror) changed(collection string) {
	m.observe(collection)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.revision++
	rev := m.revision
	for _, ch := range m.watchers {
		select {
		case ch <- rev:
		default:
			// Replace the stale pending revision with the newest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- rev:
			default:
			}
		}
	}
	m.mu.Unlock()
}

func (m *Mirror) observe(collection string) {
	var size int
	var feedErr error
	switch collection {
	case models.CollectionAttendance:
		if state, err := m.attendance.State(); err == nil {
			size, feedErr = len(state.Items), state.Err
		}
	case models.CollectionStudents:
		if state, err := m.students.State(); err == nil {
			size, feedErr = len(state.Items), state.Err
		}
	}

	if feedErr != nil {
		m.metrics.FeedErrors.WithLabelValues(collection).Inc()
		m.log.Error("change feed subscription failed",
			"collection", collection,
			"error", feedErr.Error(),
		)
		return
	}
	m.metrics.SnapshotsDelivered.WithLabelValues(collection).Inc()
	m.metrics.ProjectionSize.WithLabelValues(collection).Set(float64(size))
}
