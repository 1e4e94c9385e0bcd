package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"presence/internal/feed/memory"
	"presence/internal/mirror/models"
	"presence/internal/platform/logger"
	"presence/internal/platform/metrics"
	"presence/pkg/sentinel"
)

const waitFor = 2 * time.Second
const tick = 10 * time.Millisecond

// The pinned "now": 2026-03-14 12:00 UTC. Day window is [00:00, 12:00).
var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type MirrorSuite struct {
	suite.Suite
	source *memory.Source
	mirror *Mirror
}

func TestMirrorSuite(t *testing.T) {
	suite.Run(t, new(MirrorSuite))
}

func (s *MirrorSuite) SetupTest() {
	s.source = memory.New()
	s.mirror = New(s.source, 50, logger.Discard(), metrics.NewForTest(),
		WithClock(func() time.Time { return testNow }))
	s.Require().NoError(s.mirror.Start(context.Background()))
}

func (s *MirrorSuite) TearDownTest() {
	s.mirror.Close()
}

func (s *MirrorSuite) putAttendance(key, studentID string, observedAt time.Time, confidence float64) {
	s.source.Put(models.CollectionAttendance, key, map[string]any{
		"studentid":  studentID,
		"timestamp":  observedAt,
		"confidence": confidence,
		"deviceid":   "device_test",
	})
}

func (s *MirrorSuite) putStudent(key, studentID, name string, active bool) {
	s.source.Put(models.CollectionStudents, key, map[string]any{
		"studentid": studentID,
		"name":      name,
		"createdat": testNow.Add(-24 * time.Hour),
		"active":    active,
	})
}

func (s *MirrorSuite) eventually(cond func() bool, msg string) {
	s.Require().Eventually(cond, waitFor, tick, msg)
}

func (s *MirrorSuite) today(h int) time.Time {
	return time.Date(2026, 3, 14, h, 0, 0, 0, time.UTC)
}

func (s *MirrorSuite) TestResolvedAttendanceAndStats() {
	s.putAttendance("a1", "STU001", s.today(9), 0.82)
	s.putStudent("s1", "STU001", "Ada Lovelace", true)

	s.eventually(func() bool {
		view, err := s.mirror.Attendance()
		return err == nil && len(view.Rows) == 1 && view.Rows[0].StudentName == "Ada Lovelace"
	}, "attendance row should resolve to the enrolled name")

	stats, err := s.mirror.Stats()
	s.Require().NoError(err)
	s.Equal(1, stats.TodayCount)
	s.Equal(1, stats.UniqueStudentsToday)
	s.InDelta(0.82, stats.AverageConfidenceToday, 1e-9)
}

func (s *MirrorSuite) TestUnresolvedNameSelfCorrects() {
	s.putAttendance("a1", "STU002", s.today(10), 0.9)

	// The student record has not arrived yet: the raw id is shown.
	s.eventually(func() bool {
		view, err := s.mirror.Attendance()
		return err == nil && len(view.Rows) == 1 && view.Rows[0].StudentName == "STU002"
	}, "unknown student should resolve to the raw id")

	s.putStudent("s1", "STU002", "Grace Hopper", true)
	s.eventually(func() bool {
		view, err := s.mirror.Attendance()
		return err == nil && len(view.Rows) == 1 && view.Rows[0].StudentName == "Grace Hopper"
	}, "name should self-correct once the student snapshot lands")
}

func (s *MirrorSuite) TestInactiveStudentsAreFiltered() {
	s.putStudent("s1", "STU003", "Edsger Dijkstra", false)

	s.eventually(func() bool {
		view, err := s.mirror.Students()
		return err == nil && !view.Loading
	}, "students projection should finish loading")

	view, err := s.mirror.Students()
	s.Require().NoError(err)
	s.Empty(view.Students, "soft-deleted students are filtered out")
	s.Equal("STU003", s.mirror.ResolveName("STU003"))
}

func (s *MirrorSuite) TestDuplicateStudentIDResolvesDeterministically() {
	// Two active records for one id: the first in projection order
	// (createdat desc) wins.
	s.source.Put(models.CollectionStudents, "s-old", map[string]any{
		"studentid": "STU004", "name": "Older Record",
		"createdat": testNow.Add(-48 * time.Hour), "active": true,
	})
	s.source.Put(models.CollectionStudents, "s-new", map[string]any{
		"studentid": "STU004", "name": "Newer Record",
		"createdat": testNow.Add(-1 * time.Hour), "active": true,
	})

	s.eventually(func() bool {
		view, err := s.mirror.Students()
		return err == nil && len(view.Students) == 2
	}, "both records should be projected")

	s.Equal("Newer Record", s.mirror.ResolveName("STU004"))
}

func (s *MirrorSuite) TestStatsDayWindow() {
	s.putAttendance("yesterday", "STU001", testNow.Add(-20*time.Hour), 1.0)
	s.putAttendance("today-1", "STU001", s.today(8), 0.8)
	s.putAttendance("today-2", "STU001", s.today(9), 0.6)
	s.putAttendance("future", "STU009", testNow.Add(time.Hour), 1.0)

	s.eventually(func() bool {
		view, err := s.mirror.Attendance()
		return err == nil && len(view.Rows) == 4
	}, "all entries should be projected")

	stats, err := s.mirror.Stats()
	s.Require().NoError(err)
	s.Equal(2, stats.TodayCount, "only entries in [midnight, now) count")
	s.Equal(1, stats.UniqueStudentsToday)
	s.LessOrEqual(stats.UniqueStudentsToday, stats.TodayCount)
	s.InDelta(0.7, stats.AverageConfidenceToday, 1e-9)
}

func (s *MirrorSuite) TestStatsEmptyWindow() {
	s.eventually(func() bool {
		view, err := s.mirror.Attendance()
		return err == nil && !view.Loading
	}, "attendance projection should finish loading")

	stats, err := s.mirror.Stats()
	s.Require().NoError(err)
	s.Zero(stats.TodayCount)
	s.Zero(stats.UniqueStudentsToday)
	s.Zero(stats.AverageConfidenceToday, "average is an explicit zero, not NaN")
}

func (s *MirrorSuite) TestFeedErrorKeepsLastGoodView() {
	s.putAttendance("a1", "STU001", s.today(9), 0.82)
	s.eventually(func() bool {
		view, err := s.mirror.Attendance()
		return err == nil && len(view.Rows) == 1
	}, "entry should be projected before the failure")

	s.source.FailCollection(models.CollectionAttendance, errors.New("connection reset"))

	s.eventually(func() bool {
		view, err := s.mirror.Attendance()
		return err == nil && view.Err != nil
	}, "the terminal error should surface on the view")

	view, err := s.mirror.Attendance()
	s.Require().NoError(err)
	s.Len(view.Rows, 1, "stale data stays readable")
	s.False(s.mirror.Healthy())
}

func (s *MirrorSuite) TestWatchNotifies() {
	// Let the initial snapshot deliveries settle before watching.
	s.eventually(func() bool {
		att, errA := s.mirror.Attendance()
		stu, errS := s.mirror.Students()
		return errA == nil && errS == nil && !att.Loading && !stu.Loading
	}, "initial snapshots should land")

	ch, stop := s.mirror.Watch()
	defer stop()
	select {
	case <-ch:
	default:
	}

	before := s.mirror.Revision()
	s.putAttendance("a1", "STU001", s.today(9), 0.82)

	select {
	case rev, ok := <-ch:
		s.True(ok)
		s.Greater(rev, before)
	case <-time.After(waitFor):
		s.Fail("no watch notification after a change")
	}
}

func (s *MirrorSuite) TestCloseEndsWatchersAndReads() {
	ch, stop := s.mirror.Watch()
	defer stop()

	s.mirror.Close()
	s.mirror.Close() // idempotent

	s.eventually(func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, "watcher channel should be closed")

	_, err := s.mirror.Attendance()
	s.ErrorIs(err, sentinel.ErrClosed)
	_, err = s.mirror.Stats()
	s.ErrorIs(err, sentinel.ErrClosed)
}
