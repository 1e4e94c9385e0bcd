// Package models holds the record shapes mirrored from the server-side
// collections. Field names match the documents the recognition backend
// writes.
package models

import (
	"time"

	"presence/internal/feed"
)

// Collection names and their order keys.
const (
	CollectionAttendance = "attendance_logs"
	FieldTimestamp       = "timestamp"

	CollectionStudents = "students"
	FieldCreatedAt     = "createdat"
)

// AttendanceEntry is one recognition event. Entries are immutable once
// created; the projection still tolerates edits and deletes if the feed
// reports them.
type AttendanceEntry struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	ObservedAt time.Time `json:"observed_at"`
	Confidence float64   `json:"confidence"`
	DeviceID   string    `json:"device_id"`
}

// AttendanceFromRecord decodes a delivered attendance document.
func AttendanceFromRecord(rec feed.Record) AttendanceEntry {
	return AttendanceEntry{
		ID:         rec.Key,
		StudentID:  rec.String("studentid"),
		ObservedAt: rec.Time(FieldTimestamp),
		Confidence: rec.Float("confidence"),
		DeviceID:   rec.String("deviceid"),
	}
}

// StudentRecord is one enrolled identity. Active=false marks soft deletion.
type StudentRecord struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
}

// StudentFromRecord decodes a delivered student document. A missing active
// field counts as active, matching the backend's soft-delete convention.
func StudentFromRecord(rec feed.Record) StudentRecord {
	return StudentRecord{
		ID:        rec.Key,
		StudentID: rec.String("studentid"),
		Name:      rec.String("name"),
		CreatedAt: rec.Time(FieldCreatedAt),
		Active:    rec.Bool("active", true),
	}
}

// AggregateSnapshot holds the dashboard statistics derived from the
// attendance projection. It is recomputed on every read, never stored.
type AggregateSnapshot struct {
	TodayCount             int     `json:"today_count"`
	UniqueStudentsToday    int     `json:"unique_students_today"`
	AverageConfidenceToday float64 `json:"average_confidence_today"`
}
