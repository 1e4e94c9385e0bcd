// Package httptransport is the thin HTTP layer over the mirror and the
// recognition mediator. It delegates to services without embedding business
// logic so transport concerns remain isolated.
package httptransport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"presence/internal/mirror"
	"presence/internal/mirror/models"
	"presence/internal/platform/metrics"
	"presence/internal/recognition"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler_mocks.go -package=mocks MirrorService,RecognitionService,DeviceIdentity

// MirrorService is the live-view surface the handlers read from.
type MirrorService interface {
	Attendance() (mirror.AttendanceView, error)
	Students() (mirror.StudentsView, error)
	Stats() (models.AggregateSnapshot, error)
	Revision() uint64
	Watch() (<-chan uint64, func())
	Healthy() bool
}

// RecognitionService mediates capture and enrollment requests.
type RecognitionService interface {
	Match(ctx context.Context, image []byte, deviceID string) recognition.MatchOutcome
	Enroll(ctx context.Context, studentID, name string, image []byte, deviceID string) recognition.EnrollOutcome
}

// DeviceIdentity supplies this service's own device token, used when the
// capturing client does not send one.
type DeviceIdentity interface {
	ID() (string, error)
}

// Handler handles the dashboard API endpoints.
type Handler struct {
	log        *slog.Logger
	metrics    *metrics.Metrics
	mirror     MirrorService
	recognizer RecognitionService
	device     DeviceIdentity
}

// New creates the Handler.
func New(m MirrorService, recognizer RecognitionService, device DeviceIdentity, log *slog.Logger, mtr *metrics.Metrics) *Handler {
	return &Handler{
		log:        log,
		metrics:    mtr,
		mirror:     m,
		recognizer: recognizer,
		device:     device,
	}
}

// Register wires the API routes onto the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/attendance", h.handleAttendance)
		r.Get("/students", h.handleStudents)
		r.Get("/stats", h.handleStats)
		r.Get("/stream", h.handleStream)
		r.Post("/attendance/match", h.handleMatch)
		r.Post("/students/enroll", h.handleEnroll)
	})
	r.Get("/healthz", h.handleHealthz)
}

type attendanceResponse struct {
	Entries []mirror.AttendanceRow `json:"entries"`
	Loading bool                   `json:"loading"`
	Stale   bool                   `json:"stale"`
	Error   string                 `json:"error,omitempty"`
}

// handleAttendance returns the live attendance view. A set stale flag tells
// the dashboard the feed died and the rows are the last good snapshot.
func (h *Handler) handleAttendance(w http.ResponseWriter, r *http.Request) {
	view, err := h.mirror.Attendance()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, codeNotSubscribed, "attendance view is not available")
		return
	}
	resp := attendanceResponse{
		Entries: view.Rows,
		Loading: view.Loading,
		Stale:   view.Err != nil,
	}
	if view.Rows == nil {
		resp.Entries = []mirror.AttendanceRow{}
	}
	if view.Err != nil {
		resp.Error = view.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type studentsResponse struct {
	Students []models.StudentRecord `json:"students"`
	Loading  bool                   `json:"loading"`
	Stale    bool                   `json:"stale"`
	Error    string                 `json:"error,omitempty"`
}

func (h *Handler) handleStudents(w http.ResponseWriter, r *http.Request) {
	view, err := h.mirror.Students()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, codeNotSubscribed, "students view is not available")
		return
	}
	resp := studentsResponse{
		Students: view.Students,
		Loading:  view.Loading,
		Stale:    view.Err != nil,
	}
	if view.Students == nil {
		resp.Students = []models.StudentRecord{}
	}
	if view.Err != nil {
		resp.Error = view.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.mirror.Stats()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, codeNotSubscribed, "stats are not available")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// maxImageBytes caps uploaded captures; the camera boundary produces JPEGs
// well under this.
const maxImageBytes = 10 << 20

type matchResponse struct {
	Outcome     recognition.MatchKind `json:"outcome"`
	StudentID   string                `json:"student_id,omitempty"`
	StudentName string                `json:"student_name,omitempty"`
	Confidence  float64               `json:"confidence"`
	Message     string                `json:"message"`
}

func (h *Handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "multipart file field is required")
		return
	}
	defer file.Close()

	image, err := readAll(file, maxImageBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "could not read image payload")
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "image payload is empty")
		return
	}

	deviceID := r.Header.Get("device-id")
	if deviceID == "" {
		deviceID, err = h.device.ID()
		if err != nil {
			h.log.Error("device identity unavailable", "error", err.Error())
			writeError(w, http.StatusInternalServerError, codeInternal, "device identity unavailable")
			return
		}
	}

	outcome := h.recognizer.Match(r.Context(), image, deviceID)
	status := http.StatusOK
	if outcome.Kind == recognition.MatchRequestFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, matchResponse{
		Outcome:     outcome.Kind,
		StudentID:   outcome.StudentID,
		StudentName: outcome.StudentName,
		Confidence:  outcome.Confidence,
		Message:     outcome.Message,
	})
}

type enrollRequest struct {
	StudentID   string `json:"student_id"`
	Name        string `json:"name"`
	ImageBase64 string `json:"image_base64"`
}

type enrollResponse struct {
	Outcome          recognition.EnrollKind `json:"outcome"`
	Message          string                 `json:"message"`
	MatchedStudentID string                 `json:"matched_student_id,omitempty"`
	MatchedName      string                 `json:"matched_name,omitempty"`
	SimilarityScore  float64                `json:"similarity_score,omitempty"`
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImageBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid request body")
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "image_base64 is not valid base64")
		return
	}

	deviceID, err := h.device.ID()
	if err != nil {
		h.log.Error("device identity unavailable", "error", err.Error())
		writeError(w, http.StatusInternalServerError, codeInternal, "device identity unavailable")
		return
	}

	outcome := h.recognizer.Enroll(r.Context(), req.StudentID, req.Name, image, deviceID)
	status := http.StatusOK
	switch outcome.Kind {
	case recognition.EnrollRejected:
		status = http.StatusBadRequest
	case recognition.EnrollRequestFailed:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, enrollResponse{
		Outcome:          outcome.Kind,
		Message:          outcome.Message,
		MatchedStudentID: outcome.MatchedStudentID,
		MatchedName:      outcome.MatchedName,
		SimilarityScore:  outcome.SimilarityScore,
	})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !h.mirror.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":     "degraded",
			"feeds_live": false,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"feeds_live": true,
	})
}
