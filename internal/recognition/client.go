// Package recognition mediates requests to the remote face recognition
// service. Each call is a single attempt: failures surface in the outcome for
// manual retry, never as automatic resubmission, because the endpoints are
// not idempotent (a retried enroll may create a duplicate record).
package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"presence/internal/platform/metrics"
)

// Client calls the recognition service's match and enroll endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Client. The injected http.Client carries the request timeout;
// no retries happen beyond what it enforces.
func New(baseURL string, httpClient *http.Client, log *slog.Logger, mtr *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
		metrics: mtr,
	}
}

type matchResponse struct {
	Matched     bool    `json:"matched"`
	StudentID   string  `json:"studentId"`
	StudentName string  `json:"studentName"`
	Confidence  float64 `json:"confidence"`
	Message     string  `json:"message"`
}

// Match submits a captured JPEG for attendance matching. The image travels as
// a multipart file part; the device identity rides a header.
func (c *Client) Match(ctx context.Context, image []byte, deviceID string) MatchOutcome {
	start := time.Now()
	outcome := c.match(ctx, image, deviceID)
	c.observe("match", string(outcome.Kind), start)
	return outcome
}

func (c *Client) match(ctx context.Context, image []byte, deviceID string) MatchOutcome {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="capture.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	if err != nil {
		return MatchOutcome{Kind: MatchRequestFailed, Message: fmt.Sprintf("build request: %v", err)}
	}
	if _, err := part.Write(image); err != nil {
		return MatchOutcome{Kind: MatchRequestFailed, Message: fmt.Sprintf("build request: %v", err)}
	}
	if err := writer.Close(); err != nil {
		return MatchOutcome{Kind: MatchRequestFailed, Message: fmt.Sprintf("build request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/match", &body)
	if err != nil {
		return MatchOutcome{Kind: MatchRequestFailed, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("device-id", deviceID)

	resp, err := c.http.Do(req)
	if err != nil {
		return MatchOutcome{Kind: MatchRequestFailed, Message: fmt.Sprintf("recognition service unreachable: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return MatchOutcome{Kind: MatchRequestFailed, Message: serviceErrorMessage(resp)}
	}

	var decoded matchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return MatchOutcome{Kind: MatchRequestFailed, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	if !decoded.Matched {
		return MatchOutcome{Kind: MatchNotMatched, Message: decoded.Message}
	}
	return MatchOutcome{
		Kind:        MatchMatched,
		StudentID:   decoded.StudentID,
		StudentName: decoded.StudentName,
		Confidence:  decoded.Confidence,
		Message:     decoded.Message,
	}
}

type enrollRequest struct {
	StudentID   string `json:"studentid"`
	Name        string `json:"name"`
	ImageBase64 string `json:"imagebase64"`
	DeviceID    string `json:"deviceid"`
}

type enrollResponse struct {
	Success            bool    `json:"success"`
	Message            string  `json:"message"`
	DuplicateDetected  bool    `json:"duplicatedetected"`
	DuplicateName      string  `json:"duplicatename"`
	DuplicateStudentID string  `json:"duplicatestudentid"`
	SimilarityScore    float64 `json:"similarityscore"`
}

// Enroll submits a new student. Local validation covers presence of the three
// fields only; image content is the service's concern.
func (c *Client) Enroll(ctx context.Context, studentID, name string, image []byte, deviceID string) EnrollOutcome {
	if strings.TrimSpace(studentID) == "" {
		return EnrollOutcome{Kind: EnrollRejected, Message: "student id is required"}
	}
	if strings.TrimSpace(name) == "" {
		return EnrollOutcome{Kind: EnrollRejected, Message: "name is required"}
	}
	if len(image) == 0 {
		return EnrollOutcome{Kind: EnrollRejected, Message: "image is required"}
	}

	start := time.Now()
	outcome := c.enroll(ctx, studentID, name, image, deviceID)
	c.observe("enroll", string(outcome.Kind), start)
	return outcome
}

func (c *Client) enroll(ctx context.Context, studentID, name string, image []byte, deviceID string) EnrollOutcome {
	payload, err := json.Marshal(enrollRequest{
		StudentID:   studentID,
		Name:        name,
		ImageBase64: base64.StdEncoding.EncodeToString(image),
		DeviceID:    deviceID,
	})
	if err != nil {
		return EnrollOutcome{Kind: EnrollRequestFailed, Message: fmt.Sprintf("build request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/enroll", bytes.NewReader(payload))
	if err != nil {
		return EnrollOutcome{Kind: EnrollRequestFailed, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return EnrollOutcome{Kind: EnrollRequestFailed, Message: fmt.Sprintf("recognition service unreachable: %v", err)}
	}
	defer resp.Body.Close()

	// The service reports input problems as 4xx with a detail message; those
	// are rejections the operator can correct, not transport failures.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return EnrollOutcome{Kind: EnrollRejected, Message: serviceErrorMessage(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return EnrollOutcome{Kind: EnrollRequestFailed, Message: serviceErrorMessage(resp)}
	}

	var decoded enrollResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return EnrollOutcome{Kind: EnrollRequestFailed, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	if decoded.DuplicateDetected {
		return EnrollOutcome{
			Kind:             EnrollDuplicateDetected,
			Message:          decoded.Message,
			MatchedStudentID: decoded.DuplicateStudentID,
			MatchedName:      decoded.DuplicateName,
			SimilarityScore:  decoded.SimilarityScore,
		}
	}
	if !decoded.Success {
		return EnrollOutcome{Kind: EnrollRejected, Message: decoded.Message}
	}
	return EnrollOutcome{Kind: EnrollEnrolled, Message: decoded.Message}
}

func (c *Client) observe(operation, outcome string, start time.Time) {
	c.metrics.RecognitionCalls.WithLabelValues(operation, outcome).Inc()
	c.metrics.RecognitionLatency.Observe(time.Since(start).Seconds())
	c.log.Debug("recognition call finished",
		"operation", operation,
		"outcome", outcome,
		"duration", time.Since(start).String(),
	)
}

// serviceErrorMessage extracts a human-readable message from an error
// response, tolerating both {"detail": ...} and {"message": ...} envelopes.
func serviceErrorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(body) > 0 {
		var envelope struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &envelope) == nil {
			if envelope.Detail != "" {
				return envelope.Detail
			}
			if envelope.Message != "" {
				return envelope.Message
			}
		}
	}
	return fmt.Sprintf("recognition service returned %s", resp.Status)
}
