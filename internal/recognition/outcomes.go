package recognition

// Outcomes are closed sets: every response path of a mediator call maps to
// one named variant, so callers get a total function from "user action" to
// outcome and never handle a thrown transport fault.

// MatchKind names the result variants of a match call.
type MatchKind string

const (
	MatchMatched       MatchKind = "matched"
	MatchNotMatched    MatchKind = "not_matched"
	MatchRequestFailed MatchKind = "request_failed"
)

// MatchOutcome is the result of one attendance match attempt. A Matched
// outcome does not mutate any projection; the attendance view updates only
// once the server-side write propagates through the change feed.
type MatchOutcome struct {
	Kind        MatchKind
	StudentID   string
	StudentName string
	// Confidence is advisory display data in [0,1]; the service already made
	// the pass/fail decision.
	Confidence float64
	Message    string
}

// EnrollKind names the result variants of an enroll call.
type EnrollKind string

const (
	EnrollEnrolled          EnrollKind = "enrolled"
	EnrollRejected          EnrollKind = "rejected"
	EnrollDuplicateDetected EnrollKind = "duplicate_detected"
	EnrollRequestFailed     EnrollKind = "request_failed"
)

// EnrollOutcome is the result of one enrollment attempt. DuplicateDetected is
// a successful response carrying a warning, not a failure: callers must
// render it distinctly and must not auto-retry.
type EnrollOutcome struct {
	Kind             EnrollKind
	Message          string
	MatchedStudentID string
	MatchedName      string
	SimilarityScore  float64
}
