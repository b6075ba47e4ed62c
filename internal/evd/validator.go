package evd

import "fmt"

// Rejection codes.
const (
	CodeMissingField = "missing_field"
	CodeBadDate      = "bad_date"
	CodeFutureDate   = "future_date"
	CodeUnknownType  = "unknown_type"
	CodeBadPath      = "bad_path"
	CodeBadDigest    = "bad_digest"
	CodeIDCollision  = "id_collision"
)

// Rejection is a structured validation failure. Code is machine-readable;
// Message feeds the quarantine record and human triage.
type Rejection struct {
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Validator checks a proposed docket entry against the structural contract.
// It runs before any mutation to the canonical store or docket index.
// A non-nil Rejection is an expected outcome; the error return is for
// infrastructure failures only.
type Validator interface {
	Validate(entry *DocketEntry, caseIdent string, idx Index) (*Rejection, error)
}
