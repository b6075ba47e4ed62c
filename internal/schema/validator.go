// Package schema validates proposed docket entries against the structural
// contract before anything is allowed to touch persistent state
// (validate-then-commit, never commit-then-validate).
package schema

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"evd-go/internal/checksum"
	"evd-go/internal/evd"
)

// futureTolerance absorbs clock skew between the intake host and whoever
// dated the document.
const futureTolerance = 24 * time.Hour

// fileSegment is the allowed shape of the filename portion of a canonical
// path: <date>_<type>_<slug>.<ext>.
var fileSegment = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_[a-z_]+_[a-z0-9-]+\.[a-z0-9]+$`)

// Validator checks proposed docket entries. It consults the index for
// entry-ID uniqueness but never writes to it.
type Validator struct {
	clock evd.Clock
}

// New creates a Validator using the given clock.
func New(clock evd.Clock) *Validator {
	return &Validator{clock: clock}
}

var _ evd.Validator = (*Validator)(nil)

// Validate returns a nil Rejection when the entry is acceptable, or a
// Rejection describing the first failure found. caseIdent is the resolved
// docket identifier the canonical path must live under. The digest field
// may still be empty at this stage (hashing follows validation in the
// pipeline); when present it must be well-formed.
func (v *Validator) Validate(entry *evd.DocketEntry, caseIdent string, idx evd.Index) (*evd.Rejection, error) {
	if rej := checkFields(entry); rej != nil {
		return rej, nil
	}

	if _, err := evd.ParseDocumentType(string(entry.DocType)); err != nil {
		return &evd.Rejection{Code: evd.CodeUnknownType, Message: err.Error()}, nil
	}

	if entry.Date.IsZero() {
		return &evd.Rejection{Code: evd.CodeBadDate, Message: "date is not a valid calendar date"}, nil
	}
	if entry.Date.After(v.clock.Now().Add(futureTolerance)) {
		return &evd.Rejection{
			Code:    evd.CodeFutureDate,
			Message: fmt.Sprintf("date %s is in the future", entry.Date.Format("2006-01-02")),
		}, nil
	}

	if rej := checkCanonicalPath(entry, caseIdent); rej != nil {
		return rej, nil
	}

	if entry.Digest != "" && !checksum.Valid(entry.Digest) {
		return &evd.Rejection{Code: evd.CodeBadDigest, Message: "content digest is not a valid SHA-256 hex string"}, nil
	}

	exists, err := idx.EntryExists(entry.CaseID, entry.EntryID)
	if err != nil {
		return nil, fmt.Errorf("checking entry uniqueness: %w", err)
	}
	if exists {
		return &evd.Rejection{
			Code:    evd.CodeIDCollision,
			Message: fmt.Sprintf("entry ID %q already exists in case %s", entry.EntryID, caseIdent),
		}, nil
	}

	return nil, nil
}

func checkFields(entry *evd.DocketEntry) *evd.Rejection {
	required := []struct {
		name  string
		value string
	}{
		{"case_id", entry.CaseID},
		{"entry_id", entry.EntryID},
		{"title", entry.Title},
		{"canonical_path", entry.CanonicalPath},
		{"doc_type", string(entry.DocType)},
		{"provenance", string(entry.Provenance)},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &evd.Rejection{Code: evd.CodeMissingField, Message: "missing required field: " + f.name}
		}
	}
	return nil
}

// checkCanonicalPath enforces the <case>/<date>_<type>_<slug>.<ext>
// convention and that the path sits under the entry's own case.
func checkCanonicalPath(entry *evd.DocketEntry, caseIdent string) *evd.Rejection {
	dir, file := path.Split(entry.CanonicalPath)
	dir = strings.TrimSuffix(dir, "/")
	if dir != caseIdent {
		return &evd.Rejection{
			Code:    evd.CodeBadPath,
			Message: fmt.Sprintf("canonical path %q is not under case %q", entry.CanonicalPath, caseIdent),
		}
	}
	if !fileSegment.MatchString(file) {
		return &evd.Rejection{
			Code:    evd.CodeBadPath,
			Message: fmt.Sprintf("canonical filename %q does not match <date>_<type>_<slug>.<ext>", file),
		}
	}
	if !strings.HasPrefix(file, entry.Date.Format("2006-01-02")+"_") {
		return &evd.Rejection{
			Code:    evd.CodeBadPath,
			Message: "canonical filename date does not match entry date",
		}
	}
	return nil
}
