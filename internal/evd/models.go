package evd

import "time"

// EvidenceItem is an immutable stored byte sequence. Once accepted it is
// never mutated in place; corrections create a new item and link the old
// one via SupersededBy.
type EvidenceItem struct {
	ID            string // UUID
	CaseID        string // Foreign key to Case
	Digest        string // SHA-256, lowercase hex
	Size          int64
	ContentType   string // MIME hint from the intake gate
	IngestedAt    time.Time
	Source        string // who/what supplied the bytes
	SupersededBy  string // successor evidence ID, empty if current
	CanonicalPath string // path relative to the store root
}

// DocketEntry is the metadata record describing one EvidenceItem in case
// context. Entry IDs are unique within a case.
type DocketEntry struct {
	CaseID        string
	EntryID       string
	Date          time.Time // calendar date, time component zero
	DocType       DocumentType
	Title         string
	CanonicalPath string
	Digest        string
	EvidenceID    string
	Stamp         string // extracted stamp, empty if none
	Provenance    Provenance
	Notes         string
	CreatedAt     time.Time
}

// Case is a named collection of docket entries plus a checksum manifest.
// Cases are never deleted.
type Case struct {
	ID         string // UUID
	Identifier string // resolved docket identifier, or "unassigned"
	CreatedAt  time.Time
}

// ManifestEntry is one row of a case's checksum manifest: the recorded
// ground truth for later verification.
type ManifestEntry struct {
	CaseID        string
	CanonicalPath string
	Digest        string
	RecordedAt    time.Time
}

// CustodyEvent is an immutable chain-of-custody record. Events are
// append-only; the ID is assigned by the ledger and is monotonic.
type CustodyEvent struct {
	ID         int64
	Type       EventType
	EvidenceID string // empty for case-level events (holds, negative evidence)
	CaseID     string
	Actor      string
	At         time.Time // UTC
	HashBefore string    // empty if not applicable
	HashAfter  string    // empty if not applicable
	Note       string
}

// Hold flags a case as non-destructible while active.
type Hold struct {
	ID         string // UUID
	CaseID     string
	Reason     string
	Actor      string
	AppliedAt  time.Time
	ReleasedAt *time.Time // nil while active
}

// NegativeEvidenceRecord preserves a third party's "no responsive records"
// claim together with a digest of the claim text. It is evidence of the
// claim's existence, not of its truth, and is never deleted.
type NegativeEvidenceRecord struct {
	ID             string // UUID
	CaseID         string
	Claimant       string
	RequestScope   string
	ResponseText   string
	ResponseDigest string
	RecordedAt     time.Time
}

// QuarantineRecord describes a file that could not be auto-accepted. The
// bytes are held in quarantine storage and are never deleted by the
// pipeline.
type QuarantineRecord struct {
	ID             string // UUID
	OriginalName   string
	CaseID         string // best-effort resolution, may be empty
	Reason         string
	QuarantinePath string
	Digest         string // empty if hashing never completed
	At             time.Time
}

// Mismatch is one integrity-audit finding: the recorded manifest digest no
// longer matches the stored bytes (or the file is missing).
type Mismatch struct {
	CaseID        string
	CanonicalPath string
	EvidenceID    string
	Expected      string
	Actual        string // empty when the file is missing
	Missing       bool
}
