package evd

// Outcome is the terminal disposition of one submitted file. Callers always
// receive one of these three, never a bare boolean.
type Outcome string

const (
	// OutcomeAccepted means a docket entry exists for the file (possibly
	// attached to pre-existing evidence when the bytes were a duplicate).
	OutcomeAccepted Outcome = "accepted"

	// OutcomeQuarantined means the bytes were preserved in quarantine
	// storage with a reason attached. Nothing was indexed.
	OutcomeQuarantined Outcome = "quarantined"

	// OutcomeRejected means the file failed the intake gate and never
	// entered the pipeline. The source file is left untouched.
	OutcomeRejected Outcome = "rejected"
)

// Hint carries optional caller-supplied metadata alongside the raw bytes.
// Every field may be empty; the pipeline falls back to filename inference.
type Hint struct {
	CaseIdentifier string // candidate docket identifier
	DocType        string // candidate document type
	Title          string
	Date           string // ISO calendar date
	EntryID        string
	Stamp          string
	Notes          string
	Actor          string // who is performing the intake
	Source         string // where the bytes came from
	Provenance     Provenance
}

// IntakeResult is the structured outcome of one Ingest call.
type IntakeResult struct {
	Outcome       Outcome
	State         IntakeState // terminal state reached
	CaseID        string
	CaseIdent     string // resolved docket identifier (or "unassigned")
	EntryID       string
	EvidenceID    string
	CanonicalPath string
	Digest        string
	Duplicate     bool // exact-digest match against existing evidence
	Unassigned    bool // pattern resolution failed, routed to unassigned
	Reason        string
	SourcePath    string
}

// Accepted reports whether a docket entry exists for the submitted file.
func (r *IntakeResult) Accepted() bool { return r.Outcome == OutcomeAccepted }
