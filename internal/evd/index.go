package evd

import "time"

// Index provides metadata storage: the per-case docket index, the checksum
// manifest, the chain-of-custody ledger, holds, negative-evidence records
// and quarantine records. Implementations must make CommitIntake and
// AttachDuplicate transactional, and must enforce docket entry uniqueness
// at commit time regardless of what the validator checked earlier.
//
// The ledger portion is append-only: there is deliberately no method that
// updates or deletes a custody event.
type Index interface {
	// Case operations

	// FindCaseByIdentifier returns the case with an exact identifier
	// match, or nil if none exists.
	FindCaseByIdentifier(identifier string) (*Case, error)

	// EnsureCase returns the case for the identifier, creating it first if
	// it does not exist.
	EnsureCase(identifier string, at time.Time) (*Case, error)

	// ListCases returns all cases ordered by identifier.
	ListCases() ([]*Case, error)

	// Docket operations

	// EntryExists reports whether an entry ID is already taken in a case.
	EntryExists(caseID, entryID string) (bool, error)

	// GetEntry returns one docket entry, or ErrEntryNotFound.
	GetEntry(caseID, entryID string) (*DocketEntry, error)

	// ListEntries returns a case's docket ordered by date, ties broken by
	// entry ID. The ordering is stable across appends.
	ListEntries(caseID string) ([]*DocketEntry, error)

	// Evidence operations

	// GetEvidence returns one evidence item, or ErrEvidenceNotFound.
	GetEvidence(evidenceID string) (*EvidenceItem, error)

	// FindEvidenceByDigest returns the case's evidence item with the given
	// content digest, or nil if none exists.
	FindEvidenceByDigest(caseID, digest string) (*EvidenceItem, error)

	// FindEvidenceByPath returns the evidence item placed at a canonical
	// path, or nil if none exists.
	FindEvidenceByPath(caseID, canonicalPath string) (*EvidenceItem, error)

	// Commit operations

	// CommitIntake atomically records a new evidence item, its docket
	// entry, the manifest row and the ingest custody event. Returns
	// ErrEntryExists if the entry ID was taken between validation and
	// commit.
	CommitIntake(item *EvidenceItem, entry *DocketEntry, event *CustodyEvent) error

	// AttachDuplicate atomically records a docket entry pointing at
	// already-stored evidence plus its duplicate-detected event. No
	// evidence item or manifest row is written.
	AttachDuplicate(entry *DocketEntry, event *CustodyEvent) error

	// Supersede atomically records the replacement evidence item and its
	// manifest row, marks the predecessor superseded, re-points the docket
	// entry and appends the supersede event.
	Supersede(oldEvidenceID string, item *EvidenceItem, entry *DocketEntry, event *CustodyEvent) error

	// Manifest operations

	// Manifest returns all manifest rows for a case ordered by path.
	Manifest(caseID string) ([]*ManifestEntry, error)

	// Ledger operations

	// AppendEvent appends a custody event and returns its monotonic ID.
	AppendEvent(event *CustodyEvent) (int64, error)

	// EventsForEvidence returns all events for an evidence ID ordered by
	// event ID.
	EventsForEvidence(evidenceID string) ([]*CustodyEvent, error)

	// EventsForCase returns all events for a case ordered by event ID.
	EventsForCase(caseID string) ([]*CustodyEvent, error)

	// Hold operations

	// ApplyHold records a new active hold.
	ApplyHold(hold *Hold) error

	// ReleaseHold closes the active hold on a case and returns it.
	// Returns ErrNoActiveHold if none is active.
	ReleaseHold(caseID string, at time.Time) (*Hold, error)

	// ActiveHold returns the active hold on a case, or nil.
	ActiveHold(caseID string) (*Hold, error)

	// Negative-evidence operations (insert-only)

	// RecordNegativeEvidence stores a "no responsive records" claim.
	RecordNegativeEvidence(rec *NegativeEvidenceRecord) error

	// ListNegativeEvidence returns a case's claims ordered by record time.
	ListNegativeEvidence(caseID string) ([]*NegativeEvidenceRecord, error)

	// Quarantine operations

	// RecordQuarantine stores a quarantine record.
	RecordQuarantine(rec *QuarantineRecord) error

	// ListQuarantine returns all quarantine records, newest first.
	ListQuarantine() ([]*QuarantineRecord, error)

	// Close closes the underlying storage.
	Close() error
}
