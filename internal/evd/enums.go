package evd

import (
	"fmt"
	"strings"
)

// DocumentType is the closed set of docket document types.
type DocumentType string

const (
	DocOrder          DocumentType = "order"
	DocMotion         DocumentType = "motion"
	DocFiling         DocumentType = "filing"
	DocExhibit        DocumentType = "exhibit"
	DocCorrespondence DocumentType = "correspondence"
	DocDispatchLog    DocumentType = "dispatch_log"
	DocAgencyResponse DocumentType = "agency_response"
	DocTranscript     DocumentType = "transcript"
	DocImage          DocumentType = "image"
	DocVideo          DocumentType = "video"
	DocAudio          DocumentType = "audio"
	DocOther          DocumentType = "other"
)

var documentTypes = map[DocumentType]struct{}{
	DocOrder:          {},
	DocMotion:         {},
	DocFiling:         {},
	DocExhibit:        {},
	DocCorrespondence: {},
	DocDispatchLog:    {},
	DocAgencyResponse: {},
	DocTranscript:     {},
	DocImage:          {},
	DocVideo:          {},
	DocAudio:          {},
	DocOther:          {},
}

// ParseDocumentType converts a raw string to a DocumentType.
func ParseDocumentType(raw string) (DocumentType, error) {
	dt := DocumentType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := documentTypes[dt]; !ok {
		return "", fmt.Errorf("unknown document type: %q", raw)
	}
	return dt, nil
}

// Provenance tags how a docket entry entered the system.
type Provenance string

const (
	ProvenanceInbox     Provenance = "inbox"
	ProvenanceManual    Provenance = "manual"
	ProvenanceRepair    Provenance = "repair"
	ProvenanceMigration Provenance = "migration"
)

// EventType classifies chain-of-custody events.
type EventType string

const (
	EventIngest            EventType = "ingest"
	EventAccess            EventType = "access"
	EventExport            EventType = "export"
	EventVerify            EventType = "verify"
	EventDuplicateDetected EventType = "duplicate-detected"
	EventQuarantine        EventType = "quarantine"
	EventSupersede         EventType = "supersede"
	EventHoldApplied       EventType = "hold-applied"
	EventHoldReleased      EventType = "hold-released"
	EventHoldViolation     EventType = "hold-violation"
	EventNegativeEvidence  EventType = "negative-evidence"
	EventIntegrityMismatch EventType = "integrity-mismatch"
	EventOrphanSwept       EventType = "orphan-swept"
)

// IntakeState is the orchestrator's position in the pipeline for one file.
type IntakeState string

const (
	StateReceived      IntakeState = "received"
	StateResolving     IntakeState = "resolving"
	StateValidating    IntakeState = "validating"
	StateHashing       IntakeState = "hashing"
	StateDeduplicating IntakeState = "deduplicating"
	StateStoring       IntakeState = "storing"
	StateIndexing      IntakeState = "indexing"
	StateComplete      IntakeState = "logged_complete"
	StateQuarantined   IntakeState = "quarantined"
)

// UnassignedCase is the sentinel identifier for files whose docket pattern
// could not be resolved. They are accepted, not dropped; assignment is a
// later, human step.
const UnassignedCase = "unassigned"
