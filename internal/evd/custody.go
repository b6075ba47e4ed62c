package evd

import (
	"fmt"
	"io"
)

// CustodyReport returns the ordered chain-of-custody events for one
// evidence item, suitable for a printable audit report.
func (s *IntakeService) CustodyReport(evidenceID string) (*EvidenceItem, []*CustodyEvent, error) {
	item, err := s.index.GetEvidence(evidenceID)
	if err != nil {
		return nil, nil, err
	}
	events, err := s.index.EventsForEvidence(evidenceID)
	if err != nil {
		return nil, nil, fmt.Errorf("querying custody events: %w", err)
	}
	return item, events, nil
}

// CaseLedger returns every custody event recorded against a case.
func (s *IntakeService) CaseLedger(caseIdent string) ([]*CustodyEvent, error) {
	cs, err := s.requireCase(caseIdent)
	if err != nil {
		return nil, err
	}
	return s.index.EventsForCase(cs.ID)
}

// OpenEvidence streams stored evidence bytes and logs the access. Reading
// evidence is a custody-relevant act: the event lands after the open
// succeeds but before any byte is handed to the caller, so the ledger never
// asserts a read that did not happen.
func (s *IntakeService) OpenEvidence(evidenceID, actor string) (io.ReadCloser, *EvidenceItem, error) {
	item, err := s.index.GetEvidence(evidenceID)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.store.Get(item.CanonicalPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening evidence: %w", err)
	}

	event := &CustodyEvent{
		Type:       EventAccess,
		EvidenceID: item.ID,
		CaseID:     item.CaseID,
		Actor:      s.actorOr(actor),
		At:         s.clock.Now().UTC(),
		Note:       "read " + item.CanonicalPath,
	}
	if _, err := s.index.AppendEvent(event); err != nil {
		rc.Close()
		return nil, nil, fmt.Errorf("logging access: %w", err)
	}
	return rc, item, nil
}

// ExportEvidence copies evidence bytes to w and logs the export with the
// content digest so the receiving side can verify the copy.
func (s *IntakeService) ExportEvidence(evidenceID, actor string, w io.Writer) (*EvidenceItem, error) {
	item, err := s.index.GetEvidence(evidenceID)
	if err != nil {
		return nil, err
	}

	rc, err := s.store.Get(item.CanonicalPath)
	if err != nil {
		return nil, fmt.Errorf("opening evidence: %w", err)
	}
	defer rc.Close()

	if _, err := io.Copy(w, rc); err != nil {
		return nil, fmt.Errorf("copying evidence: %w", err)
	}

	event := &CustodyEvent{
		Type:       EventExport,
		EvidenceID: item.ID,
		CaseID:     item.CaseID,
		Actor:      s.actorOr(actor),
		At:         s.clock.Now().UTC(),
		HashAfter:  item.Digest,
		Note:       "exported " + item.CanonicalPath,
	}
	if _, err := s.index.AppendEvent(event); err != nil {
		return nil, fmt.Errorf("logging export: %w", err)
	}

	s.logger.Info("evidence exported", "evidence", item.ID, "path", item.CanonicalPath)
	return item, nil
}

// ListDocket returns a case's docket entries in stable date order.
func (s *IntakeService) ListDocket(caseIdent string) ([]*DocketEntry, error) {
	cs, err := s.requireCase(caseIdent)
	if err != nil {
		return nil, err
	}
	return s.index.ListEntries(cs.ID)
}

// ListCases returns all known cases.
func (s *IntakeService) ListCases() ([]*Case, error) {
	return s.index.ListCases()
}

// ListQuarantine returns all quarantine records, newest first.
func (s *IntakeService) ListQuarantine() ([]*QuarantineRecord, error) {
	return s.index.ListQuarantine()
}

// ListNegativeEvidence returns a case's negative-evidence claims.
func (s *IntakeService) ListNegativeEvidence(caseIdent string) ([]*NegativeEvidenceRecord, error) {
	cs, err := s.requireCase(caseIdent)
	if err != nil {
		return nil, err
	}
	return s.index.ListNegativeEvidence(cs.ID)
}
