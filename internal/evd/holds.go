package evd

import (
	"errors"
	"fmt"

	"evd-go/internal/checksum"
)

// ApplyHold places a litigation hold on a case. New evidence still flows in
// while the hold is active; only deletion and alteration are blocked.
func (s *IntakeService) ApplyHold(caseIdent, reason, actor string) (*Hold, error) {
	cs, err := s.requireCase(caseIdent)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, fmt.Errorf("a hold requires a reason")
	}

	now := s.clock.Now().UTC()
	hold := &Hold{
		ID:        s.idgen.New(),
		CaseID:    cs.ID,
		Reason:    reason,
		Actor:     s.actorOr(actor),
		AppliedAt: now,
	}
	if err := s.index.ApplyHold(hold); err != nil {
		return nil, fmt.Errorf("applying hold: %w", err)
	}

	event := &CustodyEvent{
		Type:   EventHoldApplied,
		CaseID: cs.ID,
		Actor:  hold.Actor,
		At:     now,
		Note:   reason,
	}
	if _, err := s.index.AppendEvent(event); err != nil {
		return nil, fmt.Errorf("logging hold: %w", err)
	}

	s.logger.Info("litigation hold applied", "case", caseIdent, "reason", reason)
	return hold, nil
}

// ReleaseHold closes the active hold on a case.
func (s *IntakeService) ReleaseHold(caseIdent, note, actor string) (*Hold, error) {
	cs, err := s.requireCase(caseIdent)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	hold, err := s.index.ReleaseHold(cs.ID, now)
	if err != nil {
		return nil, err
	}

	event := &CustodyEvent{
		Type:   EventHoldReleased,
		CaseID: cs.ID,
		Actor:  s.actorOr(actor),
		At:     now,
		Note:   note,
	}
	if _, err := s.index.AppendEvent(event); err != nil {
		return nil, fmt.Errorf("logging hold release: %w", err)
	}

	s.logger.Info("litigation hold released", "case", caseIdent)
	return hold, nil
}

// checkHold returns ErrHoldViolation when the case is under an active hold,
// first logging the attempted violation. Refusals leave an audit trace,
// they are not merely dropped.
func (s *IntakeService) checkHold(cs *Case, evidenceID, attempted, actor string) error {
	hold, err := s.index.ActiveHold(cs.ID)
	if err != nil {
		return fmt.Errorf("checking hold: %w", err)
	}
	if hold == nil {
		return nil
	}

	event := &CustodyEvent{
		Type:       EventHoldViolation,
		EvidenceID: evidenceID,
		CaseID:     cs.ID,
		Actor:      actor,
		At:         s.clock.Now().UTC(),
		Note:       "refused: " + attempted + " (hold: " + hold.Reason + ")",
	}
	if _, err := s.index.AppendEvent(event); err != nil {
		return fmt.Errorf("logging hold violation: %w", err)
	}

	s.logger.Warn("hold violation attempt refused",
		"case", cs.Identifier, "attempted", attempted, "actor", actor)
	return fmt.Errorf("%s: %w", attempted, ErrHoldViolation)
}

// RecordNegativeEvidence stores a third party's "no responsive records"
// claim as a first-class, hashed record: evidence that the claim was made,
// independent of its accuracy. Records are never deleted.
func (s *IntakeService) RecordNegativeEvidence(caseIdent, claimant, requestScope, responseText, actor string) (*NegativeEvidenceRecord, error) {
	cs, err := s.requireCase(caseIdent)
	if err != nil {
		return nil, err
	}
	if claimant == "" || responseText == "" {
		return nil, fmt.Errorf("negative evidence requires a claimant and response text")
	}

	now := s.clock.Now().UTC()
	rec := &NegativeEvidenceRecord{
		ID:             s.idgen.New(),
		CaseID:         cs.ID,
		Claimant:       claimant,
		RequestScope:   requestScope,
		ResponseText:   responseText,
		ResponseDigest: checksum.SumBytes([]byte(responseText)),
		RecordedAt:     now,
	}
	if err := s.index.RecordNegativeEvidence(rec); err != nil {
		return nil, fmt.Errorf("recording negative evidence: %w", err)
	}

	event := &CustodyEvent{
		Type:      EventNegativeEvidence,
		CaseID:    cs.ID,
		Actor:     s.actorOr(actor),
		At:        now,
		HashAfter: rec.ResponseDigest,
		Note:      fmt.Sprintf("negative-evidence claim by %s: %s", claimant, requestScope),
	}
	if _, err := s.index.AppendEvent(event); err != nil {
		return nil, fmt.Errorf("logging negative evidence: %w", err)
	}

	s.logger.Info("negative-evidence claim recorded",
		"case", caseIdent, "claimant", claimant, "digest", rec.ResponseDigest)
	return rec, nil
}

// requireCase resolves a case identifier that must already exist.
func (s *IntakeService) requireCase(caseIdent string) (*Case, error) {
	cs, err := s.index.FindCaseByIdentifier(caseIdent)
	if err != nil {
		return nil, fmt.Errorf("finding case: %w", err)
	}
	if cs == nil {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseIdent)
	}
	return cs, nil
}

// EnsureCase provisions a case explicitly, outside pattern resolution.
func (s *IntakeService) EnsureCase(caseIdent string) (*Case, error) {
	if caseIdent == "" {
		return nil, errors.New("case identifier required")
	}
	return s.index.EnsureCase(caseIdent, s.clock.Now().UTC())
}
