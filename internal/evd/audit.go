package evd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"evd-go/internal/checksum"
)

// Verify re-hashes every file in a case's checksum manifest and compares
// against the recorded digest. Mismatches are returned and logged as
// high-severity custody events; nothing is ever auto-repaired. The pass is
// read-only with respect to the canonical store.
func (s *IntakeService) Verify(ctx context.Context, caseIdent, actor string) ([]*Mismatch, error) {
	cs, err := s.index.FindCaseByIdentifier(caseIdent)
	if err != nil {
		return nil, fmt.Errorf("finding case: %w", err)
	}
	if cs == nil {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseIdent)
	}
	return s.verifyCase(ctx, cs, s.actorOr(actor))
}

// VerifyAll audits every case, yielding between cases and bounding each
// case's re-hash pass with perCase (zero means unbounded).
func (s *IntakeService) VerifyAll(ctx context.Context, actor string, perCase time.Duration) ([]*Mismatch, error) {
	cases, err := s.index.ListCases()
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}

	var all []*Mismatch
	for _, cs := range cases {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		caseCtx := ctx
		cancel := context.CancelFunc(func() {})
		if perCase > 0 {
			caseCtx, cancel = context.WithTimeout(ctx, perCase)
		}
		mismatches, err := s.verifyCase(caseCtx, cs, s.actorOr(actor))
		cancel()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return all, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("audit pass timed out for case, continuing", "case", cs.Identifier)
		}
		all = append(all, mismatches...)
	}
	return all, nil
}

func (s *IntakeService) verifyCase(ctx context.Context, cs *Case, actor string) ([]*Mismatch, error) {
	manifest, err := s.index.Manifest(cs.ID)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var mismatches []*Mismatch
	for _, m := range manifest {
		if err := ctx.Err(); err != nil {
			return mismatches, err
		}

		mm, err := s.verifyOne(cs, m)
		if err != nil {
			return mismatches, err
		}
		if mm == nil {
			continue
		}

		mismatches = append(mismatches, mm)
		event := &CustodyEvent{
			Type:       EventIntegrityMismatch,
			EvidenceID: mm.EvidenceID,
			CaseID:     cs.ID,
			Actor:      actor,
			At:         s.clock.Now().UTC(),
			HashBefore: mm.Expected,
			HashAfter:  mm.Actual,
			Note:       "integrity mismatch at " + m.CanonicalPath,
		}
		if _, err := s.index.AppendEvent(event); err != nil {
			return mismatches, fmt.Errorf("logging mismatch: %w", err)
		}
		s.logger.Error("integrity mismatch, human review required",
			"case", cs.Identifier, "path", m.CanonicalPath,
			"expected", mm.Expected, "actual", mm.Actual)
	}

	// A completed pass leaves its own ledger trace, clean or not. An
	// aborted pass (cancellation, infrastructure failure) leaves none.
	event := &CustodyEvent{
		Type:   EventVerify,
		CaseID: cs.ID,
		Actor:  actor,
		At:     s.clock.Now().UTC(),
		Note:   fmt.Sprintf("verified %d file(s), %d finding(s)", len(manifest), len(mismatches)),
	}
	if _, err := s.index.AppendEvent(event); err != nil {
		return mismatches, fmt.Errorf("logging audit pass: %w", err)
	}

	if len(mismatches) == 0 {
		s.logger.Debug("case verified clean", "case", cs.Identifier, "files", len(manifest))
	}
	return mismatches, nil
}

// verifyOne returns a non-nil Mismatch when the stored bytes disagree with
// the manifest, or nil when they match.
func (s *IntakeService) verifyOne(cs *Case, m *ManifestEntry) (*Mismatch, error) {
	mm := &Mismatch{
		CaseID:        cs.ID,
		CanonicalPath: m.CanonicalPath,
		Expected:      m.Digest,
	}
	if item, err := s.index.FindEvidenceByPath(cs.ID, m.CanonicalPath); err == nil && item != nil {
		mm.EvidenceID = item.ID
	}

	f, err := s.store.Get(m.CanonicalPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			mm.Missing = true
			return mm, nil
		}
		return nil, fmt.Errorf("opening %s: %w", m.CanonicalPath, err)
	}
	defer f.Close()

	actual, _, err := checksum.Sum(f)
	if err != nil {
		return nil, fmt.Errorf("re-hashing %s: %w", m.CanonicalPath, err)
	}
	if actual == m.Digest {
		return nil, nil
	}
	mm.Actual = actual
	return mm, nil
}
