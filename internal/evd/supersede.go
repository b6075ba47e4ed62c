package evd

import (
	"context"
	"fmt"
)

// Supersede replaces a docket entry's evidence with corrected bytes.
// History is never rewritten: the predecessor item and its file stay in
// place, the new item records the supersession link, and the entry is
// re-pointed with provenance "repair". Refused while the case is under an
// active hold, since it alters what the entry currently designates.
func (s *IntakeService) Supersede(ctx context.Context, caseIdent, entryID string, path *Path, note, actor string) (*IntakeResult, error) {
	cs, err := s.requireCase(caseIdent)
	if err != nil {
		return nil, err
	}
	entry, err := s.index.GetEntry(cs.ID, entryID)
	if err != nil {
		return nil, err
	}
	old, err := s.index.GetEvidence(entry.EvidenceID)
	if err != nil {
		return nil, err
	}

	actor = s.actorOr(actor)
	if err := s.checkHold(cs, old.ID, "supersede "+entryID, actor); err != nil {
		return nil, err
	}
	if old.SupersededBy != "" {
		return nil, fmt.Errorf("evidence %s already superseded by %s", old.ID, old.SupersededBy)
	}

	ct, ok, err := s.fsmgr.Sniff(path)
	if err != nil {
		return nil, fmt.Errorf("sniffing replacement: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("replacement failed the intake gate: empty or unrecognized content")
	}

	digest, size, err := s.hashSource(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("hashing replacement: %w", err)
	}
	if digest == old.Digest {
		return nil, fmt.Errorf("replacement bytes are identical to the current evidence")
	}

	replacement := &DocketEntry{
		CaseID:  cs.ID,
		EntryID: entryID,
		Date:    entry.Date,
		DocType: entry.DocType,
		Title:   entry.Title,
		Digest:  digest,
	}
	canonicalPath, err := s.storeContent(ctx, path, replacement, caseIdent, ct)
	if err != nil {
		return nil, fmt.Errorf("storing replacement: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := s.locks.get(cs.ID)
	lock.Lock()
	defer lock.Unlock()

	now := s.clock.Now().UTC()
	item := &EvidenceItem{
		ID:            s.idgen.New(),
		CaseID:        cs.ID,
		Digest:        digest,
		Size:          size,
		ContentType:   ct.MIME,
		IngestedAt:    now,
		Source:        "supersession of " + old.ID,
		CanonicalPath: canonicalPath,
	}
	event := &CustodyEvent{
		Type:       EventSupersede,
		EvidenceID: item.ID,
		CaseID:     cs.ID,
		Actor:      actor,
		At:         now,
		HashBefore: old.Digest,
		HashAfter:  digest,
		Note:       note,
	}

	if err := s.index.Supersede(old.ID, item, entry, event); err != nil {
		return nil, fmt.Errorf("committing supersession: %w", err)
	}

	s.logger.Info("evidence superseded",
		"case", caseIdent, "entry", entryID, "old", old.ID, "new", item.ID)
	return &IntakeResult{
		Outcome:       OutcomeAccepted,
		State:         StateComplete,
		CaseID:        cs.ID,
		CaseIdent:     caseIdent,
		EntryID:       entryID,
		EvidenceID:    item.ID,
		CanonicalPath: canonicalPath,
		Digest:        digest,
		SourcePath:    path.String(),
	}, nil
}
