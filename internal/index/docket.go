package index

import (
	"database/sql"
	"errors"
	"fmt"

	"evd-go/internal/evd"
)

// Docket, evidence and manifest reads.

func (s *SQLiteIndex) EntryExists(caseID, entryID string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM docket_entries WHERE case_id = ? AND entry_id = ?`,
		caseID, entryID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking entry existence: %w", err)
	}
	return n > 0, nil
}

const entryColumns = `case_id, entry_id, entry_date, doc_type, title,
	canonical_path, digest, evidence_id, stamp, provenance, notes, created_at`

func scanEntry(row interface{ Scan(...any) error }) (*evd.DocketEntry, error) {
	e := &evd.DocketEntry{}
	var docType string
	var provenance string
	err := row.Scan(&e.CaseID, &e.EntryID, &e.Date, &docType, &e.Title,
		&e.CanonicalPath, &e.Digest, &e.EvidenceID, &e.Stamp, &provenance,
		&e.Notes, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.DocType = evd.DocumentType(docType)
	e.Provenance = evd.Provenance(provenance)
	return e, nil
}

func (s *SQLiteIndex) GetEntry(caseID, entryID string) (*evd.DocketEntry, error) {
	row := s.db.QueryRow(
		`SELECT `+entryColumns+` FROM docket_entries WHERE case_id = ? AND entry_id = ?`,
		caseID, entryID)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, evd.ErrEntryNotFound
		}
		return nil, fmt.Errorf("getting entry: %w", err)
	}
	return e, nil
}

// ListEntries orders by date with entry ID as the tiebreaker, which keeps
// the listing stable across appends.
func (s *SQLiteIndex) ListEntries(caseID string) ([]*evd.DocketEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+entryColumns+` FROM docket_entries WHERE case_id = ?
		 ORDER BY entry_date, entry_id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []*evd.DocketEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const evidenceColumns = `id, case_id, digest, size, content_type,
	ingested_at, source, superseded_by, canonical_path`

func scanEvidence(row interface{ Scan(...any) error }) (*evd.EvidenceItem, error) {
	item := &evd.EvidenceItem{}
	err := row.Scan(&item.ID, &item.CaseID, &item.Digest, &item.Size,
		&item.ContentType, &item.IngestedAt, &item.Source,
		&item.SupersededBy, &item.CanonicalPath)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *SQLiteIndex) GetEvidence(evidenceID string) (*evd.EvidenceItem, error) {
	row := s.db.QueryRow(
		`SELECT `+evidenceColumns+` FROM evidence_items WHERE id = ?`, evidenceID)
	item, err := scanEvidence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, evd.ErrEvidenceNotFound
		}
		return nil, fmt.Errorf("getting evidence: %w", err)
	}
	return item, nil
}

func (s *SQLiteIndex) FindEvidenceByDigest(caseID, digest string) (*evd.EvidenceItem, error) {
	row := s.db.QueryRow(
		`SELECT `+evidenceColumns+` FROM evidence_items
		 WHERE case_id = ? AND digest = ? AND superseded_by = ''
		 ORDER BY ingested_at LIMIT 1`, caseID, digest)
	item, err := scanEvidence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding evidence by digest: %w", err)
	}
	return item, nil
}

func (s *SQLiteIndex) FindEvidenceByPath(caseID, canonicalPath string) (*evd.EvidenceItem, error) {
	row := s.db.QueryRow(
		`SELECT `+evidenceColumns+` FROM evidence_items
		 WHERE case_id = ? AND canonical_path = ?
		 ORDER BY ingested_at LIMIT 1`, caseID, canonicalPath)
	item, err := scanEvidence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding evidence by path: %w", err)
	}
	return item, nil
}

func (s *SQLiteIndex) Manifest(caseID string) ([]*evd.ManifestEntry, error) {
	rows, err := s.db.Query(
		`SELECT case_id, canonical_path, digest, recorded_at FROM manifest
		 WHERE case_id = ? ORDER BY canonical_path`, caseID)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	defer rows.Close()

	var entries []*evd.ManifestEntry
	for rows.Next() {
		m := &evd.ManifestEntry{}
		if err := rows.Scan(&m.CaseID, &m.CanonicalPath, &m.Digest, &m.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning manifest row: %w", err)
		}
		entries = append(entries, m)
	}
	return entries, rows.Err()
}
