package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evd-go/internal/evd"
)

// Litigation holds, negative-evidence records and quarantine records.
// Negative-evidence and quarantine rows are insert-only.

func (s *SQLiteIndex) ApplyHold(hold *evd.Hold) error {
	_, err := s.db.Exec(
		`INSERT INTO holds (id, case_id, reason, actor, applied_at, released_at)
		 VALUES (?, ?, ?, ?, ?, NULL)`,
		hold.ID, hold.CaseID, hold.Reason, hold.Actor, hold.AppliedAt)
	if err != nil {
		return fmt.Errorf("inserting hold: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) ReleaseHold(caseID string, at time.Time) (*evd.Hold, error) {
	hold, err := s.ActiveHold(caseID)
	if err != nil {
		return nil, err
	}
	if hold == nil {
		return nil, evd.ErrNoActiveHold
	}

	_, err = s.db.Exec(
		`UPDATE holds SET released_at = ? WHERE id = ?`, at, hold.ID)
	if err != nil {
		return nil, fmt.Errorf("releasing hold: %w", err)
	}
	hold.ReleasedAt = &at
	return hold, nil
}

func (s *SQLiteIndex) ActiveHold(caseID string) (*evd.Hold, error) {
	row := s.db.QueryRow(
		`SELECT id, case_id, reason, actor, applied_at, released_at FROM holds
		 WHERE case_id = ? AND released_at IS NULL
		 ORDER BY applied_at DESC LIMIT 1`, caseID)

	hold := &evd.Hold{}
	var released sql.NullTime
	err := row.Scan(&hold.ID, &hold.CaseID, &hold.Reason, &hold.Actor,
		&hold.AppliedAt, &released)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding active hold: %w", err)
	}
	if released.Valid {
		hold.ReleasedAt = &released.Time
	}
	return hold, nil
}

func (s *SQLiteIndex) RecordNegativeEvidence(rec *evd.NegativeEvidenceRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO negative_evidence
		 (id, case_id, claimant, request_scope, response_text, response_digest, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CaseID, rec.Claimant, rec.RequestScope,
		rec.ResponseText, rec.ResponseDigest, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("inserting negative-evidence record: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) ListNegativeEvidence(caseID string) ([]*evd.NegativeEvidenceRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, case_id, claimant, request_scope, response_text, response_digest, recorded_at
		 FROM negative_evidence WHERE case_id = ? ORDER BY recorded_at`, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing negative evidence: %w", err)
	}
	defer rows.Close()

	var recs []*evd.NegativeEvidenceRecord
	for rows.Next() {
		rec := &evd.NegativeEvidenceRecord{}
		err := rows.Scan(&rec.ID, &rec.CaseID, &rec.Claimant, &rec.RequestScope,
			&rec.ResponseText, &rec.ResponseDigest, &rec.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning negative-evidence record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteIndex) RecordQuarantine(rec *evd.QuarantineRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO quarantine
		 (id, original_name, case_id, reason, quarantine_path, digest, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OriginalName, rec.CaseID, rec.Reason,
		rec.QuarantinePath, rec.Digest, rec.At)
	if err != nil {
		return fmt.Errorf("inserting quarantine record: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) ListQuarantine() ([]*evd.QuarantineRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, original_name, case_id, reason, quarantine_path, digest, at
		 FROM quarantine ORDER BY at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing quarantine records: %w", err)
	}
	defer rows.Close()

	var recs []*evd.QuarantineRecord
	for rows.Next() {
		rec := &evd.QuarantineRecord{}
		err := rows.Scan(&rec.ID, &rec.OriginalName, &rec.CaseID, &rec.Reason,
			&rec.QuarantinePath, &rec.Digest, &rec.At)
		if err != nil {
			return nil, fmt.Errorf("scanning quarantine record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
