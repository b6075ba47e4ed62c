package index

import (
	"database/sql"
	"fmt"

	"evd-go/internal/evd"
)

// Transactional commit operations. Each groups the state mutation with its
// chain-of-custody event so no mutation can land without an audit trace.

// CommitIntake atomically records a new evidence item, its docket entry,
// the manifest row and the ingest event. A unique violation on the docket
// entry surfaces as evd.ErrEntryExists, the commit-time line of defense
// behind the validator.
func (s *SQLiteIndex) CommitIntake(item *evd.EvidenceItem, entry *evd.DocketEntry, event *evd.CustodyEvent) error {
	return s.inTx(func(tx *sql.Tx) error {
		if err := insertEvidence(tx, item); err != nil {
			return err
		}
		if err := insertEntry(tx, entry); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO manifest (case_id, canonical_path, digest, recorded_at)
			 VALUES (?, ?, ?, ?)`,
			item.CaseID, item.CanonicalPath, item.Digest, item.IngestedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: manifest path %s", evd.ErrPathExists, item.CanonicalPath)
			}
			return fmt.Errorf("inserting manifest row: %w", err)
		}
		return insertEvent(tx, event)
	})
}

// AttachDuplicate records a docket entry pointing at already-stored
// evidence, plus the duplicate-detected event. No evidence item or manifest
// row is written.
func (s *SQLiteIndex) AttachDuplicate(entry *evd.DocketEntry, event *evd.CustodyEvent) error {
	return s.inTx(func(tx *sql.Tx) error {
		if err := insertEntry(tx, entry); err != nil {
			return err
		}
		return insertEvent(tx, event)
	})
}

// Supersede records the replacement item and manifest row, marks the
// predecessor superseded, re-points the docket entry and appends the
// supersede event. The predecessor's bytes and manifest row stay in place
// for audit purposes.
func (s *SQLiteIndex) Supersede(oldEvidenceID string, item *evd.EvidenceItem, entry *evd.DocketEntry, event *evd.CustodyEvent) error {
	return s.inTx(func(tx *sql.Tx) error {
		if err := insertEvidence(tx, item); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO manifest (case_id, canonical_path, digest, recorded_at)
			 VALUES (?, ?, ?, ?)`,
			item.CaseID, item.CanonicalPath, item.Digest, item.IngestedAt)
		if err != nil {
			return fmt.Errorf("inserting manifest row: %w", err)
		}

		res, err := tx.Exec(
			`UPDATE evidence_items SET superseded_by = ? WHERE id = ? AND superseded_by = ''`,
			item.ID, oldEvidenceID)
		if err != nil {
			return fmt.Errorf("marking evidence superseded: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking supersession update: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("superseding %s: %w", oldEvidenceID, evd.ErrEvidenceNotFound)
		}

		res, err = tx.Exec(
			`UPDATE docket_entries
			 SET evidence_id = ?, canonical_path = ?, digest = ?, provenance = ?
			 WHERE case_id = ? AND entry_id = ?`,
			item.ID, item.CanonicalPath, item.Digest, evd.ProvenanceRepair,
			entry.CaseID, entry.EntryID)
		if err != nil {
			return fmt.Errorf("re-pointing docket entry: %w", err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking entry update: %w", err)
		}
		if n == 0 {
			return evd.ErrEntryNotFound
		}

		return insertEvent(tx, event)
	})
}

func insertEvidence(tx *sql.Tx, item *evd.EvidenceItem) error {
	_, err := tx.Exec(
		`INSERT INTO evidence_items (id, case_id, digest, size, content_type,
		 ingested_at, source, superseded_by, canonical_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, '', ?)`,
		item.ID, item.CaseID, item.Digest, item.Size, item.ContentType,
		item.IngestedAt, item.Source, item.CanonicalPath)
	if err != nil {
		return fmt.Errorf("inserting evidence item: %w", err)
	}
	return nil
}

func insertEntry(tx *sql.Tx, entry *evd.DocketEntry) error {
	_, err := tx.Exec(
		`INSERT INTO docket_entries (case_id, entry_id, entry_date, doc_type,
		 title, canonical_path, digest, evidence_id, stamp, provenance, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.CaseID, entry.EntryID, entry.Date, string(entry.DocType),
		entry.Title, entry.CanonicalPath, entry.Digest, entry.EvidenceID,
		entry.Stamp, string(entry.Provenance), entry.Notes, entry.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s/%s", evd.ErrEntryExists, entry.CaseID, entry.EntryID)
		}
		return fmt.Errorf("inserting docket entry: %w", err)
	}
	return nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *SQLiteIndex) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
