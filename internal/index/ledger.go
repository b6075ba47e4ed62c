package index

import (
	"database/sql"
	"fmt"

	"evd-go/internal/evd"
)

// Chain-of-custody ledger. Append and query only: this package contains no
// UPDATE or DELETE statement against custody_events, and none may be added.

// AppendEvent appends a custody event and returns its monotonic ID.
func (s *SQLiteIndex) AppendEvent(event *evd.CustodyEvent) (int64, error) {
	res, err := s.db.Exec(insertEventSQL, eventArgs(event)...)
	if err != nil {
		return 0, fmt.Errorf("appending custody event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading event id: %w", err)
	}
	event.ID = id
	return id, nil
}

const insertEventSQL = `INSERT INTO custody_events
	(event_type, evidence_id, case_id, actor, at, hash_before, hash_after, note)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func eventArgs(event *evd.CustodyEvent) []any {
	return []any{
		string(event.Type), event.EvidenceID, event.CaseID, event.Actor,
		event.At, event.HashBefore, event.HashAfter, event.Note,
	}
}

// insertEvent appends an event within an existing transaction.
func insertEvent(tx *sql.Tx, event *evd.CustodyEvent) error {
	res, err := tx.Exec(insertEventSQL, eventArgs(event)...)
	if err != nil {
		return fmt.Errorf("appending custody event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading event id: %w", err)
	}
	event.ID = id
	return nil
}

const eventColumns = `id, event_type, evidence_id, case_id, actor, at,
	hash_before, hash_after, note`

func scanEvents(rows *sql.Rows) ([]*evd.CustodyEvent, error) {
	defer rows.Close()

	var events []*evd.CustodyEvent
	for rows.Next() {
		ev := &evd.CustodyEvent{}
		var eventType string
		err := rows.Scan(&ev.ID, &eventType, &ev.EvidenceID, &ev.CaseID,
			&ev.Actor, &ev.At, &ev.HashBefore, &ev.HashAfter, &ev.Note)
		if err != nil {
			return nil, fmt.Errorf("scanning custody event: %w", err)
		}
		ev.Type = evd.EventType(eventType)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// EventsForEvidence returns all events for an evidence ID in ledger order.
func (s *SQLiteIndex) EventsForEvidence(evidenceID string) ([]*evd.CustodyEvent, error) {
	rows, err := s.db.Query(
		`SELECT `+eventColumns+` FROM custody_events WHERE evidence_id = ? ORDER BY id`,
		evidenceID)
	if err != nil {
		return nil, fmt.Errorf("querying custody events: %w", err)
	}
	return scanEvents(rows)
}

// EventsForCase returns all events for a case in ledger order.
func (s *SQLiteIndex) EventsForCase(caseID string) ([]*evd.CustodyEvent, error) {
	rows, err := s.db.Query(
		`SELECT `+eventColumns+` FROM custody_events WHERE case_id = ? ORDER BY id`,
		caseID)
	if err != nil {
		return nil, fmt.Errorf("querying custody events: %w", err)
	}
	return scanEvents(rows)
}
