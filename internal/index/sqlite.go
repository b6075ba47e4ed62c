// Package index implements the docket index, checksum manifest,
// chain-of-custody ledger, hold registry and quarantine records on SQLite.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"evd-go/internal/evd"
	"evd-go/internal/index/migrations"
)

// SQLiteIndex implements the evd.Index interface using SQLite.
type SQLiteIndex struct {
	db   *sql.DB
	path string
}

// NewSQLiteIndex opens (or creates) the index database and applies pending
// migrations. path can be a file path or ":memory:" for tests.
func NewSQLiteIndex(path string) (*SQLiteIndex, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating index schema: %w", err)
	}

	return &SQLiteIndex{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the index relies on. Exported for tools and tests.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A pooled in-memory DSN hands every new connection its own empty
	// database; everything must go through one connection.
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	return db, nil
}

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteIndex) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Case operations

func (s *SQLiteIndex) FindCaseByIdentifier(identifier string) (*evd.Case, error) {
	row := s.db.QueryRow(
		`SELECT id, identifier, created_at FROM cases WHERE identifier = ?`, identifier)
	c := &evd.Case{}
	if err := row.Scan(&c.ID, &c.Identifier, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding case by identifier: %w", err)
	}
	return c, nil
}

func (s *SQLiteIndex) EnsureCase(identifier string, at time.Time) (*evd.Case, error) {
	existing, err := s.FindCaseByIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	c := &evd.Case{
		ID:         newUUID(),
		Identifier: identifier,
		CreatedAt:  at,
	}
	_, err = s.db.Exec(
		`INSERT INTO cases (id, identifier, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Identifier, c.CreatedAt)
	if err != nil {
		// Lost a race with a concurrent intake for the same novel
		// identifier; the winner's row is the case.
		if isUniqueViolation(err) {
			return s.FindCaseByIdentifier(identifier)
		}
		return nil, fmt.Errorf("inserting case: %w", err)
	}
	return c, nil
}

func (s *SQLiteIndex) ListCases() ([]*evd.Case, error) {
	rows, err := s.db.Query(
		`SELECT id, identifier, created_at FROM cases ORDER BY identifier`)
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}
	defer rows.Close()

	var cases []*evd.Case
	for rows.Next() {
		c := &evd.Case{}
		if err := rows.Scan(&c.ID, &c.Identifier, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning case: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func newUUID() string { return uuid.New().String() }

// isUniqueViolation reports whether err is a SQLite constraint violation.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrConstraint
	}
	return false
}

// Compile-time check that SQLiteIndex implements evd.Index
var _ evd.Index = (*SQLiteIndex)(nil)
