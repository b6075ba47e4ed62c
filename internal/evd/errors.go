package evd

import "errors"

var (
	// ErrPathExists is returned by the canonical store when a put targets
	// an already-placed canonical path. The store is write-once.
	ErrPathExists = errors.New("canonical path already exists")

	// ErrEntryExists is returned by the index when a docket entry ID is
	// already taken within the case. This is the commit-time second line
	// of defense behind the schema validator.
	ErrEntryExists = errors.New("docket entry ID already exists in case")

	// ErrHoldViolation is returned when an operation would alter or remove
	// evidence in a case under an active litigation hold.
	ErrHoldViolation = errors.New("litigation hold active: destructive operation refused")

	// ErrEvidenceNotFound is returned for lookups of unknown evidence IDs.
	ErrEvidenceNotFound = errors.New("evidence not found")

	// ErrEntryNotFound is returned for lookups of unknown docket entries.
	ErrEntryNotFound = errors.New("docket entry not found")

	// ErrCaseNotFound is returned for lookups of unknown cases.
	ErrCaseNotFound = errors.New("case not found")

	// ErrNoActiveHold is returned when releasing a hold on a case that has
	// none.
	ErrNoActiveHold = errors.New("no active hold on case")
)
