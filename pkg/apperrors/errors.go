package apperrors

import "errors"

var (
	// ErrConnection means the database could not be opened or is not a valid
	// SQLite store. Fatal, surfaced to the caller immediately.
	ErrConnection = errors.New("cannot open database")

	// ErrSchema means the schema is malformed or internally inconsistent
	// (zero-column table, duplicate table names).
	ErrSchema = errors.New("invalid schema")

	// ErrPlanning means the schema model has no analyzable columns.
	ErrPlanning = errors.New("nothing to analyze")

	// ErrStep means a single analysis step failed. Recovered locally and
	// recorded in the step's result; execution continues.
	ErrStep = errors.New("analysis step failed")

	// ErrInsufficientData means a step had too few non-null rows after
	// missing-data handling.
	ErrInsufficientData = errors.New("insufficient data")

	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
