// Package store implements the persistence contract of the supervisor over
// PostgreSQL. All methods are safe for concurrent use; mutations that pace
// the trigger cycle (check-in, trigger, retrigger) are single atomic UPDATE
// statements so that concurrent check-ins and scheduler ticks never
// read-modify-write the same row.
package store

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Store provides persistence for switches, their configuration, and the
// execution audit trail.
type Store struct {
	db *sql.DB
}

// New creates a Store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// rowScanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}
